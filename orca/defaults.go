// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"github.com/ssailer/legend-daq2lh5/decoder"
	"github.com/ssailer/legend-daq2lh5/flashcam"
	"github.com/ssailer/legend-daq2lh5/orca/header"
)

// DefaultDecoders returns the built-in decoder registration table: every
// decoder-type name this module implements, mapped to its constructor.
//
// Callers extend or replace entries on the returned map before assigning it
// to Streamer.Decoders; the table is rebuilt on every call so mutation is
// safe.
func DefaultDecoders() map[string]DecoderFactory {
	return map[string]DecoderFactory{
		RunDecoderName: func(h *header.Header) decoder.Decoder {
			return NewRunDecoder()
		},
		flashcam.ConfigDecoderName: func(h *header.Header) decoder.Decoder {
			return flashcam.NewConfigDecoder()
		},
		flashcam.StatusDecoderName: func(h *header.Header) decoder.Decoder {
			return flashcam.NewStatusDecoder()
		},
		flashcam.WaveformDecoderName: func(h *header.Header) decoder.Decoder {
			// Size the waveform rows from the readout configuration when the
			// header carries one; the hardware-maximum fallback costs a lot
			// of buffer memory.
			cfg := flashcam.WaveformConfig{}
			if v, ok := h.Int("ReadoutConfig", "nsamples"); ok {
				cfg.WaveformLen = int(v)
			}
			if v, ok := h.Int("ReadoutConfig", "nadcs"); ok {
				cfg.NumChannels = int(v)
				cfg.TraceListGuess = int(v)
			}
			return flashcam.NewWaveformDecoder(cfg)
		},
	}
}
