// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package flashcam

import (
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/support/logging"
	"github.com/ssailer/legend-daq2lh5/support/wordio"
	"github.com/ssailer/legend-daq2lh5/table"
)

// WaveformDecoderName is the decoder-type name for waveform event packets.
const WaveformDecoderName = "ORFlashCamWaveformDecoder"

const (
	// DefaultWaveformLen is the per-trace sample bound used when the caller
	// does not override it. It is the hardware maximum; override it to the
	// configured nsamples to save buffer memory.
	DefaultWaveformLen = 65532

	// DefaultNumChannels is the adc channel bound used when the caller does
	// not override it from the readout configuration.
	DefaultNumChannels = 256

	// ticksPerSecond is the fc250 clock rate.
	ticksPerSecond = 250e6
)

// WaveformConfig carries the construction-time overrides for a
// WaveformDecoder. Zero values select the defaults.
type WaveformConfig struct {
	// WaveformLen is the fixed per-row sample capacity. Traces longer than
	// this are rejected as malformed.
	WaveformLen int

	// NumChannels bounds the adc channel ids this stream can emit. It sizes
	// the key lists and the fill-safety contract.
	NumChannels int

	// TraceListGuess sizes the per-row trace-list preallocation.
	TraceListGuess int

	// Logger, if not nil, logs skipped channels.
	Logger logging.L
}

// WaveformDecoder decodes ORFlashCamWaveformDecoder packets: one row per
// triggered adc channel, carrying ids, timestamps, the fpga baseline and
// energy, the triggered-channel list and the waveform samples.
//
// Channels the buffer list does not route are dropped with one log line per
// channel.
type WaveformDecoder struct {
	schema      table.Schema
	wfLen       int
	numChannels int
	logger      logging.L

	skipped map[uint16]bool
}

// NewWaveformDecoder returns a WaveformDecoder for the given overrides.
func NewWaveformDecoder(cfg WaveformConfig) *WaveformDecoder {
	if cfg.WaveformLen <= 0 {
		cfg.WaveformLen = DefaultWaveformLen
	}
	if cfg.NumChannels <= 0 {
		cfg.NumChannels = DefaultNumChannels
	}
	if cfg.TraceListGuess <= 0 {
		cfg.TraceListGuess = 16
	}

	return &WaveformDecoder{
		schema: table.Schema{
			{Name: "packet_id", Kind: table.U32},
			{Name: "eventnumber", Kind: table.I32},
			// PPS timestamp and clock ticks since the PPS edge
			{Name: "ts_pps", Kind: table.I32, Unit: "s"},
			{Name: "ts_ticks", Kind: table.I32},
			// time since run start
			{Name: "runtime", Kind: table.F64, Unit: "s"},
			// triggered adc channels in this event
			{Name: "numtraces", Kind: table.I32},
			{Name: "tracelist", Kind: table.U16, VarLen: true, LengthGuess: cfg.TraceListGuess},
			{Name: "channel", Kind: table.U32},
			// fpga baseline and energy
			{Name: "baseline", Kind: table.U16},
			{Name: "daqenergy", Kind: table.U16},
			{Name: "nsamples", Kind: table.U16},
			{Name: "waveform", Kind: table.U16, ArrayLen: cfg.WaveformLen},
		},
		wfLen:       cfg.WaveformLen,
		numChannels: cfg.NumChannels,
		logger:      cfg.Logger,
		skipped:     make(map[uint16]bool),
	}
}

// DecodedValues returns the event schema. All channels share it.
func (d *WaveformDecoder) DecodedValues(key int) (table.Schema, error) {
	return d.schema, nil
}

// KeyLists declares one group holding every possible adc channel.
func (d *WaveformDecoder) KeyLists() [][]int {
	keys := make([]int, d.numChannels)
	for i := range keys {
		keys[i] = i
	}
	return [][]int{keys}
}

// MaxRowsInPacket returns the channel bound: an event triggers each channel
// at most once.
func (d *WaveformDecoder) MaxRowsInPacket() int { return d.numChannels }

// trace is one parsed per-channel section of an event payload. Its words
// slice is a borrowed view of the packet.
type trace struct {
	channel   uint16
	nsamples  uint16
	baseline  uint16
	daqenergy uint16
	words     []uint32
}

// DecodePacket writes one row per triggered channel, routed by channel.
//
// Payload layout: word 0 event number, words 1-2 PPS timestamp and clock
// ticks, word 3 trace count; then per trace a channel/nsamples half-word
// pair, a baseline/energy half-word pair, and nsamples packed 16-bit samples
// (two per word, low half first, odd counts padded).
func (d *WaveformDecoder) DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error) {
	r := wordio.R{Words: p.Payload()}
	if r.Remaining() < 4 {
		return false, errors.Errorf("event packet payload has %d words, need at least 4", r.Remaining())
	}

	eventnumber, _ := r.ReadWord()
	tsPPS, _ := r.ReadWord()
	tsTicks, _ := r.ReadWord()
	numtraces, _ := r.ReadWord()
	runtime := float64(int32(tsPPS)) + float64(int32(tsTicks))/ticksPerSecond

	if int(numtraces) > d.numChannels {
		return false, errors.Errorf("event declares %d traces for %d channels", numtraces, d.numChannels)
	}

	traces := make([]trace, 0, numtraces)
	tracelist := make([]uint16, 0, numtraces)
	for i := 0; i < int(numtraces); i++ {
		channel, nsamples, err := r.ReadPair()
		if err != nil {
			return false, errors.Wrapf(err, "reading trace %d id word", i)
		}
		baseline, daqenergy, err := r.ReadPair()
		if err != nil {
			return false, errors.Wrapf(err, "reading trace %d fpga word", i)
		}
		if int(nsamples) > d.wfLen {
			return false, errors.Errorf("trace %d has %d samples, waveform capacity is %d",
				i, nsamples, d.wfLen)
		}

		words, err := r.Next((int(nsamples) + 1) / 2)
		if err != nil {
			return false, errors.Wrapf(err, "reading trace %d samples", i)
		}

		traces = append(traces, trace{
			channel:   channel,
			nsamples:  nsamples,
			baseline:  baseline,
			daqenergy: daqenergy,
			words:     words,
		})
		tracelist = append(tracelist, channel)
	}

	full := false
	for _, tr := range traces {
		bufs := dest.ForKey(int(tr.channel))
		if len(bufs) == 0 {
			if !d.skipped[tr.channel] {
				d.skipped[tr.channel] = true
				logging.Must(d.logger).Infof("skipping channel %d (no buffer requested)", tr.channel)
			}
			continue
		}

		for _, rb := range bufs {
			ii := rb.Loc
			rb.Table.Col("packet_id").SetU32(ii, uint32(packetID))
			rb.Table.Col("eventnumber").SetI32(ii, int32(eventnumber))
			rb.Table.Col("ts_pps").SetI32(ii, int32(tsPPS))
			rb.Table.Col("ts_ticks").SetI32(ii, int32(tsTicks))
			rb.Table.Col("runtime").SetF64(ii, runtime)
			rb.Table.Col("numtraces").SetI32(ii, int32(numtraces))
			rb.Table.Col("tracelist").SetVec16(ii, tracelist)
			rb.Table.Col("channel").SetU32(ii, uint32(tr.channel))
			rb.Table.Col("baseline").SetU16(ii, tr.baseline)
			rb.Table.Col("daqenergy").SetU16(ii, tr.daqenergy)
			rb.Table.Col("nsamples").SetU16(ii, tr.nsamples)
			unpackSamples(rb.Table.Col("waveform").RowU16(ii), tr.words, int(tr.nsamples))
			rb.Loc++
			full = full || rb.IsFull()
		}
	}
	return full, nil
}

// unpackSamples splits packed sample words into dst, low half first.
func unpackSamples(dst []uint16, words []uint32, nsamples int) {
	if nsamples > len(dst) {
		nsamples = len(dst)
	}
	for i := 0; i < nsamples; i++ {
		w := words[i/2]
		if i%2 == 0 {
			dst[i] = uint16(w & 0xFFFF)
		} else {
			dst[i] = uint16(w >> 16)
		}
	}
	for i := nsamples; i < len(dst); i++ {
		dst[i] = 0
	}
}
