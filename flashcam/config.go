// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package flashcam implements the FlashCam hardware decoders: readout
// configuration, digitizer status and waveform event packets as ORCA embeds
// them in its packet stream.
package flashcam

import (
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/table"
)

// ConfigDecoderName is the decoder-type name for readout configuration
// packets.
const ConfigDecoderName = "ORFlashCamListenerConfigDecoder"

// configWords is the number of scalar configuration words preceding the
// trace map in the payload.
const configWords = 11

var configSchema = table.Schema{
	{Name: "packet_id", Kind: table.U32},
	// samples per channel
	{Name: "nsamples", Kind: table.I32},
	// number of adc channels
	{Name: "nadcs", Kind: table.I32},
	// number of triggertraces
	{Name: "ntriggers", Kind: table.I32},
	{Name: "telid", Kind: table.I32},
	// bit range of the adc channels
	{Name: "adcbits", Kind: table.I32},
	// length of the fpga integrator
	{Name: "sumlength", Kind: table.I32},
	// precision of the fpga baseline
	{Name: "blprecision", Kind: table.I32},
	{Name: "mastercards", Kind: table.I32},
	{Name: "triggercards", Kind: table.I32},
	{Name: "adccards", Kind: table.I32},
	// gps mode (0: not used, 1: external pps and 10MHz)
	{Name: "gps", Kind: table.I32},
	{Name: "tracemap", Kind: table.U32, VarLen: true, LengthGuess: 64},
}

// ConfigDecoder decodes ORFlashCamListenerConfigDecoder packets: the
// readout configuration scalars followed by the ADC trace map.
//
// The decoder remembers the last configuration it saw; callers sizing
// waveform buffers can consult NSamples and NAdcs.
type ConfigDecoder struct {
	nsamples int32
	nadcs    int32
}

// NewConfigDecoder returns a ConfigDecoder.
func NewConfigDecoder() *ConfigDecoder { return &ConfigDecoder{} }

// DecodedValues returns the configuration schema; the key is ignored.
func (d *ConfigDecoder) DecodedValues(key int) (table.Schema, error) {
	return configSchema, nil
}

// KeyLists declares a single unkeyed destination.
func (d *ConfigDecoder) KeyLists() [][]int { return [][]int{nil} }

// MaxRowsInPacket returns 1: a config packet is one configuration snapshot.
func (d *ConfigDecoder) MaxRowsInPacket() int { return 1 }

// NSamples returns the samples-per-channel count from the last decoded
// configuration, or 0 if none was decoded yet.
func (d *ConfigDecoder) NSamples() int32 { return d.nsamples }

// NAdcs returns the adc channel count from the last decoded configuration,
// or 0 if none was decoded yet.
func (d *ConfigDecoder) NAdcs() int32 { return d.nadcs }

// DecodePacket writes one configuration row.
//
// Payload layout: 11 int32 scalars in schema order (nsamples first, gps
// last), then the trace map, one word per mapped ADC channel, running to the
// end of the packet.
func (d *ConfigDecoder) DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error) {
	payload := p.Payload()
	if len(payload) < configWords {
		return false, errors.Errorf("config packet payload has %d words, need at least %d",
			len(payload), configWords)
	}

	d.nsamples = int32(payload[0])
	d.nadcs = int32(payload[1])
	tracemap := payload[configWords:]

	full := false
	for _, rb := range dest.ForKey(0) {
		ii := rb.Loc
		rb.Table.Col("packet_id").SetU32(ii, uint32(packetID))
		for i, f := range configSchema[1 : configWords+1] {
			rb.Table.Col(f.Name).SetI32(ii, int32(payload[i]))
		}
		rb.Table.Col("tracemap").SetVec32(ii, tracemap)
		rb.Loc++
		full = full || rb.IsFull()
	}
	return full, nil
}
