// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/table"
)

// RunDecoderName is the decoder-type name for run start/stop records.
const RunDecoderName = "ORRunDecoderForRun"

var runSchema = table.Schema{
	{Name: "packet_id", Kind: table.U32},
	{Name: "flags", Kind: table.U32},
	{Name: "run", Kind: table.U32},
	{Name: "time", Kind: table.U32, Unit: "s"},
}

// RunDecoder decodes ORRunDecoderForRun packets: one row per run transition,
// carrying the transition flags, run number and unix timestamp.
type RunDecoder struct{}

// NewRunDecoder returns a RunDecoder.
func NewRunDecoder() *RunDecoder { return &RunDecoder{} }

// DecodedValues returns the run record schema; the key is ignored.
func (d *RunDecoder) DecodedValues(key int) (table.Schema, error) {
	return runSchema, nil
}

// KeyLists declares a single unkeyed destination.
func (d *RunDecoder) KeyLists() [][]int { return [][]int{nil} }

// MaxRowsInPacket returns 1: a run packet is one transition.
func (d *RunDecoder) MaxRowsInPacket() int { return 1 }

// DecodePacket writes the run transition row.
//
// Payload layout: word 0 carries the transition flags (bit 0 set for a run
// start, clear for a stop), word 1 the run number, word 2 the unix time.
func (d *RunDecoder) DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error) {
	payload := p.Payload()
	if len(payload) < 3 {
		return false, errors.Errorf("run packet payload has %d words, need 3", len(payload))
	}

	full := false
	for _, rb := range dest.ForKey(0) {
		ii := rb.Loc
		rb.Table.Col("packet_id").SetU32(ii, uint32(packetID))
		rb.Table.Col("flags").SetU32(ii, payload[0])
		rb.Table.Col("run").SetU32(ii, payload[1])
		rb.Table.Col("time").SetU32(ii, payload[2])
		rb.Loc++
		full = full || rb.IsFull()
	}
	return full, nil
}
