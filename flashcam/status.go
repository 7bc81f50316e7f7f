// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package flashcam

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/table"
)

// StatusDecoderName is the decoder-type name for digitizer status packets.
const StatusDecoderName = "ORFlashCamListenerStatusDecoder"

const (
	// statusHeadWords is the number of payload words preceding the card
	// blocks: status, three sec/usec time pairs, card count and block size.
	statusHeadWords = 9

	// cardStatusWords is the fixed size of one card block in words.
	cardStatusWords = 25

	// DefaultMaxCards bounds the card blocks a single status packet may
	// carry, and with it the decoder's fill-safety contract.
	DefaultMaxCards = 50
)

var statusSchema = table.Schema{
	{Name: "packet_id", Kind: table.U32},
	// 0: errors occurred, 1: no errors
	{Name: "status", Kind: table.I32},
	// fc250 time
	{Name: "statustime", Kind: table.F32, Unit: "s"},
	{Name: "cputime", Kind: table.F64, Unit: "s"},
	{Name: "startoffset", Kind: table.F32, Unit: "s"},
	// total number of card blocks in the packet
	{Name: "cards", Kind: table.I32},
	// card block size in words
	{Name: "size", Kind: table.I32},
	// card index of this row's block
	{Name: "card", Kind: table.I32},
	// [0-4] temps in mDeg, [5-10] voltages in mV, 11 main current in mA,
	// 12 humidity in permille, [13-14] adc card temps in mDeg
	{Name: "environment", Kind: table.U32, ArrayLen: 16},
	{Name: "totalerrors", Kind: table.U32},
	{Name: "enverrors", Kind: table.U32},
	{Name: "ctierrors", Kind: table.U32},
	{Name: "linkerrors", Kind: table.U32},
	{Name: "othererrors", Kind: table.U32, ArrayLen: 5},
}

// cardStatus is the wire layout of one card block within a status payload.
type cardStatus struct {
	Environment [16]uint32 `struc:",little"`
	TotalErrors uint32     `struc:",little"`
	EnvErrors   uint32     `struc:",little"`
	CTIErrors   uint32     `struc:",little"`
	LinkErrors  uint32     `struc:",little"`
	OtherErrors [5]uint32  `struc:",little"`
}

// StatusDecoder decodes ORFlashCamListenerStatusDecoder packets: one row per
// card block, with the packet-level status scalars repeated on each row.
type StatusDecoder struct{}

// NewStatusDecoder returns a StatusDecoder.
func NewStatusDecoder() *StatusDecoder { return &StatusDecoder{} }

// DecodedValues returns the status schema; the key is ignored.
func (d *StatusDecoder) DecodedValues(key int) (table.Schema, error) {
	return statusSchema, nil
}

// KeyLists declares a single unkeyed destination.
func (d *StatusDecoder) KeyLists() [][]int { return [][]int{nil} }

// MaxRowsInPacket returns the card-block bound.
func (d *StatusDecoder) MaxRowsInPacket() int { return DefaultMaxCards }

// DecodePacket writes one row per card block.
//
// Payload layout: word 0 status; words 1-2, 3-4 and 5-6 sec/usec pairs for
// the fc250 status time, the CPU time and the start offset; word 7 the card
// count; word 8 the block size in words; then cards blocks of size words
// each, fixed fields first and vendor padding (if any) after them.
func (d *StatusDecoder) DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error) {
	payload := p.Payload()
	if len(payload) < statusHeadWords {
		return false, errors.Errorf("status packet payload has %d words, need at least %d",
			len(payload), statusHeadWords)
	}

	status := int32(payload[0])
	statustime := float32(payload[1]) + float32(payload[2])/1e6
	cputime := float64(payload[3]) + float64(payload[4])/1e6
	startoffset := float32(payload[5]) + float32(payload[6])/1e6
	cards := int(int32(payload[7]))
	size := int(int32(payload[8]))

	switch {
	case cards < 0 || cards > DefaultMaxCards:
		return false, errors.Errorf("status packet declares %d cards", cards)
	case size < cardStatusWords:
		return false, errors.Errorf("status card block size %d words is below the fixed %d",
			size, cardStatusWords)
	case len(payload) < statusHeadWords+cards*size:
		return false, errors.Errorf("status packet payload has %d words, %d cards of %d need %d",
			len(payload), cards, size, statusHeadWords+cards*size)
	}

	full := false
	for _, rb := range dest.ForKey(0) {
		for card := 0; card < cards; card++ {
			block := payload[statusHeadWords+card*size : statusHeadWords+(card+1)*size]
			var cs cardStatus
			if err := struc.Unpack(bytes.NewReader(wordBytes(block)), &cs); err != nil {
				return false, errors.Wrapf(err, "unpacking card %d status block", card)
			}

			ii := rb.Loc
			rb.Table.Col("packet_id").SetU32(ii, uint32(packetID))
			rb.Table.Col("status").SetI32(ii, status)
			rb.Table.Col("statustime").SetF32(ii, statustime)
			rb.Table.Col("cputime").SetF64(ii, cputime)
			rb.Table.Col("startoffset").SetF32(ii, startoffset)
			rb.Table.Col("cards").SetI32(ii, int32(cards))
			rb.Table.Col("size").SetI32(ii, int32(size))
			rb.Table.Col("card").SetI32(ii, int32(card))
			copy(rb.Table.Col("environment").RowU32(ii), cs.Environment[:])
			rb.Table.Col("totalerrors").SetU32(ii, cs.TotalErrors)
			rb.Table.Col("enverrors").SetU32(ii, cs.EnvErrors)
			rb.Table.Col("ctierrors").SetU32(ii, cs.CTIErrors)
			rb.Table.Col("linkerrors").SetU32(ii, cs.LinkErrors)
			copy(rb.Table.Col("othererrors").RowU32(ii), cs.OtherErrors[:])
			rb.Loc++
		}
		full = full || rb.IsFull()
	}
	return full, nil
}

// wordBytes renders words back to the little-endian byte stream they came
// from, for struct unpacking.
func wordBytes(words []uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
