// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package header

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/table"
)

// DecoderName is the decoder-type name under which the header decoder is
// registered and routed.
const DecoderName = "OrcaHeaderDecoder"

// Decoder parses the stream header packet and archives it as a one-row
// string table.
type Decoder struct {
	header *Header
}

// NewDecoder returns a header decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Header returns the most recently decoded header, or nil.
func (d *Decoder) Header() *Header { return d.header }

// DecodeHeader parses the header packet's plist payload and retains the
// result.
//
// The packet layout is: header word (data id 0, word count), one payload
// word holding the plist byte length, then the plist text zero-padded to a
// word boundary.
func (d *Decoder) DecodeHeader(p packet.P) (*Header, error) {
	if len(p) < 3 {
		return nil, errors.Errorf("header packet too small: %d words", len(p))
	}
	if id := packet.DataID(p.Header(), true); id != 0 {
		return nil, errors.Errorf("got data id %d for header", id)
	}

	payload := p.Payload()
	xmlLen := int(payload[0])
	avail := (len(payload) - 1) * 4
	if pad := avail - xmlLen; pad < 0 || pad > 3 {
		return nil, errors.Errorf("header length %dB does not fit within header packet length %dB", xmlLen, avail)
	}

	raw := make([]byte, avail)
	for i, w := range payload[1:] {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}

	root, err := parsePlist(raw[:xmlLen])
	if err != nil {
		return nil, errors.Wrap(err, "parsing header plist")
	}
	h, err := newHeader(root)
	if err != nil {
		return nil, err
	}
	d.header = h
	return h, nil
}

// DecodedValues implements decoder.Decoder. The header's output schema is a
// single string column holding the header as JSON.
func (d *Decoder) DecodedValues(key int) (table.Schema, error) {
	return table.Schema{
		{Name: "header", Kind: table.Str},
	}, nil
}

// KeyLists implements decoder.Decoder: one unkeyed destination.
func (d *Decoder) KeyLists() [][]int { return [][]int{nil} }

// MaxRowsInPacket implements decoder.Decoder.
func (d *Decoder) MaxRowsInPacket() int { return 1 }

// DecodePacket implements decoder.Decoder: parses the header packet (if not
// already parsed) and writes its JSON rendering as one row.
func (d *Decoder) DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error) {
	if d.header == nil {
		if _, err := d.DecodeHeader(p); err != nil {
			return false, err
		}
	}

	rb := dest.Primary()
	if rb == nil {
		return false, errors.New("no buffer bound for the header")
	}
	if col := rb.Table.Col("header"); col != nil {
		col.SetStr(rb.Loc, d.header.JSON())
	}
	rb.Loc++
	return rb.IsFull(), nil
}
