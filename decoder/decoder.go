// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package decoder defines the capability every packet decoder implements.
//
// A decoder variant is a flat implementation of the Decoder interface, not a
// member of a class hierarchy; the streamer dispatches to instances through
// an explicit name-to-constructor table built at stream-open time.
package decoder

import (
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/table"
)

// Decoder decodes packets of one data id family into raw buffers.
//
// Decoders are stateful only in narrow, documented ways (for example,
// remembering which source keys they have already warned about skipping).
type Decoder interface {
	// DecodedValues returns the output schema for a given source key. Most
	// decoders return one fixed schema regardless of key, but per-key
	// schemas are allowed (different channel counts per card, say).
	DecodedValues(key int) (table.Schema, error)

	// KeyLists declares, from header/config data, which source keys this
	// decoder expects to emit, grouped for default buffer routing. A nil
	// group declares a single unkeyed destination (wildcard routing).
	KeyLists() [][]int

	// MaxRowsInPacket is the upper bound on rows a single DecodePacket call
	// writes for one key. It feeds the buffer pool's fill-safety contract.
	MaxRowsInPacket() int

	// DecodePacket parses one packet's payload and writes rows into the
	// matching buffers of dest, advancing each touched buffer's fill
	// offset. It reports whether any touched buffer became full after this
	// call; the stream reader uses that to bound a chunk.
	//
	// The packet is a borrowed view: it must not be retained past the call.
	DecodePacket(p packet.P, dest *rawbuf.List, packetID int) (bool, error)
}
