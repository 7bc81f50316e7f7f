// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package packet implements the ORCA packet codec: pure functions over the
// 32-bit packet header word, and a diagnostic dump.
//
// A packet is a contiguous run of 32-bit little-endian words. The first word
// is the packet header word:
//
//	bit  31:    short-packet flag (header word is the whole packet)
//	bits 30-18: data id, selecting the destination decoder
//	bits 17-0:  total word count including the header word (long packets)
//
// Short packets carry their entire record in the header word; the word-count
// field is not meaningful for them.
package packet

// Header word bit layout.
const (
	shortFlagShift = 31

	// DataIDShift is the bit offset of the data id sub-field within the
	// header word.
	DataIDShift = 18

	dataIDMask = uint32(0x1FFF) << DataIDShift
	nWordsMask = uint32(0x3FFFF)
)

// P is one packet: a view of the stream reader's reusable word buffer.
//
// A P is valid only until the next load on the reader that produced it.
// Callers that need to retain packet data across further reads must Copy it.
type P []uint32

// Header returns the packet header word.
func (p P) Header() uint32 { return p[0] }

// Payload returns the payload words (everything after the header word).
//
// The returned slice shares backing storage with p.
func (p P) Payload() []uint32 { return p[1:] }

// Copy returns an independent copy of the packet, decoupled from the
// reader's reusable buffer.
func (p P) Copy() P {
	return append(P(nil), p...)
}

// IsShort reports whether the short-packet framing bit is set in the header
// word.
func IsShort(header uint32) bool {
	return header>>shortFlagShift != 0
}

// NWords returns the total word count of the packet, including the header
// word. It is only defined for long packets.
func NWords(header uint32) uint32 {
	return header & nWordsMask
}

// DataID extracts the data id sub-field from the header word.
//
// With shift set, the id is returned right-aligned, as operators read it.
// Without it, the raw masked sub-field is returned, matching the form the
// stream header's dataDescription declares; both forms read the same bits
// and dispatch tables may be keyed on either, as long as lookups use one
// form consistently.
func DataID(header uint32, shift bool) uint32 {
	if shift {
		return (header & dataIDMask) >> DataIDShift
	}
	return header & dataIDMask
}
