// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package rawbuf implements the raw buffer pool: fixed-capacity row
// accumulators, ordered lists of them keyed by source key, and the library
// that maps decoder-type names to lists.
//
// Ownership: a RawBuffer is owned by the list that holds it. Decoders borrow
// a buffer for the duration of one decode call and must not retain it.
// Flushing a full buffer (persisting rows, calling Reset) is entirely the
// external writer's responsibility.
package rawbuf

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/table"
)

// RawBuffer accumulates decoded rows for one output table.
type RawBuffer struct {
	// Table is the row storage.
	Table *table.Table

	// Name is the output table name (by default the decoder-type name).
	Name string

	// OutStream names the output destination this buffer routes to.
	OutStream string

	// KeyList restricts which source keys may be written to this buffer.
	// A nil KeyList is the wildcard: all keys match.
	KeyList []int

	// Loc is the fill offset: the next row to write. Decoders advance it;
	// the external writer resets it after a flush.
	Loc int

	// FillSafety is the maximum number of rows a single decode call may
	// append. IsFull reports full while fewer than FillSafety rows remain,
	// so a decoder can write one whole burst without per-row capacity
	// checks. A decoder writing more than FillSafety rows per call is a
	// programming error.
	FillSafety int
}

// NewRawBuffer allocates a buffer of the given row capacity for a schema.
func NewRawBuffer(schema table.Schema, capacity int, fillSafety int) (*RawBuffer, error) {
	if fillSafety > capacity {
		return nil, errors.Errorf("fill safety %d exceeds capacity %d", fillSafety, capacity)
	}
	t, err := table.New(schema, capacity)
	if err != nil {
		return nil, err
	}
	return &RawBuffer{Table: t, FillSafety: fillSafety}, nil
}

// IsFull reports whether the buffer can no longer accept a full decode
// burst: fewer than FillSafety rows remain. A 1-row decoder therefore turns
// its buffer full exactly when the last row is written.
func (rb *RawBuffer) IsFull() bool {
	margin := rb.FillSafety
	if margin < 1 {
		margin = 1
	}
	return rb.Table.Capacity()-rb.Loc < margin
}

// Remaining returns the number of rows that can still be written.
func (rb *RawBuffer) Remaining() int {
	if r := rb.Table.Capacity() - rb.Loc; r > 0 {
		return r
	}
	return 0
}

// Reset clears the fill offset. Called by the external writer after a flush,
// never by the decode path.
func (rb *RawBuffer) Reset() { rb.Loc = 0 }

// HasKey reports whether the buffer accepts the given source key.
func (rb *RawBuffer) HasKey(key int) bool {
	if rb.KeyList == nil {
		return true
	}
	for _, k := range rb.KeyList {
		if k == key {
			return true
		}
	}
	return false
}

// List is an ordered group of RawBuffers that share a decoder type but
// differ in key routing.
type List struct {
	bufs  []*RawBuffer
	byKey map[int][]*RawBuffer
}

// NewList creates a List over the given buffers.
func NewList(bufs ...*RawBuffer) *List {
	return &List{bufs: bufs}
}

// Buffers returns the buffers in the list, in order.
func (l *List) Buffers() []*RawBuffer { return l.bufs }

// Primary returns the first buffer in the list, or nil if the list is empty.
// Single-destination decoders write through Primary.
func (l *List) Primary() *RawBuffer {
	if len(l.bufs) == 0 {
		return nil
	}
	return l.bufs[0]
}

// ForKey resolves the buffers whose key list contains key (or that carry the
// wildcard key list). A key matching several buffers is written to all of
// them. An empty result means the key's data is dropped; the caller logs
// that once per key.
//
// Resolutions are memoized; key lists must not change after the first call.
func (l *List) ForKey(key int) []*RawBuffer {
	if m, ok := l.byKey[key]; ok {
		return m
	}

	var matched []*RawBuffer
	for _, rb := range l.bufs {
		if rb.HasKey(key) {
			matched = append(matched, rb)
		}
	}

	if l.byKey == nil {
		l.byKey = make(map[int][]*RawBuffer)
	}
	l.byKey[key] = matched
	return matched
}

// AnyFull reports whether any buffer in the list is full.
func (l *List) AnyFull() bool {
	for _, rb := range l.bufs {
		if rb.IsFull() {
			return true
		}
	}
	return false
}

// Library maps a decoder-type name to the list of buffers it feeds.
type Library map[string]*List

// Names returns the decoder-type names in the library, sorted.
func (lib Library) Names() []string {
	names := make([]string, 0, len(lib))
	for name := range lib {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Buffers returns every buffer in the library.
func (lib Library) Buffers() []*RawBuffer {
	var bufs []*RawBuffer
	for _, name := range lib.Names() {
		bufs = append(bufs, lib[name].Buffers()...)
	}
	return bufs
}
