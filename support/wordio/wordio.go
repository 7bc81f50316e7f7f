// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package wordio offers R, a slice-backed reader over 32-bit words that
// offers zero-copy options.
//
// Packet payloads are runs of uint32 words backed by a reusable buffer. The
// zero-copy options, Peek and Next, return sections of R's underlying slice
// rather than copying them out.
//
// With great power comes great responsibility: holding a reference to the
// underlying slice means that the slice must persist as long as that
// reference is valid. R exposes an AlwaysCopy flag for receivers that want to
// own the data they are handed; when set, the zero-copy operations return
// copies instead.
package wordio

import (
	"io"

	"github.com/pkg/errors"
)

// R is a reader over a backing slice of 32-bit words.
//
// R can be copied, creating a snapshot of its current state.
type R struct {
	// Words is the backing slice for this reader.
	Words []uint32

	// AlwaysCopy, if true, causes zero-copy methods to return copies of their
	// backing data instead of direct references.
	AlwaysCopy bool

	// pos is the R's position within Words.
	pos int
}

func (r *R) remainingSlice() []uint32 {
	if r.pos >= len(r.Words) {
		return nil
	}
	return r.Words[r.pos:]
}

// Remaining returns the number of words remaining in the reader, from the
// current position.
func (r *R) Remaining() int { return len(r.remainingSlice()) }

// ReadWord returns the next word, advancing r.
func (r *R) ReadWord() (uint32, error) {
	if r.pos >= len(r.Words) {
		return 0, io.EOF
	}
	w := r.Words[r.pos]
	r.pos++
	return w, nil
}

// ReadPair returns the low and high 16-bit halves of the next word,
// advancing r.
func (r *R) ReadPair() (lo, hi uint16, err error) {
	w, err := r.ReadWord()
	if err != nil {
		return 0, 0, err
	}
	return uint16(w & 0xFFFF), uint16(w >> 16), nil
}

// Peek returns the next n words in r without advancing it.
//
// Peek is a zero-copy method, and returns a slice of the underlying buffer
// unless AlwaysCopy is true.
//
// If there are fewer than n words in r, Peek will return as many as possible.
func (r *R) Peek(n int) []uint32 {
	v := r.remainingSlice()
	if n < len(v) {
		v = v[:n]
	}

	if r.AlwaysCopy {
		v = append([]uint32(nil), v...)
	}
	return v
}

// Next returns the next n words in r, advancing r.
//
// Next is the zero-copy equivalent to a copying read, and returns a slice of
// the underlying buffer unless AlwaysCopy is true.
//
// If there are fewer than n words in r, Next will return as many words as it
// can and io.EOF as an error. Next will never return an error if all
// requested words are returned.
func (r *R) Next(n int) (v []uint32, err error) {
	v = r.remainingSlice()
	if n < len(v) {
		v = v[:n]
	} else if n > len(v) {
		err = io.EOF
	}

	if r.AlwaysCopy {
		v = append([]uint32(nil), v...)
	}

	r.pos += len(v)
	return
}

// Seek adjusts the reader's position, following the io.Seeker whence
// convention.
func (r *R) Seek(offset int, whence int) (int, error) {
	var newPos int
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = r.pos + offset
	case io.SeekEnd:
		newPos = len(r.Words) + offset
	default:
		return r.pos, errors.Errorf("invalid whence: %d", whence)
	}

	if newPos < 0 || newPos > len(r.Words) {
		return r.pos, errors.New("seek outside of bounds")
	}
	r.pos = newPos
	return r.pos, nil
}
