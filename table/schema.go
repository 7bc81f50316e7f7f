// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package table implements fixed-capacity columnar row tables.
//
// A Table is the storage behind one raw buffer: a set of named, typed
// columns preallocated for a fixed number of rows. Decoders fill rows in
// place; the persistent columnar writer (out of scope here) drains filled
// tables.
package table

import (
	"github.com/pkg/errors"
)

// Kind enumerates the scalar storage types a column can hold.
type Kind int

const (
	KindInvalid Kind = iota
	U16
	U32
	I32
	I64
	F32
	F64
	// Str holds one string per row. Used for stream-header snapshots, not
	// for hot-path event data.
	Str
)

func (k Kind) String() string {
	switch k {
	case U16:
		return "uint16"
	case U32:
		return "uint32"
	case I32:
		return "int32"
	case I64:
		return "int64"
	case F32:
		return "float32"
	case F64:
		return "float64"
	case Str:
		return "string"
	default:
		return "invalid"
	}
}

// Field describes one column of a decoder's output schema: its name, scalar
// kind, optional physical unit, and optional array shape.
//
// A Field value is immutable by convention; decoders own their schema and
// callers override layout parameters (waveform length, length guesses) at
// decoder construction, never by mutating a shared schema afterwards.
type Field struct {
	// Name is the column name.
	Name string

	// Kind is the scalar storage type.
	Kind Kind

	// Unit is the optional physical unit ("s", "ns", ...).
	Unit string

	// ArrayLen, if >0, makes this a fixed-width array column: each row holds
	// ArrayLen scalars.
	ArrayLen int

	// VarLen marks a variable-length array column (one vector per row).
	VarLen bool

	// LengthGuess sizes the per-row preallocation of VarLen columns.
	LengthGuess int
}

// Schema is an ordered list of fields.
type Schema []Field

// Field returns the named field, or an error if the schema does not
// declare it.
func (s Schema) Field(name string) (Field, error) {
	for _, f := range s {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, errors.Errorf("schema has no field %q", name)
}
