// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package table

import (
	"github.com/pkg/errors"
)

// Table is a fixed-capacity set of typed columns.
//
// Rows are written in place by decoders; the table itself never tracks a
// fill offset (that is the raw buffer's job). Writing past the capacity is a
// programming error and panics like any out-of-range slice access.
type Table struct {
	schema Schema
	cap    int
	cols   map[string]*Column
}

// New allocates a table for the given schema and row capacity.
func New(schema Schema, capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, errors.Errorf("invalid table capacity %d", capacity)
	}

	t := &Table{
		schema: schema,
		cap:    capacity,
		cols:   make(map[string]*Column, len(schema)),
	}
	for _, f := range schema {
		if _, ok := t.cols[f.Name]; ok {
			return nil, errors.Errorf("duplicate field %q", f.Name)
		}
		col, err := newColumn(f, capacity)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", f.Name)
		}
		t.cols[f.Name] = col
	}
	return t, nil
}

// Capacity returns the number of rows the table can hold.
func (t *Table) Capacity() int { return t.cap }

// Schema returns the table's schema.
func (t *Table) Schema() Schema { return t.schema }

// Col returns the named column, or nil if the schema does not declare it.
//
// Decoders treat a nil column as a schema mismatch: warn and skip the value.
func (t *Table) Col(name string) *Column {
	return t.cols[name]
}

// Column is one typed column of a Table.
//
// Exactly one of the storage slices is non-nil, matching the field's Kind.
// Fixed-width array columns store rows back to back in a flat slice.
type Column struct {
	field Field
	width int

	u16s []uint16
	u32s []uint32
	i32s []int32
	i64s []int64
	f32s []float32
	f64s []float64
	strs []string

	vec16 [][]uint16
	vec32 [][]uint32
}

func newColumn(f Field, capacity int) (*Column, error) {
	width := 1
	if f.ArrayLen > 0 {
		width = f.ArrayLen
	}
	c := &Column{field: f, width: width}

	if f.VarLen {
		guess := f.LengthGuess
		if guess <= 0 {
			guess = 16
		}
		switch f.Kind {
		case U16:
			c.vec16 = make([][]uint16, capacity)
			for i := range c.vec16 {
				c.vec16[i] = make([]uint16, 0, guess)
			}
		case U32:
			c.vec32 = make([][]uint32, capacity)
			for i := range c.vec32 {
				c.vec32[i] = make([]uint32, 0, guess)
			}
		default:
			return nil, errors.Errorf("variable-length columns not supported for %s", f.Kind)
		}
		return c, nil
	}

	n := capacity * width
	switch f.Kind {
	case U16:
		c.u16s = make([]uint16, n)
	case U32:
		c.u32s = make([]uint32, n)
	case I32:
		c.i32s = make([]int32, n)
	case I64:
		c.i64s = make([]int64, n)
	case F32:
		c.f32s = make([]float32, n)
	case F64:
		c.f64s = make([]float64, n)
	case Str:
		if width != 1 {
			return nil, errors.New("string columns must be scalar")
		}
		c.strs = make([]string, n)
	default:
		return nil, errors.Errorf("invalid column kind %d", f.Kind)
	}
	return c, nil
}

// Field returns the field this column was created from.
func (c *Column) Field() Field { return c.field }

// Width returns the number of scalars per row (1 for scalar columns).
func (c *Column) Width() int { return c.width }

// Scalar setters. Calling a setter whose type does not match the column's
// kind is a programming error and panics. Setters on a nil Column (a schema
// mismatch, per Col) are no-ops: a decode writes what it can and the rest of
// the row's data simply never lands.

func (c *Column) SetU16(row int, v uint16) {
	if c != nil {
		c.u16s[row*c.width] = v
	}
}

func (c *Column) SetU32(row int, v uint32) {
	if c != nil {
		c.u32s[row*c.width] = v
	}
}

func (c *Column) SetI32(row int, v int32) {
	if c != nil {
		c.i32s[row*c.width] = v
	}
}

func (c *Column) SetI64(row int, v int64) {
	if c != nil {
		c.i64s[row*c.width] = v
	}
}

func (c *Column) SetF32(row int, v float32) {
	if c != nil {
		c.f32s[row*c.width] = v
	}
}

func (c *Column) SetF64(row int, v float64) {
	if c != nil {
		c.f64s[row*c.width] = v
	}
}

func (c *Column) SetStr(row int, v string) {
	if c != nil {
		c.strs[row] = v
	}
}

// Scalar getters.

func (c *Column) U16(row int) uint16  { return c.u16s[row*c.width] }
func (c *Column) U32(row int) uint32  { return c.u32s[row*c.width] }
func (c *Column) I32(row int) int32   { return c.i32s[row*c.width] }
func (c *Column) I64(row int) int64   { return c.i64s[row*c.width] }
func (c *Column) F32(row int) float32 { return c.f32s[row*c.width] }
func (c *Column) F64(row int) float64 { return c.f64s[row*c.width] }
func (c *Column) Str(row int) string  { return c.strs[row] }

// RowU16 returns the fixed-width array slot for a row of a uint16 array
// column, or nil for a nil column. The returned slice is the table's own
// storage.
func (c *Column) RowU16(row int) []uint16 {
	if c == nil {
		return nil
	}
	return c.u16s[row*c.width : (row+1)*c.width]
}

// RowU32 is RowU16 for uint32 array columns.
func (c *Column) RowU32(row int) []uint32 {
	if c == nil {
		return nil
	}
	return c.u32s[row*c.width : (row+1)*c.width]
}

// SetVec16 copies vals into the variable-length slot for a row.
func (c *Column) SetVec16(row int, vals []uint16) {
	if c != nil {
		c.vec16[row] = append(c.vec16[row][:0], vals...)
	}
}

// Vec16 returns the variable-length slot for a row.
func (c *Column) Vec16(row int) []uint16 { return c.vec16[row] }

// SetVec32 copies vals into the variable-length slot for a row.
func (c *Column) SetVec32(row int, vals []uint32) {
	if c != nil {
		c.vec32[row] = append(c.vec32[row][:0], vals...)
	}
}

// Vec32 returns the variable-length slot for a row.
func (c *Column) Vec32(row int) []uint32 { return c.vec32[row] }
