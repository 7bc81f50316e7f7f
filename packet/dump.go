// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package packet

import (
	"fmt"
)

// DumpOptions controls the rendering of a packet dump.
//
// The zero value renders every word as one hex line. Dump output is purely
// diagnostic and never consumed by the decode path.
type DumpOptions struct {
	// ShiftDataID renders the header word as its two sub-fields (shifted
	// data id and word count) instead of the raw word.
	ShiftDataID bool

	// PrintNWords prefixes the dump with a summary line of the form
	// "data id = D: N words".
	PrintNWords bool

	// MaxWords caps the number of words rendered. Zero means no cap.
	MaxWords int

	// AsInt renders words in decimal instead of hex.
	AsInt bool

	// AsShort splits each word into its two 16-bit halves, low half first.
	AsShort bool
}

// DefaultDumpOptions mirrors the conventional operator-facing dump: shifted
// data id on the header line, everything else raw hex.
func DefaultDumpOptions() DumpOptions {
	return DumpOptions{ShiftDataID: true}
}

// Dump renders p as a sequence of human-readable lines, one per word (plus
// an optional summary line). It does not mutate p or any other state.
//
// Each line is "<index> <value>"; the value formatting follows opts.
func Dump(p P, opts DumpOptions) []string {
	if len(p) == 0 {
		return nil
	}

	header := p.Header()
	n := len(p)
	if opts.MaxWords > 0 && opts.MaxWords < n {
		n = opts.MaxWords
	}

	lines := make([]string, 0, n+1)
	if opts.PrintNWords {
		nw := uint32(1)
		if !IsShort(header) {
			nw = NWords(header)
		}
		lines = append(lines, fmt.Sprintf("data id = %d: %d words", DataID(header, true), nw))
	}

	for i := 0; i < n; i++ {
		w := p[i]
		switch {
		case i == 0 && opts.ShiftDataID:
			lines = append(lines, fmt.Sprintf("%d 0x%x 0x%05x", i, DataID(header, true), NWords(header)))
		case opts.AsShort && opts.AsInt:
			lines = append(lines, fmt.Sprintf("%d %d %d", i, w&0xFFFF, w>>16))
		case opts.AsShort:
			lines = append(lines, fmt.Sprintf("%d 0x%04x 0x%04x", i, w&0xFFFF, w>>16))
		case opts.AsInt:
			lines = append(lines, fmt.Sprintf("%d %d", i, w))
		default:
			lines = append(lines, fmt.Sprintf("%d 0x%08x", i, w))
		}
	}
	return lines
}
