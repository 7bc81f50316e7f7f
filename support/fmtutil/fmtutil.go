// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package fmtutil contains formatting helpers.
package fmtutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Hex is a byte slice that renders as a hex-dumped string.
//
// It can be used for easy lazy hex dumping.
type Hex []byte

func (h Hex) String() string { return hex.Dump([]byte(h)) }

// Words is a uint32 slice that renders as a sequence of hex words.
//
// Output as: "[3]uint32{0x00000001, 0x000C0004, 0x63C1977A}"
//
// It can be used for easy lazy rendering of packet data in log messages.
type Words []uint32

func (ws Words) String() string {
	var sb bytes.Buffer
	sb.Grow((12 * len(ws)) + 16) // 16 is more than we need for static content.
	fmt.Fprintf(&sb, "[%d]uint32{", len(ws))
	for i, w := range ws {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%08X", w)
	}
	sb.WriteString("}")
	return sb.String()
}
