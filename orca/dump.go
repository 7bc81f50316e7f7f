// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"fmt"
	"io"

	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/support/logging"
)

// HexDumpOptions controls HexDump.
type HexDumpOptions struct {
	// NPackets caps the number of packets dumped. Zero means all.
	NPackets int

	// SkipHeader suppresses the header packet.
	SkipHeader bool

	// Dump is the per-packet rendering.
	Dump packet.DumpOptions
}

// HexDump renders the packets of the named file to w, one line per word.
// Operator diagnostics only; never part of the decode path.
func HexDump(path string, w io.Writer, opts HexDumpOptions, logger logging.L) error {
	s := NewStreamer(logger)
	if err := s.setInStream(path); err != nil {
		return err
	}
	defer func() {
		_ = s.Close()
	}()

	if opts.SkipHeader {
		if _, err := s.LoadPacket(); err != nil {
			return err
		}
	}

	for n := 0; opts.NPackets == 0 || n < opts.NPackets; n++ {
		pkt, err := s.LoadPacket()
		if err != nil {
			return err
		}
		if pkt == nil {
			return nil
		}
		for _, line := range packet.Dump(pkt, opts.Dump) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
