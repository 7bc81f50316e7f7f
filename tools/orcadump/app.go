// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package orcadump defines the logic for the "orcadump" inspection tool.
//
// The tool probes, counts, hex-dumps and trial-decodes ORCA stream files:
//
//	orcadump probe FILE...
//	orcadump count FILE
//	orcadump dump FILE
//	orcadump scan FILE
package orcadump

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ssailer/legend-daq2lh5/orca"
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/support/logging"
)

var (
	verbose     = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
	nPackets    = pflag.IntP("packets", "n", 0, "Stop dumping after this many packets (0 = all).")
	skipHeader  = pflag.Bool("skip-header", false, "Do not dump the header packet.")
	rawIDs      = pflag.Bool("raw-ids", false, "Print data ids unshifted, as they sit in the header word.")
	printNWords = pflag.Bool("nwords", false, "Prefix each packet with its data id and word count.")
	bufferSize  = pflag.Int("buffer-size", orca.DefaultBufferSize, "Raw buffer row capacity for scan.")
)

// Main is the main entry point.
func Main() {
	pflag.Parse()
	if pflag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: orcadump [flags] probe|count|dump|scan FILE...")
		os.Exit(2)
	}

	logger := makeLogger(*verbose)
	orca.RegisterMonitoring(prometheus.DefaultRegisterer)

	cmd, files := pflag.Arg(0), pflag.Args()[1:]
	for _, path := range files {
		if err := run(cmd, path, logger); err != nil {
			logger.Errorf("%s %s: %s", cmd, path, err)
			os.Exit(1)
		}
	}
}

func run(cmd, path string, logger logging.L) error {
	switch cmd {
	case "probe":
		fmt.Printf("%s: orca=%t\n", path, orca.IsOrcaStream(path, logger))
		return nil
	case "count":
		return count(path, logger)
	case "dump":
		opts := orca.HexDumpOptions{
			NPackets:   *nPackets,
			SkipHeader: *skipHeader,
			Dump:       packet.DefaultDumpOptions(),
		}
		opts.Dump.ShiftDataID = !*rawIDs
		opts.Dump.PrintNWords = *printNWords
		return orca.HexDump(path, os.Stdout, opts, logger)
	case "scan":
		return scan(path, logger)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func count(path string, logger logging.L) error {
	s := orca.NewStreamer(logger)
	if _, err := s.OpenStream(path, nil, *bufferSize); err != nil {
		return err
	}
	defer func() {
		_ = s.Close()
	}()

	n, err := s.CountPackets(false)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d packets\n", path, n)
	return nil
}

// scan trial-decodes the whole file with the default decoders and reports
// how many rows each buffer accumulated.
func scan(path string, logger logging.L) error {
	s := orca.NewStreamer(logger)
	if _, err := s.OpenStream(path, nil, *bufferSize); err != nil {
		return err
	}
	defer func() {
		_ = s.Close()
	}()

	rows := map[string]int{}
	for {
		bufs, more, err := s.ReadChunk(orca.AnyFullMode)
		if err != nil {
			return err
		}
		for _, rb := range bufs {
			rows[rb.Name] += rb.Loc
			rb.Reset()
		}
		if !more {
			break
		}
	}

	fmt.Printf("%s: %d packets, %d bytes\n", path, s.PacketID()+1, s.BytesRead())
	for _, name := range s.Library().Names() {
		fmt.Printf("  %-40s %d rows\n", name, rows[name])
	}
	return nil
}

func makeLogger(verbose bool) logging.L {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return logging.Nop
	}
	return zl.Sugar()
}
