// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package orcatest builds synthetic ORCA packet streams for testing.
//
// Everything here mirrors the on-disk format: 32-bit little-endian words,
// a plist header packet first, then arbitrary long and short packets.
package orcatest

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
)

// Entry is one dataDescription entry of a synthetic stream header: a decoder
// type declared present, with the shifted data id its packets carry.
type Entry struct {
	Decoder string
	DataID  uint32
}

// HeaderPlist renders the XML property list of a stream header declaring the
// given entries.
func HeaderPlist(entries []Entry) []byte {
	return HeaderPlistWithReadout(entries, 0, 0)
}

// HeaderPlistWithReadout is HeaderPlist with an embedded ReadoutConfig dict
// carrying the per-channel sample count and adc channel count. Zero values
// omit the dict.
func HeaderPlistWithReadout(entries []Entry, nsamples, nadcs int) []byte {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\"?>\n")
	sb.WriteString("<plist version=\"1.0\"><dict>\n")
	sb.WriteString("<key>dataDescription</key><dict>\n")
	for i, e := range entries {
		// Header dataId values are stored in unshifted (sub-field) form.
		fmt.Fprintf(&sb, "<key>object%d</key><dict><key>entry%d</key><dict>", i, i)
		fmt.Fprintf(&sb, "<key>decoder</key><string>%s</string>", e.Decoder)
		fmt.Fprintf(&sb, "<key>dataId</key><integer>%d</integer>", e.DataID<<packet.DataIDShift)
		sb.WriteString("</dict></dict>\n")
	}
	sb.WriteString("</dict>\n")
	if nsamples > 0 || nadcs > 0 {
		sb.WriteString("<key>ReadoutConfig</key><dict>")
		fmt.Fprintf(&sb, "<key>nsamples</key><integer>%d</integer>", nsamples)
		fmt.Fprintf(&sb, "<key>nadcs</key><integer>%d</integer>", nadcs)
		sb.WriteString("</dict>\n")
	}
	sb.WriteString("</dict></plist>\n")
	return []byte(sb.String())
}

// HeaderPacket frames a plist as the stream header packet: data id 0, one
// length word, then the plist text zero-padded to a word boundary.
func HeaderPacket(plist []byte) []uint32 {
	padded := append([]byte(nil), plist...)
	for len(padded)%4 != 0 {
		padded = append(padded, 0)
	}

	words := make([]uint32, 0, 2+len(padded)/4)
	words = append(words, uint32(2+len(padded)/4), uint32(len(plist)))
	for i := 0; i < len(padded); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(padded[i:]))
	}
	return words
}

// LongPacket frames a payload as a long packet with the given shifted data
// id.
func LongPacket(dataID uint32, payload ...uint32) []uint32 {
	hdr := dataID<<packet.DataIDShift | uint32(1+len(payload))
	return append([]uint32{hdr}, payload...)
}

// ShortPacket builds a short packet: the record's 18 low bits inline in the
// header word, under the given shifted data id.
func ShortPacket(dataID uint32, record uint32) []uint32 {
	return []uint32{1<<31 | dataID<<packet.DataIDShift | record&0x3FFFF}
}

// Bytes serializes packets to the little-endian stream encoding.
func Bytes(packets ...[]uint32) []byte {
	var buf bytes.Buffer
	for _, p := range packets {
		for _, w := range p {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], w)
			buf.Write(b[:])
		}
	}
	return buf.Bytes()
}

// WriteStream writes packets to a stream file, compressing by suffix (".gz"
// gzip, ".sz" snappy) the same way the streamer decompresses on read.
func WriteStream(path string, packets ...[]uint32) error {
	raw := Bytes(packets...)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating stream file")
	}
	defer func() {
		_ = f.Close()
	}()

	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(f)
		if _, err := zw.Write(raw); err != nil {
			return err
		}
		return zw.Close()
	case strings.HasSuffix(path, ".sz"):
		sw := snappy.NewBufferedWriter(f)
		if _, err := sw.Write(raw); err != nil {
			return err
		}
		return sw.Close()
	default:
		_, err := f.Write(raw)
		return err
	}
}

// EventTrace is one per-channel section of a synthetic waveform event.
type EventTrace struct {
	Channel   uint16
	Baseline  uint16
	DaqEnergy uint16
	Samples   []uint16
}

// EventPayload packs a waveform event payload: event number, PPS second and
// clock ticks, trace count, then each trace's half-word pairs and packed
// samples.
func EventPayload(eventnumber, tsPPS, tsTicks uint32, traces ...EventTrace) []uint32 {
	words := []uint32{eventnumber, tsPPS, tsTicks, uint32(len(traces))}
	for _, tr := range traces {
		words = append(words,
			uint32(tr.Channel)|uint32(len(tr.Samples))<<16,
			uint32(tr.Baseline)|uint32(tr.DaqEnergy)<<16)
		for i := 0; i < len(tr.Samples); i += 2 {
			w := uint32(tr.Samples[i])
			if i+1 < len(tr.Samples) {
				w |= uint32(tr.Samples[i+1]) << 16
			}
			words = append(words, w)
		}
	}
	return words
}

// StatusCard is one card block of a synthetic status payload.
type StatusCard struct {
	Environment [16]uint32
	TotalErrors uint32
	EnvErrors   uint32
	CTIErrors   uint32
	LinkErrors  uint32
	OtherErrors [5]uint32
}

// StatusPayload packs a status payload: the status word, three sec/usec
// pairs, card count and block size, then one block per card.
func StatusPayload(status uint32, sec, usec uint32, cards ...StatusCard) []uint32 {
	const blockWords = 25
	words := []uint32{status, sec, usec, sec, usec, sec, usec, uint32(len(cards)), blockWords}
	for _, c := range cards {
		words = append(words, c.Environment[:]...)
		words = append(words, c.TotalErrors, c.EnvErrors, c.CTIErrors, c.LinkErrors)
		words = append(words, c.OtherErrors[:]...)
	}
	return words
}
