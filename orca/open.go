// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/decoder"
	"github.com/ssailer/legend-daq2lh5/orca/header"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
)

// DefaultBufferSize is the row capacity used for raw buffers when the
// caller does not specify one.
const DefaultBufferSize = 8192

// OpenStream initializes the ORCA data stream.
//
// It opens the file, parses the header packet, builds the decoder dispatch
// table from the header's dataDescription (restricted to the caller's
// library when one is given), binds each instantiated decoder to its buffer
// list, and returns the filled header buffer.
//
// When lib is nil a default library is synthesized: one wildcard buffer per
// decoder type, with row capacity bufferSize, named after the decoder type.
func (s *Streamer) OpenStream(path string, lib rawbuf.Library, bufferSize int) ([]*rawbuf.RawBuffer, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if s.Decoders == nil {
		s.Decoders = DefaultDecoders()
	}

	if err := s.setInStream(path); err != nil {
		return nil, err
	}
	s.packetID = -1
	s.packetLocs = nil
	s.decoderIDs = make(map[uint32]decoder.Decoder)
	s.rblIDs = make(map[uint32]*rawbuf.List)
	s.missing = make(map[uint32]bool)
	s.skippedUnknown = make(map[uint32]bool)
	s.skippedUnbound = make(map[uint32]bool)
	s.anyFull = false

	// The header must be the first packet.
	pkt, err := s.LoadPacket()
	if err != nil {
		return nil, err
	}
	if pkt == nil {
		return nil, errors.Errorf("no orca data in file %s", path)
	}
	h, err := s.headerDecoder.DecodeHeader(pkt)
	if err != nil {
		return nil, err
	}
	s.hdr = h

	// Find the names of all decoders listed in the header AND in the
	// caller's library, if one was given.
	declared := h.DecoderNames()
	wanted := declared
	if lib != nil {
		wanted = nil
		for _, name := range declared {
			if _, ok := lib[name]; ok {
				wanted = append(wanted, name)
			}
		}
		for _, name := range lib.Names() {
			if name == header.DecoderName {
				continue
			}
			if !containsName(wanted, name) {
				s.log().Warnf("decoder %s (requested in the buffer library) not in data description in header", name)
			}
		}
	}

	// Instantiate each decoder type exactly once, shared across all data
	// ids that map to it; record ids whose type has no implementation.
	idToName := h.IDToDecoderName(false)
	instantiated := map[string]decoder.Decoder{header.DecoderName: s.headerDecoder}
	for id, name := range idToName {
		dec, ok := instantiated[name]
		if !ok {
			factory, known := s.Decoders[name]
			if !known {
				s.missing[id] = false
				continue
			}
			dec = factory(h)
			instantiated[name] = dec
		}
		s.decoderIDs[id] = dec
	}

	if lib == nil {
		lib, err = s.defaultLibrary(wanted, instantiated, bufferSize)
		if err != nil {
			return nil, err
		}
	}
	s.lib = lib

	// Bind each instantiated decoder to the buffer list matching its type
	// name; data ids without a list are skipped at decode time.
	bound := make(map[string]bool)
	for id := range s.decoderIDs {
		name := idToName[id]
		l, ok := lib[name]
		if !ok {
			s.log().Infof("skipping data from %s", name)
			continue
		}
		s.rblIDs[id] = l
		bound[name] = true
	}
	for _, name := range lib.Names() {
		if name == header.DecoderName {
			continue
		}
		if !bound[name] {
			s.log().Warnf("buffer for %s has no decoder", name)
		}
	}

	// Fill and return the header buffer.
	headerRB, err := s.headerBuffer(lib)
	if err != nil {
		return nil, err
	}
	if col := headerRB.Table.Col("header"); col != nil {
		col.SetStr(0, h.JSON())
	}
	headerRB.Loc = 1
	return []*rawbuf.RawBuffer{headerRB}, nil
}

// defaultLibrary synthesizes one wildcard buffer per wanted decoder type,
// named after the type and routing every source key to it.
func (s *Streamer) defaultLibrary(names []string, instantiated map[string]decoder.Decoder, bufferSize int) (rawbuf.Library, error) {
	lib := rawbuf.Library{}
	for _, name := range names {
		dec, ok := instantiated[name]
		if !ok {
			continue
		}

		key := 0
		if kls := dec.KeyLists(); len(kls) > 0 && len(kls[0]) > 0 {
			key = kls[0][0]
		}
		schema, err := dec.DecodedValues(key)
		if err != nil {
			return nil, errors.Wrapf(err, "schema for %s", name)
		}

		capacity := bufferSize
		if safety := dec.MaxRowsInPacket(); safety > capacity {
			// Preallocate conservatively: a single decode call must fit.
			capacity = safety
		}
		rb, err := rawbuf.NewRawBuffer(schema, capacity, dec.MaxRowsInPacket())
		if err != nil {
			return nil, errors.Wrapf(err, "buffer for %s", name)
		}
		rb.Name = name
		rb.OutStream = name
		lib[name] = rawbuf.NewList(rb)
	}
	return lib, nil
}

// headerBuffer resolves the buffer the header row is written to: the
// caller's, if the library routes the header decoder, otherwise a fresh
// single-row buffer.
func (s *Streamer) headerBuffer(lib rawbuf.Library) (*rawbuf.RawBuffer, error) {
	if l, ok := lib[header.DecoderName]; ok && l.Primary() != nil {
		if len(l.Buffers()) != 1 {
			s.log().Warnf("header buffer list had length %d, ignoring all but the first", len(l.Buffers()))
		}
		return l.Primary(), nil
	}

	schema, err := s.headerDecoder.DecodedValues(0)
	if err != nil {
		return nil, err
	}
	rb, err := rawbuf.NewRawBuffer(schema, 1, 1)
	if err != nil {
		return nil, err
	}
	rb.Name = header.DecoderName
	return rb, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
