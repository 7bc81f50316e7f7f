// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/support/fmtutil"
)

// ChunkMode selects the completion condition for ReadChunk.
type ChunkMode int

const (
	// AnyFullMode completes a chunk as soon as any buffer is full.
	AnyFullMode ChunkMode = iota
	// OnlyFullMode completes like AnyFullMode but only hands back buffers
	// that are actually full (partial buffers wait for EOF).
	OnlyFullMode
	// SinglePacketMode completes after every decoded packet.
	SinglePacketMode
)

// ReadPacket reads packets until one is decoded into a buffer or EOF.
//
// Packets whose data id has no registered decoder are seeked past; ids
// declared in the header but lacking a decoder implementation are warned
// once and skipped forever after; ids with a decoder but no bound buffer
// list are info-logged once and skipped. The decode's "any touched buffer is
// now full" result ORs into AnyFull. The return reports whether more data
// may follow (false at EOF).
func (s *Streamer) ReadPacket() (bool, error) {
	for {
		pkt, err := s.loadPacket(0, false, 0, true)
		if err != nil {
			return false, err
		}
		if pkt == nil {
			return false, nil
		}

		dataID := packet.DataID(pkt.Header(), false)

		if warned, isMissing := s.missing[dataID]; isMissing {
			if !warned {
				name := s.hdr.IDToDecoderName(false)[dataID]
				s.log().Warnf("no implementation of %s, packets were skipped", name)
				s.missing[dataID] = true
			}
			streamerPacketsSkipped.WithLabelValues(skipReasonMissingDecoder).Inc()
			continue
		}

		dec, ok := s.decoderIDs[dataID]
		if !ok {
			if !s.skippedUnknown[dataID] {
				s.skippedUnknown[dataID] = true
				s.log().Infof("skipping packets with unknown data id %d", packet.DataID(pkt.Header(), true))
			}
			streamerPacketsSkipped.WithLabelValues(skipReasonUnknownID).Inc()
			continue
		}

		rbl, ok := s.rblIDs[dataID]
		if !ok {
			if !s.skippedUnbound[dataID] {
				s.skippedUnbound[dataID] = true
				s.log().Infof("no buffer bound for data id %d, dropping its packets", packet.DataID(pkt.Header(), true))
			}
			streamerPacketsSkipped.WithLabelValues(skipReasonNoBuffer).Inc()
			continue
		}

		full, err := dec.DecodePacket(pkt, rbl, s.packetID)
		if err != nil {
			// Malformed payloads degrade, they do not kill the stream: the
			// packet's data simply never appears in a buffer.
			s.log().Errorf("decode of packet %d failed: %s", s.packetID, err)
			s.log().Debugf("packet %d words: %s", s.packetID, fmtutil.Words([]uint32(pkt)))
			streamerDecodeErrors.Inc()
			continue
		}
		if full {
			streamerBuffersFilled.Inc()
		}
		s.anyFull = s.anyFull || full
		return true, nil
	}
}

// ReadChunk reads packets until the chunk-completion condition for mode is
// met and returns the buffers the external writer should flush. The writer
// resets each buffer after persisting it.
//
// The second return reports whether more data may follow; once it is false,
// every returned buffer (full or not) is final.
func (s *Streamer) ReadChunk(mode ChunkMode) ([]*rawbuf.RawBuffer, bool, error) {
	s.anyFull = false

	more := true
	for {
		ok, err := s.ReadPacket()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			more = false
			break
		}
		if mode == SinglePacketMode || s.anyFull {
			break
		}
	}

	var out []*rawbuf.RawBuffer
	for _, rb := range s.lib.Buffers() {
		if rb.Loc == 0 {
			continue
		}
		if mode == OnlyFullMode && more && !rb.IsFull() {
			continue
		}
		out = append(out, rb)
	}
	return out, more, nil
}
