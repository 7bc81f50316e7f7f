// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package orca implements the ORCA binary packet streamer: packet-granular
// sequential and random-access reads over a byte stream, a lazily built
// packet-offset index, and the decode loop that dispatches packets to
// decoders and fills raw buffers.
package orca

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/decoder"
	"github.com/ssailer/legend-daq2lh5/orca/header"
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
	"github.com/ssailer/legend-daq2lh5/support/dataio"
	"github.com/ssailer/legend-daq2lh5/support/logging"
)

// initialBufferWords sizes the reusable packet buffer at open (4 kB).
const initialBufferWords = 1024

// DecoderFactory instantiates a decoder for a decoder-type name declared in
// the stream header.
type DecoderFactory func(h *header.Header) decoder.Decoder

// ErrNotOpen is returned when an operation requires an open stream.
var ErrNotOpen = errors.New("stream is not open")

// Streamer reads an ORCA packet stream.
//
// Streamer owns its byte source and one reusable packet buffer; packets
// returned by the load methods are views of that buffer, valid only until
// the next load. It is not safe for concurrent use.
type Streamer struct {
	// Logger, if not nil, logs stream events.
	Logger logging.L

	// Decoders maps decoder-type names to constructors. It is the explicit
	// registration table consulted when the header's dataDescription is
	// bound at open; names absent from it become "missing decoders". If
	// nil, DefaultDecoders() is used.
	Decoders map[string]DecoderFactory

	src *source

	// buf is the reusable packet word buffer; raw is the byte scratch the
	// payload is read into before word conversion.
	buf []uint32
	raw []byte

	// packetID counts packets read so far, starting at -1.
	packetID int

	// packetLocs[i] is the byte offset of packet i. Offsets never change
	// once recorded.
	packetLocs []int64

	nBytesRead int64

	headerDecoder *header.Decoder
	hdr           *header.Header

	// decoderIDs maps the unshifted data id sub-field to its decoder.
	decoderIDs map[uint32]decoder.Decoder
	// rblIDs maps the unshifted data id to the buffer list it feeds.
	rblIDs map[uint32]*rawbuf.List
	// missing records data ids declared in the header whose decoder type
	// has no implementation; the value is whether we warned yet.
	missing map[uint32]bool
	// skippedUnknown and skippedUnbound record once-per-id logging for the
	// other recoverable skip categories.
	skippedUnknown map[uint32]bool
	skippedUnbound map[uint32]bool

	lib     rawbuf.Library
	anyFull bool
}

// NewStreamer returns a Streamer ready for OpenStream.
func NewStreamer(logger logging.L) *Streamer {
	return &Streamer{
		Logger:        logger,
		buf:           make([]uint32, initialBufferWords),
		packetID:      -1,
		headerDecoder: header.NewDecoder(),
	}
}

func (s *Streamer) log() logging.L { return logging.Must(s.Logger) }

// Header returns the parsed stream header, or nil before OpenStream.
func (s *Streamer) Header() *header.Header { return s.hdr }

// PacketID returns the id of the most recently loaded packet (-1 before the
// first).
func (s *Streamer) PacketID() int { return s.packetID }

// BytesRead returns the number of stream bytes consumed so far.
func (s *Streamer) BytesRead() int64 { return s.nBytesRead }

// Library returns the raw buffer library bound at open.
func (s *Streamer) Library() rawbuf.Library { return s.lib }

// AnyFull reports whether any decode since the last ReadChunk filled a
// buffer.
func (s *Streamer) AnyFull() bool { return s.anyFull }

// DecoderList returns the instantiated decoders, keyed by unshifted data id.
func (s *Streamer) DecoderList() map[uint32]decoder.Decoder { return s.decoderIDs }

// setInStream connects the streamer to a file, transparently decompressing
// by suffix.
func (s *Streamer) setInStream(path string) error {
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			return err
		}
		s.src = nil
	}
	src, err := openSource(path)
	if err != nil {
		return err
	}
	s.src = src
	s.nBytesRead = 0
	return nil
}

// Close closes the input stream. Closing a never-opened stream is a caller
// error.
func (s *Streamer) Close() error {
	if s.src == nil {
		return errors.New("tried to close an unopened stream")
	}
	err := s.src.Close()
	s.src = nil
	return err
}

// loadPacketHeader reads the 4-byte packet header at the current location.
//
// A read of zero bytes is EOF and returns ok=false without an error; a read
// of 1-3 bytes means the stream is truncated mid-header and is fatal. On
// success the packet counter advances and the packet's byte offset is
// validated against the index (recorded offsets must never change, and the
// counter must never skip an index entry).
func (s *Streamer) loadPacketHeader() (hdr uint32, ok bool, err error) {
	if s.src == nil {
		return 0, false, ErrNotOpen
	}

	var b [4]byte
	n, err := dataio.ReadFull(s.src, b[:])
	s.nBytesRead += int64(n)
	streamerBytesRead.Add(float64(n))
	if err != nil {
		return 0, false, errors.Wrap(err, "reading packet header")
	}
	if n == 0 {
		return 0, false, nil
	}
	if n != 4 {
		return 0, false, errors.Errorf("only got %d bytes for packet header", n)
	}

	s.packetID++
	streamerPacketsRead.Inc()
	filepos := s.src.Tell() - 4
	if s.packetID < len(s.packetLocs) {
		if s.packetLocs[s.packetID] != filepos {
			return 0, false, errors.Errorf(
				"filepos for packet %d was %d but %d was expected",
				s.packetID, filepos, s.packetLocs[s.packetID])
		}
	} else {
		if len(s.packetLocs) != s.packetID {
			return 0, false, errors.Errorf(
				"loaded packet %d after packet %d", s.packetID, len(s.packetLocs)-1)
		}
		s.packetLocs = append(s.packetLocs, filepos)
	}
	return binary.LittleEndian.Uint32(b[:]), true, nil
}

// SkipPackets advances past n packets without buffering their payloads.
//
// It returns false the moment EOF is hit, even mid-count. A negative n is
// rejected.
func (s *Streamer) SkipPackets(n int) (bool, error) {
	if s.src == nil {
		return false, ErrNotOpen
	}
	if n < 0 {
		return false, errors.Errorf("n must be non-negative, can't be %d", n)
	}

	for ; n > 0; n-- {
		hdr, ok, err := s.loadPacketHeader()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if !packet.IsShort(hdr) {
			if _, err := s.src.Seek(int64(packet.NWords(hdr)-1)*4, io.SeekCurrent); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// BuildPacketLocs scans forward from the last indexed packet to EOF, filling
// in all remaining offsets. If keepPos is set, the read cursor and packet
// counter are restored afterwards.
func (s *Streamer) BuildPacketLocs(keepPos bool) error {
	if s.src == nil {
		return ErrNotOpen
	}

	loc := s.src.Tell()
	pid := s.packetID
	if len(s.packetLocs) > 0 {
		if _, err := s.src.Seek(s.packetLocs[len(s.packetLocs)-1], io.SeekStart); err != nil {
			return err
		}
		s.packetID = len(s.packetLocs) - 2
	}

	for {
		ok, err := s.SkipPackets(1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}

	if keepPos {
		if _, err := s.src.Seek(loc, io.SeekStart); err != nil {
			return err
		}
		s.packetID = pid
	}
	return nil
}

// CountPackets builds the full index and returns the total packet count.
func (s *Streamer) CountPackets(keepPos bool) (int, error) {
	if err := s.BuildPacketLocs(keepPos); err != nil {
		return 0, err
	}
	return len(s.packetLocs), nil
}

// LoadPacket loads the next packet into the internal buffer and returns it
// as a view. It returns (nil, nil) at EOF.
//
// The returned packet is valid only until the next load; callers that need
// to retain it must use packet.P.Copy.
func (s *Streamer) LoadPacket() (packet.P, error) {
	return s.loadPacket(0, false, 0, false)
}

// LoadPacketAt seeks to the packet resolved from index and whence
// (io.SeekStart, io.SeekCurrent or io.SeekEnd) and loads it.
//
// A current-relative index resolves against the packet counter; an
// end-relative index forces a full index build first. A resolution below
// zero rewinds the stream to the very beginning and returns (nil, nil)
// rather than failing; a resolution past EOF also returns (nil, nil).
func (s *Streamer) LoadPacketAt(index int, whence int) (packet.P, error) {
	return s.loadPacket(index, true, whence, false)
}

func (s *Streamer) loadPacket(index int, hasIndex bool, whence int, skipUnknown bool) (packet.P, error) {
	if s.src == nil {
		return nil, ErrNotOpen
	}

	if hasIndex {
		switch whence {
		case io.SeekStart:
		case io.SeekCurrent:
			index += s.packetID - 1
		case io.SeekEnd:
			if err := s.BuildPacketLocs(false); err != nil {
				return nil, err
			}
			index += len(s.packetLocs) - 2
		default:
			return nil, errors.Errorf("whence can't be %d", whence)
		}

		if index < 0 {
			if _, err := s.src.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			s.packetID = -1
			return nil, nil
		}
		for index >= len(s.packetLocs) {
			ok, err := s.SkipPackets(1)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}
		if _, err := s.src.Seek(s.packetLocs[index], io.SeekStart); err != nil {
			return nil, err
		}
		s.packetID = index - 1
	}

	hdr, ok, err := s.loadPacketHeader()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.buf[0] = hdr

	// A short packet is complete: header word only.
	if packet.IsShort(hdr) {
		return packet.P(s.buf[:1]), nil
	}

	nWords := int(packet.NWords(hdr))
	if nWords < 1 {
		return nil, errors.Errorf("packet %d declares zero words", s.packetID)
	}

	// A long packet whose data id has no registered decoder can be seeked
	// past instead of buffered; the caller gets the header-only view.
	if skipUnknown {
		if _, known := s.decoderIDs[packet.DataID(hdr, false)]; !known {
			if _, err := s.src.Seek(int64(nWords-1)*4, io.SeekCurrent); err != nil {
				return nil, err
			}
			return packet.P(s.buf[:1]), nil
		}
	}

	if len(s.buf) < nWords {
		grown := make([]uint32, nWords)
		grown[0] = hdr
		s.buf = grown
	}
	payloadBytes := (nWords - 1) * 4
	if len(s.raw) < payloadBytes {
		s.raw = make([]byte, payloadBytes)
	}

	n, err := dataio.ReadFull(s.src, s.raw[:payloadBytes])
	s.nBytesRead += int64(n)
	streamerBytesRead.Add(float64(n))
	if err != nil {
		return nil, errors.Wrap(err, "reading packet payload")
	}
	if n != payloadBytes {
		// The remainder of the stream cannot be trusted; report EOF so the
		// caller flushes what it has.
		s.log().Errorf(
			"only got %d bytes for packet read when %d were expected. Flushing all buffers and quitting...",
			n, payloadBytes)
		return nil, nil
	}

	for i := 1; i < nWords; i++ {
		s.buf[i] = binary.LittleEndian.Uint32(s.raw[(i-1)*4:])
	}
	return packet.P(s.buf[:nWords]), nil
}
