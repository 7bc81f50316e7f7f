// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Large buffer size (4MB), good for reading compressed files.
const sourceBufferSize = 1024 * 1024 * 4

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionSnappy
)

// compressionForPath picks the transparent decompression to apply to an
// input file, by suffix.
func compressionForPath(path string) compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return compressionGzip
	case strings.HasSuffix(path, ".sz"):
		return compressionSnappy
	default:
		return compressionNone
	}
}

// source is the streamer's one owned byte source: a local file, optionally
// transparently decompressed.
//
// Positions and seeks are in the decompressed byte stream. Plain files seek
// natively; decompressed sources seek forward by discarding and seek
// backward by rewinding the file and rescanning, which the packet-offset
// index makes affordable (backward seeks land on known packet boundaries).
type source struct {
	f    *os.File
	comp compression

	r   io.Reader
	br  *bufio.Reader
	gz  *gzip.Reader
	sz  *snappy.Reader
	pos int64
}

func openSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening stream")
	}

	s := &source{f: f, comp: compressionForPath(path)}
	if err := s.reset(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// reset rewinds the underlying file and rebuilds the read chain at
// decompressed position zero.
func (s *source) reset() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewinding stream")
	}
	s.pos = 0

	switch s.comp {
	case compressionNone:
		s.r = s.f
		return nil

	case compressionGzip:
		if s.br == nil {
			s.br = bufio.NewReaderSize(s.f, sourceBufferSize)
		} else {
			s.br.Reset(s.f)
		}
		if s.gz == nil {
			gz, err := gzip.NewReader(s.br)
			if err != nil {
				return errors.Wrap(err, "creating gzip reader")
			}
			s.gz = gz
		} else if err := s.gz.Reset(s.br); err != nil {
			return errors.Wrap(err, "resetting gzip reader")
		}
		s.r = s.gz
		return nil

	case compressionSnappy:
		if s.br == nil {
			s.br = bufio.NewReaderSize(s.f, sourceBufferSize)
		} else {
			s.br.Reset(s.f)
		}
		if s.sz == nil {
			s.sz = snappy.NewReader(s.br)
		} else {
			s.sz.Reset(s.br)
		}
		s.r = s.sz
		return nil

	default:
		return errors.Errorf("unknown compression: %d", s.comp)
	}
}

func (s *source) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.pos += int64(n)
	return n, err
}

// Tell returns the current decompressed byte position.
func (s *source) Tell() int64 { return s.pos }

// Seek repositions the source within the decompressed stream. Only
// io.SeekStart and io.SeekCurrent are supported; the end of a compressed
// stream is unknowable without scanning, and nothing here needs it.
func (s *source) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	default:
		return s.pos, errors.Errorf("invalid seek whence: %d", whence)
	}
	if target < 0 {
		return s.pos, errors.Errorf("seek to negative offset %d", target)
	}

	if s.comp == compressionNone {
		if _, err := s.f.Seek(target, io.SeekStart); err != nil {
			return s.pos, err
		}
		s.pos = target
		return s.pos, nil
	}

	if target < s.pos {
		if err := s.reset(); err != nil {
			return s.pos, err
		}
	}
	if err := s.discard(target - s.pos); err != nil {
		return s.pos, err
	}
	return s.pos, nil
}

func (s *source) discard(n int64) error {
	if n == 0 {
		return nil
	}
	amt, err := io.CopyN(io.Discard, s.r, n)
	s.pos += amt
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "discarding")
	}
	if amt != n {
		return errors.Errorf("seek past end of stream (wanted %d more bytes, got %d)", n, amt)
	}
	return nil
}

func (s *source) Close() error { return s.f.Close() }
