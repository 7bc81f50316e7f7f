// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ssailer/legend-daq2lh5/flashcam"
	"github.com/ssailer/legend-daq2lh5/orca/orcatest"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
)

// recordingLogger captures formatted log lines by level.
type recordingLogger struct {
	warns []string
	infos []string
}

func (l *recordingLogger) Error(args ...interface{}) {}
func (l *recordingLogger) Warn(args ...interface{})  {}
func (l *recordingLogger) Info(args ...interface{})  {}
func (l *recordingLogger) Debug(args ...interface{}) {}

func (l *recordingLogger) Errorf(f string, args ...interface{}) {}
func (l *recordingLogger) Debugf(f string, args ...interface{}) {}

func (l *recordingLogger) Warnf(f string, args ...interface{}) {
	l.warns = append(l.warns, fmt.Sprintf(f, args...))
}

func (l *recordingLogger) Infof(f string, args ...interface{}) {
	l.infos = append(l.infos, fmt.Sprintf(f, args...))
}

func countContaining(lines []string, substr string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

var _ = Describe("ReadPacket", func() {
	var dir string
	var s *Streamer

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "orcaread-")
		Expect(err).ToNot(HaveOccurred())
		s = NewStreamer(nil)
	})

	AfterEach(func() {
		if s.src != nil {
			Expect(s.Close()).To(Succeed())
		}
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	open := func(bufferSize int, packets ...[]uint32) {
		path := filepath.Join(dir, "stream.orca")
		all := append([][]uint32{streamHeader()}, packets...)
		Expect(orcatest.WriteStream(path, all...)).To(Succeed())
		_, err := s.OpenStream(path, nil, bufferSize)
		Expect(err).ToNot(HaveOccurred())
	}

	runRows := func() *rawbuf.RawBuffer {
		return s.Library()[RunDecoderName].Primary()
	}

	It("decodes a packet into its buffer", func() {
		open(16, runPacket(7))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		rb := runRows()
		Expect(rb.Loc).To(Equal(1))
		Expect(rb.Table.Col("run").U32(0)).To(BeEquivalentTo(7))
		Expect(rb.Table.Col("packet_id").U32(0)).To(BeEquivalentTo(1))

		By("reporting EOF afterwards")
		ok, err = s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("skips past ids the header never declared", func() {
		open(16,
			orcatest.LongPacket(strayID, 1, 2, 3),
			runPacket(7))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		By("landing on the decodable packet")
		Expect(runRows().Loc).To(Equal(1))
		Expect(s.PacketID()).To(Equal(2))
	})

	It("skips short packets of unknown ids", func() {
		open(16,
			orcatest.ShortPacket(strayID, 3),
			runPacket(7))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(runRows().Loc).To(Equal(1))
	})

	It("skips ids declared without an implementation", func() {
		open(16,
			orcatest.LongPacket(ghostID, 1, 2),
			orcatest.LongPacket(ghostID, 3, 4),
			runPacket(7))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(runRows().Loc).To(Equal(1))
	})

	It("absorbs decode failures and keeps reading", func() {
		open(16,
			orcatest.LongPacket(runID, 1), // short of the 3 run words
			runPacket(9))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		rb := runRows()
		Expect(rb.Loc).To(Equal(1))
		Expect(rb.Table.Col("run").U32(0)).To(BeEquivalentTo(9))
	})

	It("logs each skipped id exactly once", func() {
		log := &recordingLogger{}
		s.Logger = log
		open(16,
			orcatest.LongPacket(ghostID, 1, 2),
			orcatest.LongPacket(ghostID, 3, 4),
			orcatest.LongPacket(strayID, 1),
			orcatest.LongPacket(strayID, 2),
			runPacket(7))

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(runRows().Loc).To(Equal(1))

		By("warning once for the unimplemented decoder type")
		Expect(countContaining(log.warns, "ORTest4Decoder")).To(Equal(1))

		By("noting the undeclared id once")
		Expect(countContaining(log.infos, "unknown data id 12")).To(Equal(1))
	})

	It("logs ids without a bound buffer once", func() {
		log := &recordingLogger{}
		s.Logger = log

		runDec := NewRunDecoder()
		schema, err := runDec.DecodedValues(0)
		Expect(err).ToNot(HaveOccurred())
		rb, err := rawbuf.NewRawBuffer(schema, 8, runDec.MaxRowsInPacket())
		Expect(err).ToNot(HaveOccurred())
		lib := rawbuf.Library{RunDecoderName: rawbuf.NewList(rb)}

		path := filepath.Join(dir, "stream.orca")
		Expect(orcatest.WriteStream(path,
			streamHeader(), wfPacket(0), wfPacket(1), runPacket(3))).To(Succeed())
		_, err = s.OpenStream(path, lib, 8)
		Expect(err).ToNot(HaveOccurred())

		ok, err := s.ReadPacket()
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(rb.Loc).To(Equal(1))

		Expect(countContaining(log.infos, "no buffer bound")).To(Equal(1))
	})

	It("tracks buffer fullness", func() {
		open(2, runPacket(1), runPacket(2))

		for i := 0; i < 2; i++ {
			Expect(s.AnyFull()).To(BeFalse())
			ok, err := s.ReadPacket()
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		}
		Expect(s.AnyFull()).To(BeTrue())
	})
})

var _ = Describe("ReadChunk", func() {
	var dir string
	var s *Streamer

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "orcachunk-")
		Expect(err).ToNot(HaveOccurred())
		s = NewStreamer(nil)
	})

	AfterEach(func() {
		if s.src != nil {
			Expect(s.Close()).To(Succeed())
		}
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	open := func(bufferSize int, packets ...[]uint32) {
		path := filepath.Join(dir, "stream.orca")
		all := append([][]uint32{streamHeader()}, packets...)
		Expect(orcatest.WriteStream(path, all...)).To(Succeed())
		_, err := s.OpenStream(path, nil, bufferSize)
		Expect(err).ToNot(HaveOccurred())
	}

	It("hands over one packet at a time in single-packet mode", func() {
		open(16, runPacket(1), runPacket(2))

		bufs, more, err := s.ReadChunk(SinglePacketMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0].Loc).To(Equal(1))

		bufs, more, err = s.ReadChunk(SinglePacketMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs[0].Loc).To(Equal(2))

		By("finishing with whatever is left")
		bufs, more, err = s.ReadChunk(SinglePacketMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(bufs).To(HaveLen(1))
	})

	It("runs to the first full buffer in any-full mode", func() {
		open(2,
			runPacket(1), runPacket(2), runPacket(3))

		bufs, more, err := s.ReadChunk(AnyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0].IsFull()).To(BeTrue())
		Expect(bufs[0].Loc).To(Equal(2))

		By("resuming after an external flush")
		bufs[0].Reset()
		bufs, more, err = s.ReadChunk(AnyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(bufs[0].Loc).To(Equal(1))
		Expect(bufs[0].Table.Col("run").U32(0)).To(BeEquivalentTo(3))
	})

	It("withholds partial buffers in only-full mode until EOF", func() {
		packets := [][]uint32{wfPacket(0)}
		for i := 0; i < 8; i++ {
			packets = append(packets, runPacket(uint32(i)))
		}
		open(8, packets...)

		// The run buffer fills; the waveform buffer holds one row and
		// stays behind.
		bufs, more, err := s.ReadChunk(OnlyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0].Name).To(Equal(RunDecoderName))
		bufs[0].Reset()

		By("handing the partial buffer back at EOF")
		bufs, more, err = s.ReadChunk(OnlyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0].Name).To(Equal(flashcam.WaveformDecoderName))
		Expect(bufs[0].Loc).To(Equal(1))
	})

	It("completes a chunk before a burst could overrun a buffer", func() {
		// Capacity 6 is not a multiple of the 4-row event burst; the chunk
		// must end at 4 rows, not run the next event into rows 6 and 7.
		open(6, wfPacket(0, 1, 2, 3), wfPacket(0, 1, 2, 3))

		wf := s.Library()[flashcam.WaveformDecoderName].Primary()
		Expect(wf.Table.Capacity()).To(Equal(6))

		bufs, more, err := s.ReadChunk(AnyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0]).To(BeIdenticalTo(wf))
		Expect(wf.Loc).To(Equal(4))
		Expect(wf.IsFull()).To(BeTrue())
		wf.Reset()

		By("fitting the next burst after a flush")
		_, more, err = s.ReadChunk(AnyFullMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(wf.Loc).To(Equal(4))
	})

	It("decodes waveform events end to end", func() {
		open(16, wfPacket(0, 2))

		bufs, more, err := s.ReadChunk(SinglePacketMode)
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(bufs).To(HaveLen(1))

		rb := bufs[0]
		Expect(rb.Name).To(Equal(flashcam.WaveformDecoderName))
		Expect(rb.Loc).To(Equal(2))
		Expect(rb.Table.Col("channel").U32(0)).To(BeEquivalentTo(0))
		Expect(rb.Table.Col("channel").U32(1)).To(BeEquivalentTo(2))
		Expect(rb.Table.Col("waveform").RowU16(0)[:4]).To(Equal([]uint16{1, 2, 3, 4}))
	})
})
