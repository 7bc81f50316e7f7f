// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package flashcam

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ssailer/legend-daq2lh5/orca/orcatest"
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
)

var _ = Describe("WaveformDecoder", func() {
	var d *WaveformDecoder

	BeforeEach(func() {
		d = NewWaveformDecoder(WaveformConfig{
			WaveformLen: 8,
			NumChannels: 4,
		})
	})

	event := func(traces ...orcatest.EventTrace) packet.P {
		payload := orcatest.EventPayload(3, 1700000000, 125000000, traces...)
		return packet.P(orcatest.LongPacket(6, payload...))
	}

	It("declares one key group covering every channel", func() {
		Expect(d.KeyLists()).To(Equal([][]int{{0, 1, 2, 3}}))
		Expect(d.MaxRowsInPacket()).To(Equal(4))
	})

	It("writes one row per triggered channel", func() {
		rb, list := singleBuffer(d, 8)

		full, err := d.DecodePacket(event(
			orcatest.EventTrace{Channel: 1, Baseline: 100, DaqEnergy: 700, Samples: []uint16{10, 11, 12, 13}},
			orcatest.EventTrace{Channel: 3, Baseline: 90, DaqEnergy: 400, Samples: []uint16{20, 21, 22}},
		), list, 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(full).To(BeFalse())
		Expect(rb.Loc).To(Equal(2))

		By("carrying the event scalars on both rows")
		for row := 0; row < 2; row++ {
			Expect(rb.Table.Col("packet_id").U32(row)).To(BeEquivalentTo(5))
			Expect(rb.Table.Col("eventnumber").I32(row)).To(BeEquivalentTo(3))
			Expect(rb.Table.Col("ts_pps").I32(row)).To(BeEquivalentTo(1700000000))
			Expect(rb.Table.Col("ts_ticks").I32(row)).To(BeEquivalentTo(125000000))
			Expect(rb.Table.Col("runtime").F64(row)).To(BeNumerically("~", 1700000000.5, 1e-6))
			Expect(rb.Table.Col("numtraces").I32(row)).To(BeEquivalentTo(2))
			Expect(rb.Table.Col("tracelist").Vec16(row)).To(Equal([]uint16{1, 3}))
		}

		By("keeping the per-channel fields apart")
		Expect(rb.Table.Col("channel").U32(0)).To(BeEquivalentTo(1))
		Expect(rb.Table.Col("baseline").U16(0)).To(BeEquivalentTo(100))
		Expect(rb.Table.Col("daqenergy").U16(0)).To(BeEquivalentTo(700))
		Expect(rb.Table.Col("nsamples").U16(0)).To(BeEquivalentTo(4))
		Expect(rb.Table.Col("waveform").RowU16(0)).To(Equal(
			[]uint16{10, 11, 12, 13, 0, 0, 0, 0}))

		By("zero-padding an odd-length trace")
		Expect(rb.Table.Col("channel").U32(1)).To(BeEquivalentTo(3))
		Expect(rb.Table.Col("nsamples").U16(1)).To(BeEquivalentTo(3))
		Expect(rb.Table.Col("waveform").RowU16(1)).To(Equal(
			[]uint16{20, 21, 22, 0, 0, 0, 0, 0}))
	})

	It("routes rows by channel and drops unrouted ones", func() {
		schema, err := d.DecodedValues(0)
		Expect(err).ToNot(HaveOccurred())
		rb, err := rawbuf.NewRawBuffer(schema, 8, d.MaxRowsInPacket())
		Expect(err).ToNot(HaveOccurred())
		rb.KeyList = []int{2}
		list := rawbuf.NewList(rb)

		_, err = d.DecodePacket(event(
			orcatest.EventTrace{Channel: 1, Samples: []uint16{1, 2}},
			orcatest.EventTrace{Channel: 2, Samples: []uint16{3, 4}},
		), list, 0)
		Expect(err).ToNot(HaveOccurred())

		Expect(rb.Loc).To(Equal(1))
		Expect(rb.Table.Col("channel").U32(0)).To(BeEquivalentTo(2))
	})

	It("reports a filled buffer", func() {
		rb, list := singleBuffer(d, 4)

		full, err := d.DecodePacket(event(
			orcatest.EventTrace{Channel: 0, Samples: []uint16{1}},
			orcatest.EventTrace{Channel: 1, Samples: []uint16{1}},
			orcatest.EventTrace{Channel: 2, Samples: []uint16{1}},
			orcatest.EventTrace{Channel: 3, Samples: []uint16{1}},
		), list, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(full).To(BeTrue())
		Expect(rb.IsFull()).To(BeTrue())
	})

	It("rejects malformed events", func() {
		_, list := singleBuffer(d, 8)

		By("a payload below the fixed head")
		_, err := d.DecodePacket(packet.P(orcatest.LongPacket(6, 1, 2)), list, 0)
		Expect(err).To(HaveOccurred())

		By("more traces than channels")
		payload := orcatest.EventPayload(0, 0, 0)
		payload[3] = 5
		_, err = d.DecodePacket(packet.P(orcatest.LongPacket(6, payload...)), list, 0)
		Expect(err).To(HaveOccurred())

		By("a trace longer than the waveform capacity")
		_, err = d.DecodePacket(event(
			orcatest.EventTrace{Channel: 0, Samples: make([]uint16, 9)},
		), list, 0)
		Expect(err).To(HaveOccurred())

		By("truncated sample words")
		trunc := orcatest.EventPayload(0, 0, 0,
			orcatest.EventTrace{Channel: 0, Samples: []uint16{1, 2, 3, 4}})
		_, err = d.DecodePacket(packet.P(orcatest.LongPacket(6, trunc[:len(trunc)-1]...)), list, 0)
		Expect(err).To(HaveOccurred())
	})
})
