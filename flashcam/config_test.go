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
	"github.com/ssailer/legend-daq2lh5/table"
)

func singleBuffer(d interface {
	DecodedValues(key int) (table.Schema, error)
	MaxRowsInPacket() int
}, capacity int) (*rawbuf.RawBuffer, *rawbuf.List) {
	schema, err := d.DecodedValues(0)
	Expect(err).ToNot(HaveOccurred())
	rb, err := rawbuf.NewRawBuffer(schema, capacity, d.MaxRowsInPacket())
	Expect(err).ToNot(HaveOccurred())
	return rb, rawbuf.NewList(rb)
}

var _ = Describe("ConfigDecoder", func() {
	var d *ConfigDecoder

	BeforeEach(func() {
		d = NewConfigDecoder()
	})

	It("declares one unkeyed row per packet", func() {
		Expect(d.KeyLists()).To(Equal([][]int{nil}))
		Expect(d.MaxRowsInPacket()).To(Equal(1))
	})

	It("decodes the configuration scalars and trace map", func() {
		payload := []uint32{
			1024, // nsamples
			6,    // nadcs
			1,    // ntriggers
			0,    // telid
			16,   // adcbits
			128,  // sumlength
			6,    // blprecision
			1,    // mastercards
			1,    // triggercards
			2,    // adccards
			1,    // gps
			0x100, 0x101, 0x102, // tracemap
		}
		p := packet.P(orcatest.LongPacket(4, payload...))
		rb, list := singleBuffer(d, 4)

		full, err := d.DecodePacket(p, list, 17)
		Expect(err).ToNot(HaveOccurred())
		Expect(full).To(BeFalse())
		Expect(rb.Loc).To(Equal(1))

		Expect(rb.Table.Col("packet_id").U32(0)).To(BeEquivalentTo(17))
		Expect(rb.Table.Col("nsamples").I32(0)).To(BeEquivalentTo(1024))
		Expect(rb.Table.Col("nadcs").I32(0)).To(BeEquivalentTo(6))
		Expect(rb.Table.Col("adcbits").I32(0)).To(BeEquivalentTo(16))
		Expect(rb.Table.Col("gps").I32(0)).To(BeEquivalentTo(1))
		Expect(rb.Table.Col("tracemap").Vec32(0)).To(Equal([]uint32{0x100, 0x101, 0x102}))

		By("remembering the channel geometry")
		Expect(d.NSamples()).To(BeEquivalentTo(1024))
		Expect(d.NAdcs()).To(BeEquivalentTo(6))
	})

	It("rejects a payload without all scalars", func() {
		p := packet.P(orcatest.LongPacket(4, 1, 2, 3))
		_, list := singleBuffer(d, 4)

		_, err := d.DecodePacket(p, list, 0)
		Expect(err).To(HaveOccurred())
	})
})
