// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ssailer/legend-daq2lh5/orca/orcatest"
	"github.com/ssailer/legend-daq2lh5/packet"
	"github.com/ssailer/legend-daq2lh5/rawbuf"
)

var _ = Describe("RunDecoder", func() {
	var d *RunDecoder
	var rb *rawbuf.RawBuffer
	var list *rawbuf.List

	BeforeEach(func() {
		d = NewRunDecoder()
		schema, err := d.DecodedValues(0)
		Expect(err).ToNot(HaveOccurred())
		rb, err = rawbuf.NewRawBuffer(schema, 4, d.MaxRowsInPacket())
		Expect(err).ToNot(HaveOccurred())
		list = rawbuf.NewList(rb)
	})

	It("declares one unkeyed row per packet", func() {
		Expect(d.KeyLists()).To(Equal([][]int{nil}))
		Expect(d.MaxRowsInPacket()).To(Equal(1))
	})

	It("decodes a run start record", func() {
		p := packet.P(orcatest.LongPacket(runID, 1, 42, 1700000000))

		full, err := d.DecodePacket(p, list, 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(full).To(BeFalse())
		Expect(rb.Loc).To(Equal(1))

		Expect(rb.Table.Col("packet_id").U32(0)).To(BeEquivalentTo(3))
		Expect(rb.Table.Col("flags").U32(0)).To(BeEquivalentTo(1))
		Expect(rb.Table.Col("run").U32(0)).To(BeEquivalentTo(42))
		Expect(rb.Table.Col("time").U32(0)).To(BeEquivalentTo(1700000000))
	})

	It("rejects a truncated record", func() {
		p := packet.P(orcatest.LongPacket(runID, 1, 42))

		_, err := d.DecodePacket(p, list, 0)
		Expect(err).To(HaveOccurred())
		Expect(rb.Loc).To(BeZero())
	})
})
