// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package packet

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dump", func() {
	p := P{
		uint32(5)<<DataIDShift | 4,
		0x00000001,
		0x0000BEEF,
		0x63c1977a,
	}

	It("renders one hex line per word", func() {
		lines := Dump(p, DumpOptions{})

		Expect(lines).To(HaveLen(4))
		Expect(lines[1]).To(Equal("1 0x00000001"))
		Expect(lines[3]).To(Equal("3 0x63c1977a"))
	})

	It("splits the header line when shifting data ids", func() {
		lines := Dump(p, DefaultDumpOptions())

		Expect(lines[0]).To(Equal("0 0x5 0x00004"))
		Expect(lines[3]).To(Equal("3 0x63c1977a"))
	})

	It("prefixes a summary line on request", func() {
		lines := Dump(p, DumpOptions{PrintNWords: true})

		Expect(lines).To(HaveLen(5))
		Expect(lines[0]).To(Equal("data id = 5: 4 words"))
	})

	It("summarizes short packets as one word", func() {
		short := P{1<<31 | uint32(5)<<DataIDShift | 3}
		lines := Dump(short, DumpOptions{PrintNWords: true})

		Expect(lines[0]).To(Equal("data id = 5: 1 words"))
	})

	It("caps output at MaxWords", func() {
		lines := Dump(p, DumpOptions{MaxWords: 2})

		Expect(lines).To(HaveLen(2))
	})

	It("renders decimal and half-word forms", func() {
		Expect(Dump(p, DumpOptions{AsInt: true})[2]).To(Equal("2 48879"))
		Expect(Dump(p, DumpOptions{AsShort: true})[2]).To(Equal("2 0xbeef 0x0000"))
		Expect(Dump(p, DumpOptions{AsShort: true, AsInt: true})[2]).To(Equal("2 48879 0"))
	})

	It("renders nothing for an empty packet", func() {
		Expect(Dump(nil, DumpOptions{})).To(BeEmpty())
	})
})
