package sse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decoder", func() {
	var d *Decoder

	BeforeEach(func() {
		d = &Decoder{}
	})

	It("returns complete lines and keeps the partial tail", func() {
		lines := d.Feed([]byte("data: one\ndata: tw"))
		Expect(lines).To(Equal([]string{"data: one"}))
		Expect(d.Buffered()).To(Equal(len("data: tw")))

		lines = d.Feed([]byte("o\n"))
		Expect(lines).To(Equal([]string{"data: two"}))
		Expect(d.Buffered()).To(BeZero())
	})

	It("strips carriage returns", func() {
		Expect(d.Feed([]byte("a\r\nb\r\n"))).To(Equal([]string{"a", "b"}))
	})

	It("keeps blank lines so they can be classified", func() {
		Expect(d.Feed([]byte("a\n\nb\n"))).To(Equal([]string{"a", "", "b"}))
	})

	It("holds a multi-byte rune split across chunks", func() {
		full := []byte("data: π≈3\n")
		// split inside the two-byte encoding of π
		Expect(d.Feed(full[:7])).To(BeEmpty())
		Expect(d.Feed(full[7:])).To(Equal([]string{"data: π≈3"}))
	})

	It("replaces invalid UTF-8 in completed lines", func() {
		Expect(d.Feed([]byte{'x', 0xff, '\n'})).To(Equal([]string{"x\uFFFD"}))
	})

	Describe("Flush", func() {
		It("yields a final unterminated fragment", func() {
			d.Feed([]byte("data: [DONE]"))
			line, ok := d.Flush()
			Expect(ok).To(BeTrue())
			Expect(line).To(Equal("data: [DONE]"))
		})

		It("yields nothing for an empty trailing fragment", func() {
			d.Feed([]byte("data: x\n"))
			_, ok := d.Flush()
			Expect(ok).To(BeFalse())
		})
	})

	It("produces the same lines for every split point", func() {
		stream := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"é\"}}]}\n\ndata: [DONE]\n")
		whole := (&Decoder{}).Feed(stream)

		for i := 1; i < len(stream); i++ {
			split := &Decoder{}
			got := append(split.Feed(stream[:i]), split.Feed(stream[i:])...)
			Expect(got).To(Equal(whole), "split at %d", i)
		}
	})
})
