package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func readAll(r *Reader) ([]string, error) {
	var lines []string
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

var _ = Describe("Reader", func() {
	const input = "data: first\n\ndata: second\n\ndata: [DONE]\n\n"

	It("yields every line then io.EOF", func() {
		lines, err := readAll(NewReader(strings.NewReader(input)))
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"data: first", "", "data: second", "", "data: [DONE]", ""}))
	})

	It("keeps returning io.EOF once exhausted", func() {
		r := NewReader(strings.NewReader("x"))
		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("x"))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))
		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))
	})

	It("is unaffected by one-byte reads", func() {
		lines, err := readAll(NewReader(iotest.OneByteReader(strings.NewReader(input))))
		Expect(err).NotTo(HaveOccurred())

		whole, _ := readAll(NewReader(strings.NewReader(input)))
		Expect(lines).To(Equal(whole))
	})

	It("tees raw bytes verbatim", func() {
		dst := &bytes.Buffer{}
		_, err := readAll(NewTeeReader(strings.NewReader(input), dst))
		Expect(err).NotTo(HaveOccurred())
		Expect(dst.String()).To(Equal(input))
	})

	It("surfaces source errors", func() {
		boom := errors.New("connection reset")
		r := NewReader(iotest.ErrReader(boom))
		_, err := r.Next()
		Expect(err).To(MatchError(boom))
	})

	It("discards decoded but unread lines", func() {
		r := NewReader(strings.NewReader("a\nb\nc\n"))
		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Discard()).To(Equal(2))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))
	})
})

var _ = Describe("Writer", func() {
	It("writes typed multi-line events", func() {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Type: "progress", Data: "a\nb"})).To(Succeed())
		Expect(buf.String()).To(Equal("event: progress\ndata: a\ndata: b\n\n"))
	})

	It("writes comments", func() {
		buf := &bytes.Buffer{}
		Expect(NewWriter(buf).WriteComment("ping")).To(Succeed())
		Expect(buf.String()).To(Equal(": ping\n\n"))
	})
})
