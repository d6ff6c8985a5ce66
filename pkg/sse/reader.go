package sse

import (
	"errors"
	"io"
)

// DefaultChunkSize is the read size used against the upstream body.
const DefaultChunkSize = 4 * 1024

// Reader yields complete lines from a source io.Reader, optionally teeing
// every raw byte it reads to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │       line       │
// └──────────────────┘
//
// A Reader is finite and cannot be restarted: once Next returns io.EOF it
// keeps returning io.EOF.
type Reader struct {
	src  io.Reader
	dest io.Writer
	buf  []byte

	decoder Decoder
	pending []string
	done    bool
}

// NewReader returns a line Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: make([]byte, DefaultChunkSize),
	}
}

// NewTeeReader returns a line Reader over src that also writes all raw bytes
// through to dest, e.g. a file recording the upstream stream.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	r := NewReader(src)
	r.dest = dest
	return r
}

// Next blocks until a complete line is available and returns it. It returns
// io.EOF once the source is exhausted and every buffered line was yielded.
func (r *Reader) Next() (string, error) {
	for len(r.pending) == 0 {
		if r.done {
			return "", io.EOF
		}
		if err := r.fill(); err != nil {
			return "", err
		}
	}

	line := r.pending[0]
	r.pending = r.pending[1:]
	return line, nil
}

// Discard drops lines that were decoded but not yet returned by Next.
func (r *Reader) Discard() int {
	n := len(r.pending)
	r.pending = nil
	return n
}

func (r *Reader) fill() error {
	n, err := r.src.Read(r.buf)
	if n > 0 {
		if r.dest != nil {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return werr
			}
		}
		r.pending = append(r.pending, r.decoder.Feed(r.buf[:n])...)
	}

	if errors.Is(err, io.EOF) {
		r.done = true
		if last, ok := r.decoder.Flush(); ok {
			r.pending = append(r.pending, last)
		}
		return nil
	}
	return err
}
