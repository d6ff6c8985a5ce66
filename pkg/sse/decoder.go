package sse

import (
	"bytes"
	"strings"
)

// Decoder reassembles lines from arbitrarily split chunks of a byte stream.
//
// Lines are split on '\n' only, so a multi-byte UTF-8 sequence that straddles
// two chunks stays in the remainder until its line is complete. Invalid
// sequences in a completed line are replaced with U+FFFD.
type Decoder struct {
	remainder []byte
}

// Feed appends chunk to any buffered partial line and returns every line
// that is now complete, without terminators. The trailing partial line is
// retained for the next call.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	d.remainder = append(d.remainder, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.remainder, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, decodeLine(d.remainder[:i]))
		d.remainder = d.remainder[i+1:]
	}

	// Compact so a long stream does not pin its first chunk forever.
	if len(d.remainder) == 0 {
		d.remainder = nil
	} else if len(lines) > 0 {
		d.remainder = append([]byte(nil), d.remainder...)
	}

	return lines
}

// Flush returns the buffered trailing fragment once the stream has ended.
// It reports false when nothing but an empty fragment remains.
func (d *Decoder) Flush() (string, bool) {
	if len(d.remainder) == 0 {
		return "", false
	}

	line := decodeLine(d.remainder)
	d.remainder = nil
	return line, true
}

// Buffered is the number of bytes held for an incomplete line.
func (d *Decoder) Buffered() int {
	return len(d.remainder)
}

func decodeLine(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
