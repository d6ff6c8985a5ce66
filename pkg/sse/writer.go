package sse

import (
	"fmt"
	"io"
	"strings"
)

// Writer emits SSE events to a downstream client.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes events to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev followed by the blank line that ends it.
func (w *Writer) WriteEvent(ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w.w, b.String())
	return err
}

// WriteComment writes a ": text" keep-alive line.
func (w *Writer) WriteComment(text string) error {
	_, err := fmt.Fprintf(w.w, ": %s\n\n", text)
	return err
}
