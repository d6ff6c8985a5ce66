// Package sse provides the line-level plumbing for Server-Sent Events as
// used by mathpad: reassembling lines from an upstream chunked body,
// classifying them into frames, and writing events back out to a browser.
//
// Upstream inference providers frame every JSON payload on a "data:" line,
// so decoding here is purely line oriented. Multi-line events and the
// "retry" field are not interpreted.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single outbound SSE event written by Writer.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is written as one "data:" line per newline-separated line.
	Data string

	// ID is the optional "id:" field.
	ID string
}
