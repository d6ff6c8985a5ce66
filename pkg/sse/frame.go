package sse

import "strings"

// DoneSentinel is the literal payload that terminates a delta-chat stream.
const DoneSentinel = "[DONE]"

// FrameKind tags a Frame.
type FrameKind int

const (
	// Heartbeat frames carry nothing: blank separators, comments and
	// non-data fields.
	Heartbeat FrameKind = iota

	// Terminator is the "data: [DONE]" line.
	Terminator

	// Payload frames carry a raw JSON document in Data.
	Payload
)

func (k FrameKind) String() string {
	switch k {
	case Heartbeat:
		return "heartbeat"
	case Terminator:
		return "terminator"
	case Payload:
		return "payload"
	default:
		return "unknown"
	}
}

// Frame is one classified line of an upstream stream.
type Frame struct {
	Kind FrameKind
	Data string
}

// Classify turns one decoded line into a Frame. Only Payload frames should
// ever be handed to a JSON decoder.
func Classify(line string) Frame {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return Frame{Kind: Heartbeat}
	}

	data, ok := strings.CutPrefix(trimmed, "data:")
	if !ok {
		// event:, id:, retry: and anything else
		return Frame{Kind: Heartbeat}
	}

	data = strings.TrimSpace(data)
	switch data {
	case "":
		return Frame{Kind: Heartbeat}
	case DoneSentinel:
		return Frame{Kind: Terminator}
	}

	return Frame{Kind: Payload, Data: data}
}
