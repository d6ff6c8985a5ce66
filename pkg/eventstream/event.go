// Package eventstream publishes history changes to an external event stream
// so other services can follow what the solver produces.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSolutionSaved is emitted after a new history entry is stored.
	EventTypeSolutionSaved = "mathpad.solution.saved"

	// EventTypeChatUpdated is emitted after the chat of an entry changes.
	EventTypeChatUpdated = "mathpad.chat.updated"

	// EventTypeVerificationSaved is emitted after a verification is attached.
	EventTypeVerificationSaved = "mathpad.verification.saved"
)

// previewLen bounds ProblemPreview in runes.
const previewLen = 80

// Event is a transport-neutral payload describing one history change.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	EntryID        int64  `json:"entry_id"`
	Model          string `json:"model,omitempty"`
	ProblemPreview string `json:"problem_preview,omitempty"`

	// ChatTurns is the chat length after the change.
	ChatTurns int `json:"chat_turns,omitempty"`

	// Verdict is set on verification events once a verdict was parsed.
	Verdict *bool `json:"verdict,omitempty"`

	Stream StreamMeta `json:"stream"`
}

// StreamMeta captures the lifecycle of the stream that produced the change.
type StreamMeta struct {
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	DurationMs     int64     `json:"duration_ms"`
	ContentBytes   int       `json:"content_bytes"`
	ReasoningBytes int       `json:"reasoning_bytes"`
}

// NewEvent returns an event of the given type with a fresh ID.
func NewEvent(eventType string, entryID int64, now time.Time) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		EntryID:       entryID,
	}
}

// Preview shortens a problem statement for ProblemPreview.
func Preview(problem string) string {
	r := []rune(problem)
	if len(r) <= previewLen {
		return problem
	}
	return string(r[:previewLen-1]) + "…"
}

// NewStreamMeta fills StreamMeta for a stream that ran from started to
// completed.
func NewStreamMeta(started, completed time.Time, content, reasoning string) StreamMeta {
	return StreamMeta{
		StartedAt:      started.UTC(),
		CompletedAt:    completed.UTC(),
		DurationMs:     completed.Sub(started).Milliseconds(),
		ContentBytes:   len(content),
		ReasoningBytes: len(reasoning),
	}
}
