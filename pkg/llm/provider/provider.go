package provider

import (
	"context"
	"net/http"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

// Interpreter extracts deltas from decoded stream lines of one wire format.
type Interpreter interface {
	// Interpret classifies one line and returns its delta.
	// Returns (nil, nil) for heartbeats, the terminator, and payloads that
	// carry no delta. Returns a *llm.ParseError if the payload is not valid
	// JSON; callers log it and keep reading.
	Interpret(line string) (*llm.Delta, error)
}

// Provider knows one upstream wire format end to end: how to build its
// requests and how to read its responses.
type Provider interface {
	Interpreter

	// Name returns the canonical provider name ("openai" or "gemini").
	Name() string

	// NewStreamRequest builds a streaming chat request for req.
	NewStreamRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error)

	// NewVisionRequest builds a one-shot, non-streaming request for req.
	NewVisionRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error)

	// ParseVisionResponse extracts the text of a one-shot response body.
	ParseVisionResponse(payload []byte) (string, error)
}
