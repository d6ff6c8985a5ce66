// Package openai implements the delta-chat wire format spoken by
// OpenAI-compatible chat completion endpoints such as DashScope and DMXAPI.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/sse"
)

// ThinkingStyle selects how the reasoning toggle is encoded in requests.
type ThinkingStyle int

const (
	ThinkingOff ThinkingStyle = iota
	ThinkingFlag
	ThinkingObject
)

// Config points a provider at one endpoint.
type Config struct {
	// Endpoint is the full chat completions URL.
	Endpoint string
	APIKey   string
	Thinking ThinkingStyle
}

// provider implements the Provider interface for OpenAI-compatible endpoints.
type provider struct {
	cfg Config
}

func New(cfg Config) *provider { return &provider{cfg: cfg} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) Interpret(line string) (*llm.Delta, error) {
	frame := sse.Classify(line)
	if frame.Kind != sse.Payload {
		return nil, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(frame.Data), &chunk); err != nil {
		return nil, &llm.ParseError{Provider: o.Name(), Line: line, Err: err}
	}

	if len(chunk.Choices) == 0 {
		return nil, nil
	}

	delta := chunk.Choices[0].Delta
	return &llm.Delta{
		Content:   delta.Content,
		Reasoning: delta.ReasoningContent,
	}, nil
}

func (o *provider) NewStreamRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error) {
	body := o.buildRequest(req)
	body.Stream = true

	switch o.cfg.Thinking {
	case ThinkingFlag:
		enabled := req.Thinking
		body.EnableThinking = &enabled
	case ThinkingObject:
		body.Thinking = &thinkingConfig{Type: "disabled"}
		if req.Thinking {
			body.Thinking.Type = "enabled"
			body.Thinking.BudgetTokens = req.ThinkingBudget
		}
	}

	httpReq, err := o.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	return httpReq, nil
}

func (o *provider) NewVisionRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error) {
	return o.newRequest(ctx, o.buildRequest(req))
}

func (o *provider) ParseVisionResponse(payload []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *provider) buildRequest(req *llm.ChatRequest) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	return chatRequest{
		Model:    req.Model,
		Messages: messages,
	}
}

func (o *provider) newRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	return httpReq, nil
}

// convertMessage renders text-only messages as a plain string and anything
// carrying an image as a list of content parts in block order.
func convertMessage(msg llm.Message) chatMessage {
	if _, ok := msg.Image(); !ok {
		return chatMessage{Role: msg.Role, Content: msg.GetText()}
	}

	parts := make([]contentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, contentPart{Type: "text", Text: block.Text})
		case "image":
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: block.DataURL()}})
		}
	}
	return chatMessage{Role: msg.Role, Content: parts}
}
