// Package gemini implements the generative-content wire format of the
// Google Gemini API. The API key travels as a query parameter and streaming
// responses are requested with alt=sse.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/sse"
)

// Config points a Provider at an API base such as
// https://generativelanguage.googleapis.com/v1beta.
type Config struct {
	BaseURL string
	APIKey  string
}

// Provider implements the Provider interface for the Gemini API.
type Provider struct {
	cfg Config
}

// New returns a Provider for cfg.
func New(cfg Config) *Provider { return &Provider{cfg: cfg} }

// Name returns the canonical provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// Interpret maps candidates[0].content.parts[0].text to Content. Reasoning
// is never populated.
func (p *Provider) Interpret(line string) (*llm.Delta, error) {
	frame := sse.Classify(line)
	if frame.Kind != sse.Payload {
		return nil, nil
	}

	var chunk generateResponse
	if err := json.Unmarshal([]byte(frame.Data), &chunk); err != nil {
		return nil, &llm.ParseError{Provider: p.Name(), Line: line, Err: err}
	}

	text, ok := chunk.firstText()
	if !ok {
		return nil, nil
	}
	return &llm.Delta{Content: text}, nil
}

func (p *Provider) NewStreamRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error) {
	return p.newRequest(ctx, req, "streamGenerateContent", true)
}

func (p *Provider) NewVisionRequest(ctx context.Context, req *llm.ChatRequest) (*http.Request, error) {
	return p.newRequest(ctx, req, "generateContent", false)
}

func (p *Provider) ParseVisionResponse(payload []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("decoding generateContent response: %w", err)
	}
	text, _ := resp.firstText()
	return strings.TrimSpace(text), nil
}

// URL returns the method URL for model, e.g.
// {base}/models/gemini-2.5-pro:streamGenerateContent?alt=sse&key=K.
func (p *Provider) URL(model, method string, stream bool) string {
	q := url.Values{}
	q.Set("key", p.cfg.APIKey)
	if stream {
		q.Set("alt", "sse")
	}

	base := strings.TrimSuffix(p.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:%s?%s", base, url.PathEscape(model), method, q.Encode())
}

func (p *Provider) newRequest(ctx context.Context, req *llm.ChatRequest, method string, stream bool) (*http.Request, error) {
	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL(req.Model, method, stream), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

// buildRequest lifts system messages into systemInstruction and renames
// the assistant role to "model".
func buildRequest(req *llm.ChatRequest) generateRequest {
	var body generateRequest
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			if body.SystemInstruction == nil {
				body.SystemInstruction = &content{}
			}
			body.SystemInstruction.Parts = append(body.SystemInstruction.Parts, part{Text: msg.GetText()})
			continue
		}

		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}

		c := content{Role: role}
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				c.Parts = append(c.Parts, part{Text: block.Text})
			case "image":
				c.Parts = append(c.Parts, part{InlineData: &inlineData{
					MimeType: block.MediaType,
					Data:     block.ImageBase64,
				}})
			}
		}
		body.Contents = append(body.Contents, c)
	}
	return body
}
