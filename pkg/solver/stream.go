package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/llm/provider"
	"github.com/papercomputeco/mathpad/pkg/sse"
)

// call tracks the state of one request.
type call struct {
	op     string
	model  string
	state  State
	hook   StateHook
	logger *slog.Logger
}

func (c *call) transition(to State) {
	if c.state.Settled() {
		return
	}

	from := c.state
	c.state = to
	c.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if c.hook != nil {
		c.hook(c.op, c.model, from, to)
	}
}

// abort settles the call as Aborted and returns ErrCancelled.
func (c *call) abort() error {
	c.transition(StateAborted)
	return ErrCancelled
}

// readFailed settles a call whose body read failed.
func (c *call) readFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return c.abort()
	}
	c.transition(StateFailed)
	return &TransportError{Message: "stream read failed: " + err.Error(), Err: err}
}

// send issues the request built by build and returns the body of a 2xx
// response. Any other outcome settles the call.
func (c *call) send(ctx context.Context, client *http.Client, build func(context.Context) (*http.Request, error)) (io.ReadCloser, error) {
	if ctx.Err() != nil {
		return nil, c.abort()
	}
	c.transition(StateSending)

	httpReq, err := build(ctx)
	if err != nil {
		c.transition(StateFailed)
		return nil, &TransportError{Message: "building request", Err: err}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.abort()
		}
		c.transition(StateFailed)
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(resp.Body)
		if ctx.Err() != nil {
			return nil, c.abort()
		}
		c.transition(StateFailed)
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, payload),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		c.transition(StateFailed)
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "No response body"}
	}

	return resp.Body, nil
}

// errorMessage extracts a reason from an error body: a top-level "message",
// then "error.message", else the status.
func errorMessage(status int, payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != nil && body.Error.Message != "" {
			return body.Error.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// stream runs one streaming call to completion.
func (c *Client) stream(ctx context.Context, op string, req *llm.ChatRequest, progress llm.ProgressFunc) (*llm.Result, error) {
	call := c.newCall(op, req.Model)
	if ctx.Err() != nil {
		return nil, call.abort()
	}

	route := provider.Resolve(req.Model)
	p, err := c.provider(call, route)
	if err != nil {
		return nil, err
	}

	req.Stream = true
	req.ThinkingBudget = c.cfg.ThinkingBudget

	body, err := call.send(ctx, c.http, func(ctx context.Context) (*http.Request, error) {
		return p.NewStreamRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	call.transition(StateStreaming)

	var lines *sse.Reader
	if c.cfg.Record != nil {
		lines = sse.NewTeeReader(body, c.cfg.Record)
	} else {
		lines = sse.NewReader(body)
	}

	acc := llm.NewAccumulator(progress)
	for {
		line, err := lines.Next()
		if ctx.Err() != nil {
			if n := lines.Discard(); n > 0 {
				call.logger.Debug("discarded buffered lines", "count", n)
			}
			return nil, call.abort()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, call.readFailed(ctx, err)
		}

		delta, err := p.Interpret(line)
		if err != nil {
			var perr *llm.ParseError
			if errors.As(err, &perr) {
				call.logger.Warn("skipping malformed frame", "provider", perr.Provider, "line", truncate(perr.Line, 200), "error", perr.Err)
				continue
			}
			call.transition(StateFailed)
			return nil, err
		}
		if delta != nil {
			acc.Apply(*delta)
		}
	}

	state := acc.State()
	call.logger.Debug("stream finished",
		"deltas", acc.Applied(),
		"content_bytes", len(state.Content),
		"reasoning_bytes", len(state.Reasoning),
	)
	call.transition(StateSucceeded)

	return &llm.Result{
		Model:     req.Model,
		Content:   state.Content,
		Reasoning: state.Reasoning,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "…"
}
