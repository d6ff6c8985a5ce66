// Package testutils holds fakes shared by command and server tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Request is one call the fake upstream received.
type Request struct {
	Model  string
	Stream bool
	Body   map[string]any
}

// Upstream is a fake OpenAI-compatible chat completions endpoint.
// Streamed calls are answered with Replies in order, the last one
// repeating. Other calls are vision calls and get Transcription.
type Upstream struct {
	Server *httptest.Server

	mu            sync.Mutex
	replies       []string
	transcription string
	status        int
	requests      []Request
}

// NewUpstream starts a fake upstream. Close it when done.
func NewUpstream(transcription string, replies ...string) *Upstream {
	u := &Upstream{transcription: transcription, replies: replies}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	return u
}

// URL is the chat completions endpoint.
func (u *Upstream) URL() string {
	return u.Server.URL + "/v1/chat/completions"
}

// Close stops the server.
func (u *Upstream) Close() {
	u.Server.Close()
}

// FailWith makes every later call fail with status.
func (u *Upstream) FailWith(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

// Requests returns the calls received so far.
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)

	model, _ := body["model"].(string)
	stream, _ := body["stream"].(bool)

	u.mu.Lock()
	status := u.status
	reply := ""
	if stream {
		n := 0
		for _, req := range u.requests {
			if req.Stream {
				n++
			}
		}
		if len(u.replies) > 0 {
			reply = u.replies[min(n, len(u.replies)-1)]
		}
	}
	u.requests = append(u.requests, Request{Model: model, Stream: stream, Body: body})
	transcription := u.transcription
	u.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"message":"upstream failed with %d"}}`, status)
		return
	}

	if !stream {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": transcription}},
			},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	writeChunk := func(delta map[string]string) {
		payload, _ := json.Marshal(map[string]any{
			"model":   model,
			"choices": []map[string]any{{"index": 0, "delta": delta}},
		})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}

	writeChunk(map[string]string{"reasoning_content": "thinking"})
	writeChunk(map[string]string{"content": reply})
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}
