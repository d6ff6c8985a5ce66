// Package solver drives every inference call mathpad makes: transcribing a
// drawing, solving the problem, follow-up chat and verification.
//
// Each call resolves its model to a provider route, looks up the route's
// credential, issues one HTTP request and, for streaming calls, folds the
// provider's frames into an llm.StreamState reported through a
// llm.ProgressFunc. Cancelling the call's context stops the stream; the call
// then returns ErrCancelled and the progress callback is not invoked again.
package solver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/llm/provider"
)

// KeySource resolves the API key stored for a credential slot. An empty key
// with a nil error means the slot is not configured.
type KeySource interface {
	Lookup(slot string) (string, error)
}

// Endpoints holds the upstream base URLs a route can point at.
type Endpoints struct {
	DashScope string
	Alternate string
	Gemini    string
}

func (e Endpoints) url(endpoint provider.Endpoint) string {
	switch endpoint {
	case provider.EndpointAlternate:
		return e.Alternate
	case provider.EndpointGemini:
		return e.Gemini
	default:
		return e.DashScope
	}
}

// Config configures a Client.
type Config struct {
	Endpoints Endpoints

	// Family selects the solving models, see SolverModel.
	Family string

	// VisionModel transcribes drawings.
	VisionModel string

	// ThinkingBudget caps reasoning tokens on routes that accept a budget.
	ThinkingBudget int

	Keys KeySource

	// HTTPClient defaults to a client without a timeout; streams are bounded
	// by their context instead.
	HTTPClient *http.Client

	Logger *slog.Logger

	// StateHook, if set, observes every state transition.
	StateHook StateHook

	// Record, if set, receives the raw bytes of every stream.
	Record io.Writer
}

// Client issues inference calls. It is safe for concurrent use; every call
// owns its own state.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New returns a Client for cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("solver requires a key source")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{cfg: cfg, http: httpClient, logger: logger}, nil
}

// SolveRequest asks for a solution of Problem.
type SolveRequest struct {
	Problem  string
	Thinking bool
}

// ChatRequest asks a follow-up question about a solved problem.
type ChatRequest struct {
	Problem  string
	Solution string

	// History holds the earlier exchanges, oldest first, without Query.
	History []llm.ChatMessage

	Query    string
	Thinking bool
}

// VerifyRequest asks a second model to review a solution.
type VerifyRequest struct {
	Problem  string
	Solution string

	// SolverModel is the model that produced Solution.
	SolverModel string
}

// Extract transcribes a PNG drawing with the configured vision model.
func (c *Client) Extract(ctx context.Context, png []byte) (string, error) {
	model := c.cfg.VisionModel
	call := c.newCall("extract", model)
	if ctx.Err() != nil {
		return "", call.abort()
	}

	route := provider.Resolve(model)
	p, err := c.provider(call, route)
	if err != nil {
		return "", err
	}

	req := &llm.ChatRequest{
		Model:    model,
		Messages: visionMessages(route, model, png),
	}

	body, err := call.send(ctx, c.http, func(ctx context.Context) (*http.Request, error) {
		return p.NewVisionRequest(ctx, req)
	})
	if err != nil {
		return "", err
	}
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		return "", call.readFailed(ctx, err)
	}

	text, err := p.ParseVisionResponse(payload)
	if err != nil {
		call.transition(StateFailed)
		return "", &TransportError{Message: "invalid vision response", Err: err}
	}
	if isOCRModel(model) {
		text = unwrapOCR(text)
	}

	call.transition(StateSucceeded)
	return CleanTranscription(text), nil
}

// Solve streams a solution of req.Problem with the family's solver model.
func (c *Client) Solve(ctx context.Context, req SolveRequest, progress llm.ProgressFunc) (*llm.Result, error) {
	model, err := SolverModel(c.cfg.Family, req.Thinking)
	if err != nil {
		return nil, err
	}

	route := provider.Resolve(model)
	return c.stream(ctx, "solve", &llm.ChatRequest{
		Model:    model,
		Messages: solveMessages(route, req.Problem),
		Thinking: req.Thinking,
	}, progress)
}

// Chat streams the answer to a follow-up question.
func (c *Client) Chat(ctx context.Context, req ChatRequest, progress llm.ProgressFunc) (*llm.Result, error) {
	model, err := SolverModel(c.cfg.Family, req.Thinking)
	if err != nil {
		return nil, err
	}

	route := provider.Resolve(model)
	return c.stream(ctx, "chat", &llm.ChatRequest{
		Model:    model,
		Messages: chatMessages(route, req),
		Thinking: req.Thinking,
	}, progress)
}

// Verify streams a review of req.Solution by the model paired with
// req.SolverModel. Reasoning is always enabled. The returned Verification
// is settled: completed with a parsed verdict, or error when the review
// failed. Cancellation returns ErrCancelled and no Verification.
func (c *Client) Verify(ctx context.Context, req VerifyRequest, progress llm.ProgressFunc) (*llm.Verification, error) {
	model := VerifierModel(req.SolverModel)

	res, err := c.stream(ctx, "verify", &llm.ChatRequest{
		Model:    model,
		Messages: verifyMessages(req),
		Thinking: true,
	}, progress)
	if err != nil {
		if IsCancelled(err) {
			return nil, err
		}
		return &llm.Verification{
			Status:    llm.VerificationError,
			Content:   err.Error(),
			ModelUsed: model,
		}, err
	}

	correct, summary := ParseVerdict(res.Content)
	return &llm.Verification{
		Status:    llm.VerificationDone,
		Content:   res.Content,
		Reasoning: res.Reasoning,
		IsCorrect: correct,
		Summary:   summary,
		ModelUsed: model,
	}, nil
}

// provider resolves the route's credential and builds its provider. Failing
// here settles the call before any request is made.
func (c *Client) provider(call *call, route provider.Route) (provider.Provider, error) {
	key, err := c.cfg.Keys.Lookup(string(route.Credential))
	if err != nil {
		call.transition(StateFailed)
		return nil, &ConfigurationError{Slot: string(route.Credential), Reason: err.Error()}
	}
	if key == "" {
		call.transition(StateFailed)
		return nil, &ConfigurationError{Slot: string(route.Credential), Reason: "no API key configured"}
	}

	baseURL := c.cfg.Endpoints.url(route.Endpoint)
	if baseURL == "" {
		call.transition(StateFailed)
		return nil, &ConfigurationError{Slot: string(route.Endpoint), Reason: "no endpoint configured"}
	}

	p, err := provider.New(route, baseURL, key)
	if err != nil {
		call.transition(StateFailed)
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	return p, nil
}

func (c *Client) newCall(op, model string) *call {
	return &call{
		op:     op,
		model:  model,
		hook:   c.cfg.StateHook,
		logger: c.logger.With("op", op, "model", model),
	}
}
