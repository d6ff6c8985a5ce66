package llm

// ChatRequest is the provider-agnostic description of one inference call.
// Each provider renders it into its own wire body.
type ChatRequest struct {
	// Model identifier as understood by the upstream, e.g. "qwen3-max".
	Model string `json:"model"`

	// Conversation messages, system prompt first when present.
	Messages []Message `json:"messages"`

	// Stream selects the SSE endpoint variant.
	Stream bool `json:"stream"`

	// Thinking enables the provider's extended reasoning mode. Providers that
	// support a toggle always send it explicitly, on or off.
	Thinking bool `json:"thinking"`

	// ThinkingBudget caps reasoning tokens where the provider accepts a
	// budget. Zero leaves it to the server.
	ThinkingBudget int `json:"thinking_budget,omitempty"`
}
