package llm

// ChatMessage is one exchange in the follow-up chat attached to a solution.
type ChatMessage struct {
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}
