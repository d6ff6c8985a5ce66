package llm

// Result is the settled value of a streamed call.
type Result struct {
	Model     string `json:"model"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// VerificationStatus tracks a verification run.
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationStreaming VerificationStatus = "streaming"
	VerificationDone      VerificationStatus = "completed"
	VerificationError     VerificationStatus = "error"
)

// Verification is a second model's review of a solution.
type Verification struct {
	Status    VerificationStatus `json:"status"`
	Content   string             `json:"content"`
	Reasoning string             `json:"reasoning,omitempty"`

	// IsCorrect is nil until a verdict line has been parsed.
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Summary   string `json:"summary,omitempty"`
	ModelUsed string `json:"model_used"`
}
