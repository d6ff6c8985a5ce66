package llm

// Delta is the increment extracted from one stream frame. Either piece may
// be empty.
type Delta struct {
	Content   string `json:"content,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Empty reports whether the delta carries no text at all.
func (d Delta) Empty() bool {
	return d.Content == "" && d.Reasoning == ""
}

// StreamState is the cumulative content and reasoning of one in-flight call.
// Both strings only ever grow.
type StreamState struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// Apply returns the state with d appended. It does not modify s.
func (s StreamState) Apply(d Delta) StreamState {
	return StreamState{
		Content:   s.Content + d.Content,
		Reasoning: s.Reasoning + d.Reasoning,
	}
}

// ProgressFunc observes a stream. reasoning reports whether the delta that
// produced state added reasoning text.
type ProgressFunc func(state StreamState, reasoning bool)

// Accumulator folds deltas for one request and reports progress.
// It is not safe for concurrent use; one stream loop owns it.
type Accumulator struct {
	state    StreamState
	progress ProgressFunc
	applied  int
}

// NewAccumulator returns an Accumulator reporting to progress, which may be nil.
func NewAccumulator(progress ProgressFunc) *Accumulator {
	return &Accumulator{progress: progress}
}

// Apply folds d into the state. Empty deltas are ignored and fire no callback.
func (a *Accumulator) Apply(d Delta) {
	if d.Empty() {
		return
	}

	a.state = a.state.Apply(d)
	a.applied++

	if a.progress != nil {
		a.progress(a.state, d.Reasoning != "")
	}
}

// State returns the current cumulative state.
func (a *Accumulator) State() StreamState {
	return a.state
}

// Applied is the number of non-empty deltas folded so far.
func (a *Accumulator) Applied() int {
	return a.applied
}
