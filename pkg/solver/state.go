package solver

// State is a step of one call's lifecycle:
//
//	Idle → Sending → Streaming → Succeeded
//	                           ↘ Aborted | Failed
//
// Aborted and Failed are reachable from every non-terminal state.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateSucceeded
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSucceeded:
		return "succeeded"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether s is terminal.
func (s State) Settled() bool {
	return s >= StateSucceeded
}

// StateHook observes the transitions of every call made by a Client.
// op is "extract", "solve", "chat" or "verify".
type StateHook func(op, model string, from, to State)
