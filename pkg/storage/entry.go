package storage

import (
	"time"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

// Entry is one solved problem.
type Entry struct {
	// ID is the creation time in Unix milliseconds, bumped when needed to
	// stay unique and increasing.
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Image is the PNG the problem was transcribed from, if any.
	Image []byte `json:"image,omitempty"`

	Problem   string `json:"problem"`
	Solution  string `json:"solution"`
	Reasoning string `json:"reasoning,omitempty"`

	Chat []llm.ChatMessage `json:"chat"`

	// Model is the solver model that produced Solution.
	Model string `json:"model"`

	Verification *llm.Verification `json:"verification,omitempty"`
}

// NextID returns the ID for an entry created at now, given the newest ID in
// the store.
func NextID(now time.Time, latest int64) int64 {
	id := now.UnixMilli()
	if id <= latest {
		id = latest + 1
	}
	return id
}

// Clone returns a deep copy of e so stores never share mutable state with
// callers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	c := *e
	if e.Image != nil {
		c.Image = append([]byte(nil), e.Image...)
	}
	if e.Chat != nil {
		c.Chat = append([]llm.ChatMessage(nil), e.Chat...)
	}
	if e.Verification != nil {
		v := *e.Verification
		if v.IsCorrect != nil {
			ok := *v.IsCorrect
			v.IsCorrect = &ok
		}
		c.Verification = &v
	}
	return &c
}
