// Package session owns the cancellation of in-flight operations. Each kind
// of operation has its own Scope: starting an operation cancels the previous
// one of the same kind and leaves the other kinds alone.
package session

import (
	"context"
	"sync"
)

// Scope holds the cancel function of the current operation of one kind.
type Scope struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Begin cancels the current operation, if any, and starts a new one derived
// from parent. The returned release must be called when the operation
// settles; it cancels the operation's context and forgets it, unless a later
// Begin already replaced it.
func (s *Scope) Begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	release := func() {
		cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.cancel = nil
		}
	}
	return ctx, release
}

// Cancel stops the current operation. It reports whether one was running.
func (s *Scope) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// Active reports whether an operation is running.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Kind names a Scope of a Session.
type Kind string

const (
	// Primary covers transcription, solving and verification.
	Primary Kind = "primary"

	// Chat covers follow-up questions.
	Chat Kind = "chat"
)

// Session groups the scopes of one user.
type Session struct {
	Primary Scope
	Chat    Scope
}

// Scope returns the scope for kind, or nil for an unknown kind.
func (s *Session) Scope(kind Kind) *Scope {
	switch kind {
	case Primary:
		return &s.Primary
	case Chat:
		return &s.Chat
	default:
		return nil
	}
}

// CancelAll stops every running operation.
func (s *Session) CancelAll() {
	s.Primary.Cancel()
	s.Chat.Cancel()
}
