// Package storage defines the history store: a capped, newest-first list of
// solved problems together with their follow-up chat and verification.
package storage

import (
	"context"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

// DefaultMaxEntries is how many entries a store keeps when no limit is set.
const DefaultMaxEntries = 20

// Driver defines the interface for persisting and retrieving history entries
// in a storage backend.
//
// Entries are append-only: once added, only the chat log and the
// verification of an entry change. When an Add pushes the store past its
// limit the oldest entries are evicted.
type Driver interface {
	// Add stores e, assigning e.ID if it is zero, and evicts the oldest
	// entries beyond the store's limit.
	Add(ctx context.Context, e *Entry) error

	// Get retrieves an entry by ID.
	Get(ctx context.Context, id int64) (*Entry, error)

	// Latest returns the newest entry.
	Latest(ctx context.Context) (*Entry, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]*Entry, error)

	// UpdateChat replaces the chat log of an entry.
	UpdateChat(ctx context.Context, id int64, chat []llm.ChatMessage) error

	// UpdateLatestChat replaces the chat log of the newest entry.
	UpdateLatestChat(ctx context.Context, chat []llm.ChatMessage) error

	// SetVerification attaches a verification to an entry.
	SetVerification(ctx context.Context, id int64, v *llm.Verification) error

	// Delete removes one entry.
	Delete(ctx context.Context, id int64) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}
