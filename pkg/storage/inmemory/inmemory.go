// Package inmemory provides a history store that lives for the lifetime of
// the process.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

// Driver implements storage.Driver using a slice kept newest first.
type Driver struct {
	// mu is a read write sync mutex for locking the entries
	mu sync.RWMutex

	entries []*storage.Entry
	max     int
	now     func() time.Time
}

// NewDriver creates a new in-memory store keeping at most maxEntries entries.
// A non-positive maxEntries uses storage.DefaultMaxEntries.
func NewDriver(maxEntries int) *Driver {
	if maxEntries <= 0 {
		maxEntries = storage.DefaultMaxEntries
	}
	return &Driver{max: maxEntries, now: time.Now}
}

func (d *Driver) Add(_ context.Context, e *storage.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var latest int64
	if len(d.entries) > 0 {
		latest = d.entries[0].ID
	}
	if e.ID == 0 || e.ID <= latest {
		e.ID = storage.NextID(d.now(), latest)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.UnixMilli(e.ID)
	}

	d.entries = append([]*storage.Entry{e.Clone()}, d.entries...)
	if len(d.entries) > d.max {
		d.entries = d.entries[:d.max]
	}
	return nil
}

func (d *Driver) Get(_ context.Context, id int64) (*storage.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i := d.index(id); i >= 0 {
		return d.entries[i].Clone(), nil
	}
	return nil, storage.NotFoundError{ID: id}
}

func (d *Driver) Latest(_ context.Context) (*storage.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.entries) == 0 {
		return nil, storage.NotFoundError{}
	}
	return d.entries[0].Clone(), nil
}

func (d *Driver) List(_ context.Context) ([]*storage.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.Entry, 0, len(d.entries))
	for _, e := range d.entries {
		result = append(result, e.Clone())
	}
	return result, nil
}

func (d *Driver) UpdateChat(_ context.Context, id int64, chat []llm.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return storage.NotFoundError{ID: id}
	}
	d.entries[i].Chat = append([]llm.ChatMessage(nil), chat...)
	return nil
}

func (d *Driver) UpdateLatestChat(_ context.Context, chat []llm.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) == 0 {
		return storage.NotFoundError{}
	}
	d.entries[0].Chat = append([]llm.ChatMessage(nil), chat...)
	return nil
}

func (d *Driver) SetVerification(_ context.Context, id int64, v *llm.Verification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return storage.NotFoundError{ID: id}
	}

	holder := &storage.Entry{Verification: v}
	d.entries[i].Verification = holder.Clone().Verification
	return nil
}

func (d *Driver) Delete(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return storage.NotFoundError{ID: id}
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return nil
}

func (d *Driver) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) index(id int64) int {
	for i, e := range d.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
