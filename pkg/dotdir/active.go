package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	activeFile = "active.json"
)

// ActiveEntry points at the history entry that "mathpad chat" continues.
// When absent, chat continues the most recent entry.
type ActiveEntry struct {
	ID int64 `json:"id"`

	// Problem is a short preview shown when the pointer is restored.
	Problem string `json:"problem,omitempty"`
}

// LoadActive loads .mathpad/active.json.
// Returns nil, nil if no entry has been selected.
func (m *Manager) LoadActive(overrideDir string) (*ActiveEntry, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, activeFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active entry: %w", err)
	}

	active := &ActiveEntry{}
	if err := json.Unmarshal(data, active); err != nil {
		return nil, fmt.Errorf("parsing active entry: %w", err)
	}

	return active, nil
}

// SaveActive persists the selected entry to .mathpad/active.json.
func (m *Manager) SaveActive(active *ActiveEntry, overrideDir string) error {
	if active == nil {
		return errors.New("cannot save nil active entry")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling active entry: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, activeFile), data, 0o600); err != nil {
		return fmt.Errorf("writing active entry: %w", err)
	}

	return nil
}

// ClearActive removes the selection so chat falls back to the latest entry.
// Returns nil if nothing was selected.
func (m *Manager) ClearActive(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, activeFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing active entry: %w", err)
	}

	return nil
}
