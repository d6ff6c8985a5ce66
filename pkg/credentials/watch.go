package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store serves keys from an in-memory copy of credentials.toml and reloads
// it when the file changes, so a running server picks up "mathpad auth"
// without a restart.
type Store struct {
	mgr    *Manager
	logger *slog.Logger

	mu    sync.RWMutex
	creds *Credentials
}

// NewStore loads the current credentials from mgr.
func NewStore(mgr *Manager, logger *slog.Logger) (*Store, error) {
	s := &Store{mgr: mgr, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads credentials.toml.
func (s *Store) Reload() error {
	creds, err := s.mgr.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Lookup has the same precedence as Manager.Lookup without touching disk.
func (s *Store) Lookup(slot string) (string, error) {
	s.mu.RLock()
	pc, ok := s.creds.Providers[slot]
	s.mu.RUnlock()

	if ok && pc.APIKey != "" {
		return pc.APIKey, nil
	}
	return lookupEnv(slot), nil
}

// Watch reloads the store whenever credentials.toml is written, created or
// replaced. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating credentials watcher: %w", err)
	}
	defer watcher.Close()

	path := filepath.Clean(s.mgr.GetTarget())

	// Editors and "mathpad auth" may replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching credentials dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("could not reload credentials", "path", path, "error", err)
				continue
			}
			s.logger.Info("credentials reloaded", "path", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("credentials watcher error", "error", err)
		}
	}
}
