// Package setup builds the components the mathpad commands share from the
// resolved configuration: the history store, the event publisher and the
// solver client.
package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
	"github.com/papercomputeco/mathpad/pkg/eventstream"
	"github.com/papercomputeco/mathpad/pkg/eventstream/kafka"
	"github.com/papercomputeco/mathpad/pkg/eventstream/nop"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/storage/inmemory"
	"github.com/papercomputeco/mathpad/pkg/storage/postgres"
	"github.com/papercomputeco/mathpad/pkg/storage/sqlite"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const historyDB = "history.db"

// LoadConfig resolves the configuration for cmd: flags named by flagKeys,
// then MATHPAD_* variables, then config.toml, then defaults.
func LoadConfig(cmd *cobra.Command, flagKeys ...string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)
	return config.FromViper(v), nil
}

// ResolveSQLitePath returns where the SQLite history lives: override, then
// MATHPAD_SQLITE, then history.db in the .mathpad/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := strings.TrimSpace(os.Getenv("MATHPAD_SQLITE")); env != "" {
		return env, nil
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving .mathpad directory: %w", err)
	}
	return filepath.Join(dir, historyDB), nil
}

// OpenStorage opens the history store selected by cfg.Storage.Driver.
func OpenStorage(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (storage.Driver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxEntries := int(cfg.Storage.MaxHistory)
	if maxEntries <= 0 {
		maxEntries = storage.DefaultMaxEntries
	}

	switch strings.ToLower(cfg.Storage.Driver) {
	case DriverMemory:
		logger.Debug("using in-memory history")
		return inmemory.NewDriver(maxEntries), nil

	case DriverSQLite, "":
		path, err := ResolveSQLitePath(cfg.Storage.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path, maxEntries)
		if err != nil {
			return nil, fmt.Errorf("opening SQLite history: %w", err)
		}
		logger.Debug("using SQLite history", "path", path)
		return driver, nil

	case DriverPostgres:
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN, maxEntries)
		if err != nil {
			return nil, fmt.Errorf("opening PostgreSQL history: %w", err)
		}
		logger.Debug("using PostgreSQL history")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (want %s, %s or %s)",
			cfg.Storage.Driver, DriverMemory, DriverSQLite, DriverPostgres)
	}
}

// NewPublisher returns the publisher selected by cfg.EventStream.Provider.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(cfg.EventStream.Provider) {
	case "nop", "":
		return nop.NewPublisher(), nil
	case "kafka":
		var brokers []string
		for _, b := range strings.Split(cfg.EventStream.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		return kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   cfg.EventStream.Topic,
			Logger:  logger,
		})
	default:
		return nil, fmt.Errorf("unknown event stream provider %q (want nop or kafka)", cfg.EventStream.Provider)
	}
}

// SolverOptions carries what a command adds to the configured solver.
type SolverOptions struct {
	Logger    *slog.Logger
	StateHook solver.StateHook
	Record    io.Writer
}

// NewSolver returns a solver client for cfg that reads keys from keys.
func NewSolver(cfg *config.Config, keys solver.KeySource, opts SolverOptions) (*solver.Client, error) {
	if _, err := solver.SolverModel(cfg.Model.Family, false); err != nil {
		return nil, err
	}

	return solver.New(solver.Config{
		Endpoints: solver.Endpoints{
			DashScope: cfg.Endpoints.DashScope,
			Alternate: cfg.Endpoints.Alternate,
			Gemini:    cfg.Endpoints.Gemini,
		},
		Family:         cfg.Model.Family,
		VisionModel:    cfg.Model.Vision,
		ThinkingBudget: int(cfg.Model.ThinkingBudget),
		Keys:           keys,
		Logger:         opts.Logger,
		StateHook:      opts.StateHook,
		Record:         opts.Record,
	})
}
