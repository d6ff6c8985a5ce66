// Package servecmder provides the serve command, which runs the API server
// a drawing front-end talks to.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/api"
	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/canvas"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/credentials"
	"github.com/papercomputeco/mathpad/pkg/logger"
	"github.com/papercomputeco/mathpad/pkg/worker"
)

const serveLongDesc string = `Run the mathpad API server.

The server owns one drawing board and the solution history. A front-end
draws strokes on the board, then streams transcription, solutions,
verifications and chat answers as server-sent events from /v1/solve,
/v1/verify and /v1/chat. Results are stored in the background and,
with --events kafka, published to a Kafka topic.

Keys saved with "mathpad auth" are picked up without a restart.

Examples:
  mathpad serve
  mathpad serve --listen :9000 --storage postgres --postgres-dsn postgres://localhost/mathpad
  mathpad serve --events kafka --kafka-brokers localhost:9092 --log-file mathpad.log`

const serveShortDesc string = "Run the API server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagEventsProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

type serveCommander struct {
	flags config.Config

	workers   uint
	logFormat string
	logFile   string
}

func NewServeCmd() *cobra.Command {
	c := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &c.flags.API.Listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &c.flags.EventStream.Provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &c.flags.EventStream.Brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &c.flags.EventStream.Topic)
	setup.AddModelFlags(cmd, &c.flags)
	setup.AddStorageFlags(cmd, &c.flags)

	cmd.Flags().UintVar(&c.workers, "workers", 2, "Background workers that store results")
	cmd.Flags().StringVar(&c.logFormat, "log-format", "text", "Log format on stderr: text, json or pretty")
	cmd.Flags().StringVar(&c.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")

	log, closeLog, err := c.newLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	flagKeys := append(append(append([]string{}, serveFlags...), setup.ModelFlags...), setup.StorageFlags...)
	cfg, err := setup.LoadConfig(cmd, flagKeys...)
	if err != nil {
		return err
	}

	store, err := setup.OpenStorage(ctx, cfg, configDir, log)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := setup.NewPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver:     store,
		Publisher:  publisher,
		NumWorkers: c.workers,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	keys, err := c.newKeyStore(ctx, configDir, log)
	if err != nil {
		return err
	}

	client, err := setup.NewSolver(cfg, keys, setup.SolverOptions{
		Logger:    log,
		StateHook: api.StateHook,
	})
	if err != nil {
		return err
	}

	board := canvas.New(int(cfg.Canvas.Width), int(cfg.Canvas.Height))

	server, err := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, client, store, pool, board, log)
	if err != nil {
		return err
	}

	log.Info("mathpad server ready",
		"listen", cfg.API.Listen,
		"family", cfg.Model.Family,
		"storage", cfg.Storage.Driver,
		"events", cfg.EventStream.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	if err := server.Shutdown(); err != nil {
		log.Warn("API server shutdown failed", "error", err)
	}
	return nil
}

// newKeyStore loads credentials.toml and keeps it fresh until ctx ends.
func (c *serveCommander) newKeyStore(ctx context.Context, configDir string, log *slog.Logger) (*credentials.Store, error) {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	keys, err := credentials.NewStore(mgr, log)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	go func() {
		if err := keys.Watch(ctx); err != nil {
			log.Warn("credentials will not reload", "error", err)
		}
	}()
	return keys, nil
}

// newLogger logs to stderr in --log-format and, with --log-file, to the
// file as JSON as well.
func (c *serveCommander) newLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	debug, _ := cmd.Flags().GetBool("debug")

	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, nil, err
	}
	stderr := logger.New(logger.WithDebug(debug), logger.WithFormat(format), logger.WithWriter(cmd.ErrOrStderr()))

	if c.logFile == "" {
		return stderr, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(logger.WithDebug(debug), logger.WithFormat(logger.FormatJSON), logger.WithWriter(f), logger.WithSource(true))

	return logger.Multi(stderr, file), func() { _ = f.Close() }, nil
}
