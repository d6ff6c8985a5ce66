package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/credentials"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/logger"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

// StorageFlags are the registry flags every history-reading command takes.
var StorageFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagMaxHistory,
}

// ModelFlags are the registry flags of commands that call a model.
var ModelFlags = []string{
	config.FlagFamily,
	config.FlagVisionModel,
	config.FlagThinking,
	config.FlagThinkingBudget,
}

// AddStorageFlags registers StorageFlags on cmd, writing into cfg.
func AddStorageFlags(cmd *cobra.Command, cfg *config.Config) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cfg.Storage.Driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cfg.Storage.SQLitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cfg.Storage.PostgresDSN)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxHistory, &cfg.Storage.MaxHistory)
}

// AddPersistentStorageFlags registers StorageFlags on cmd and all of its
// subcommands.
func AddPersistentStorageFlags(cmd *cobra.Command, cfg *config.Config) {
	holder := &cobra.Command{}
	AddStorageFlags(holder, cfg)
	cmd.PersistentFlags().AddFlagSet(holder.Flags())
}

// AddModelFlags registers ModelFlags on cmd, writing into cfg.
func AddModelFlags(cmd *cobra.Command, cfg *config.Config) {
	config.AddStringFlag(cmd, config.Flags, config.FlagFamily, &cfg.Model.Family)
	config.AddStringFlag(cmd, config.Flags, config.FlagVisionModel, &cfg.Model.Vision)
	config.AddBoolFlag(cmd, config.Flags, config.FlagThinking, &cfg.Model.Thinking)
	config.AddUintFlag(cmd, config.Flags, config.FlagThinkingBudget, &cfg.Model.ThinkingBudget)
}

// EnvOptions selects what NewEnv builds.
type EnvOptions struct {
	// FlagKeys are the registry flags cmd registered.
	FlagKeys []string

	// Solver builds a solver client.
	Solver bool

	// Record is a file that receives the raw bytes of every stream.
	Record string

	// Plain disables the live terminal view.
	Plain bool
}

// Env is what one CLI invocation works with.
type Env struct {
	Config    *config.Config
	ConfigDir string
	Logger    *slog.Logger
	Store     storage.Driver
	Solver    *solver.Client

	Out         io.Writer
	Interactive bool

	dirs    *dotdir.Manager
	closers []io.Closer
}

// NewEnv resolves the configuration of cmd and opens the history store,
// plus the solver when asked.
func NewEnv(ctx context.Context, cmd *cobra.Command, opts EnvOptions) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := LoadConfig(cmd, opts.FlagKeys...)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    logger.New(logger.WithDebug(debug), logger.WithFormat(logger.FormatPretty), logger.WithWriter(cmd.ErrOrStderr())),
		Out:       cmd.OutOrStdout(),
		dirs:      dotdir.NewManager(),
	}
	if f, ok := env.Out.(*os.File); ok && !opts.Plain {
		env.Interactive = term.IsTerminal(int(f.Fd()))
	}

	env.Store, err = OpenStorage(ctx, cfg, configDir, env.Logger)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, env.Store)

	if !opts.Solver {
		return env, nil
	}

	keys, err := credentials.NewManager(configDir)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	var record io.Writer
	if opts.Record != "" {
		f, err := os.Create(opts.Record)
		if err != nil {
			_ = env.Close()
			return nil, fmt.Errorf("creating record file: %w", err)
		}
		env.closers = append(env.closers, f)
		record = f
	}

	env.Solver, err = NewSolver(cfg, keys, SolverOptions{Logger: env.Logger, Record: record})
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	return env, nil
}

// Close releases the store and any record file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Stream runs fn with a live view on a terminal, or prints its content as
// it arrives otherwise.
func (e *Env) Stream(ctx context.Context, title string, fn cliui.StreamFunc) error {
	if e.Interactive {
		return cliui.RunStream(ctx, e.Out, title, fn)
	}
	return cliui.PrintStream(ctx, e.Out, fn)
}

// Render prints a model reply as markdown on a terminal. Plain output
// already carries the text from Stream.
func (e *Env) Render(content string) {
	if !e.Interactive {
		return
	}
	out, err := cliui.RenderMarkdown(content, 0)
	if err != nil {
		e.Logger.Debug("rendering markdown failed", "error", err)
	}
	fmt.Fprint(e.Out, out)
}

// Entry resolves the entry a command works on: the entry named by arg,
// else the one selected with "mathpad history use", else the latest.
func (e *Env) Entry(ctx context.Context, arg string) (*storage.Entry, error) {
	if arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid entry id %q", arg)
		}
		return e.Store.Get(ctx, id)
	}

	active, err := e.dirs.LoadActive(e.ConfigDir)
	if err != nil {
		return nil, err
	}
	if active != nil {
		entry, err := e.Store.Get(ctx, active.ID)
		var nf storage.NotFoundError
		switch {
		case err == nil:
			return entry, nil
		case errors.As(err, &nf):
			e.Logger.Debug("selected entry is gone, using the latest", "id", active.ID)
			_ = e.dirs.ClearActive(e.ConfigDir)
		default:
			return nil, err
		}
	}

	entry, err := e.Store.Latest(ctx)
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return nil, errors.New(`no history yet; run "mathpad solve" first`)
	}
	return entry, err
}

// Select makes entry the one chat and verify continue.
func (e *Env) Select(entry *storage.Entry) error {
	return e.dirs.SaveActive(&dotdir.ActiveEntry{
		ID:      entry.ID,
		Problem: preview(entry.Problem),
	}, e.ConfigDir)
}

// Verify streams a review of entry's solution, stores the settled
// verification and prints the verdict.
func (e *Env) Verify(ctx context.Context, entry *storage.Entry) (*llm.Verification, error) {
	title := "Verifying with " + solver.VerifierModel(entry.Model)

	var v *llm.Verification
	err := e.Stream(ctx, title, func(ctx context.Context, progress llm.ProgressFunc) error {
		var err error
		v, err = e.Solver.Verify(ctx, solver.VerifyRequest{
			Problem:     entry.Problem,
			Solution:    entry.Solution,
			SolverModel: entry.Model,
		}, progress)
		return err
	})

	if v != nil {
		// Stored even when the run failed, so the entry shows the error.
		if serr := e.Store.SetVerification(context.WithoutCancel(ctx), entry.ID, v); serr != nil {
			e.Logger.Warn("failed to store verification", "id", entry.ID, "error", serr)
		}
	}
	if err != nil {
		return v, err
	}

	e.Render(v.Content)
	fmt.Fprintf(e.Out, "\n  %s\n", cliui.Verdict(v))
	return v, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 60 {
		return string(r[:60]) + "…"
	}
	return s
}
