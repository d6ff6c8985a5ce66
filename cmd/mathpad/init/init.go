// Package initcmder provides the init command for creating a local .mathpad
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
)

const dirName = ".mathpad"

const initLongDesc string = `Initialize a new .mathpad/ directory in the current working directory.

The local directory takes precedence over ~/.mathpad/ for configuration,
credentials and the SQLite history, so each project can keep its own.

With --preset, config.toml is written for one of the model families:
  qwen, gemini, glm, qwen3_8b

Examples:
  mathpad init
  mathpad init --preset gemini`

const initShortDesc string = "Initialize a local .mathpad/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write config.toml for a model family ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(w io.Writer, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()
	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .mathpad directory: %w", err)
		}
	}

	configPath := filepath.Join(dir, "config.toml")
	switch {
	case cfg != nil:
		if err := writeConfig(dir, cfg); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(cfg.Model.Family), configPath)
	case !fileExists(configPath):
		if err := writeConfig(dir, config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	if exists {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
		return nil
	}
	fmt.Fprintf(w, "Initialized .mathpad directory: %s\n", dir)
	return nil
}

func writeConfig(dir string, cfg *config.Config) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return cfger.SaveConfig(cfg)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
