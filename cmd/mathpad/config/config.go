// Package configcmder provides the config command for managing persistent
// mathpad configuration stored in the .mathpad/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
)

const configLongDesc string = `Manage persistent mathpad configuration.

Configuration is stored as config.toml in the .mathpad/ directory and
provides default values for command flags. CLI flags and MATHPAD_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  model.family, model.vision, model.thinking, model.thinking_budget,
  endpoints.dashscope, endpoints.alternate, endpoints.gemini,
  storage.driver, storage.sqlite_path, storage.postgres_dsn, storage.max_history,
  api.listen, eventstream.provider, eventstream.brokers, eventstream.topic,
  canvas.width, canvas.height

Examples:
  mathpad config set model.family gemini
  mathpad config set model.thinking true
  mathpad config get model.family
  mathpad config list`

const configShortDesc string = "Manage persistent mathpad configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

// openConfig loads the configer and prints which file is in use.
func openConfig(w io.Writer, configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
	return cfger, nil
}
