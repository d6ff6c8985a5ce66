// Package historycmder provides the history command and its subcommands for
// browsing and pruning saved solutions.
package historycmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/config"
)

const historyLongDesc string = `Browse and manage saved solutions.

The history keeps the most recent entries (storage.max_history, 20 by
default); solving past the limit drops the oldest.

Examples:
  mathpad history
  mathpad history show 1718000000000
  mathpad history use 1718000000000
  mathpad history delete 1718000000000
  mathpad history clear --yes`

const historyShortDesc string = "Browse saved solutions"

func NewHistoryCmd() *cobra.Command {
	var flags config.Config

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   historyShortDesc,
		Long:    historyLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	setup.AddPersistentStorageFlags(cmd, &flags)

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func openEnv(cmd *cobra.Command) (*setup.Env, error) {
	return setup.NewEnv(cmd.Context(), cmd, setup.EnvOptions{FlagKeys: setup.StorageFlags})
}
