package historycmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one saved solution",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Store.Delete(cmd.Context(), id); err != nil {
				return err
			}

			dirs := dotdir.NewManager()
			if active, err := dirs.LoadActive(env.ConfigDir); err == nil && active != nil && active.ID == id {
				_ = dirs.ClearActive(env.ConfigDir)
			}

			fmt.Fprintf(env.Out, "  %s Deleted entry %s\n", cliui.SuccessMark, args[0])
			return nil
		},
	}
}
