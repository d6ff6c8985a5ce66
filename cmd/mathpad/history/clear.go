package historycmder

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
)

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved solution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			entries, err := env.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(env.Out, cliui.DimStyle.Render("History is already empty."))
				return nil
			}

			if !yes {
				fmt.Fprintf(env.Out, "Delete all %d entries? [y/N] ", len(entries))
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(env.Out, "Aborted.")
					return nil
				}
			}

			if err := env.Store.Clear(cmd.Context()); err != nil {
				return err
			}
			_ = dotdir.NewManager().ClearActive(env.ConfigDir)

			fmt.Fprintf(env.Out, "  %s Deleted %d entries\n", cliui.SuccessMark, len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")

	return cmd
}
