package historycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
)

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Select the entry that chat and verify continue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			entry, err := env.Entry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := env.Select(entry); err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "  %s Using entry %s: %s\n",
				cliui.SuccessMark, cliui.NameStyle.Render(args[0]), oneLine(entry.Problem))
			return nil
		},
	}
}
