// Package verifycmder provides the verify command, which asks a second
// model to check a saved solution.
package verifycmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/solver"
)

const verifyLongDesc string = `Verify a saved solution with a second model.

qwen3-max solutions are checked by gemini-2.5-pro; every other solution is
checked by qwen3-max. The verdict is stored with the entry.

Without an id, the entry selected with "mathpad history use" is verified,
or the latest one.

Examples:
  mathpad verify
  mathpad verify 1718000000000`

const verifyShortDesc string = "Verify a saved solution"

func NewVerifyCmd() *cobra.Command {
	var (
		flags  config.Config
		record string
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "verify [id]",
		Short: verifyShortDesc,
		Long:  verifyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := setup.NewEnv(ctx, cmd, setup.EnvOptions{
				FlagKeys: setup.StorageFlags,
				Solver:   true,
				Record:   record,
				Plain:    plain,
			})
			if err != nil {
				return err
			}
			defer env.Close()

			var id string
			if len(args) == 1 {
				id = args[0]
			}
			entry, err := env.Entry(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "%s %s\n%s\n\n",
				cliui.HeaderStyle.Render("Entry"), cliui.NameStyle.Render(fmt.Sprint(entry.ID)), entry.Problem)

			_, err = env.Verify(ctx, entry)
			if solver.IsCancelled(err) {
				fmt.Fprintln(env.Out, cliui.DimStyle.Render("  cancelled"))
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&record, "record", "", "Write the raw upstream stream to this file")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print plain text instead of the live view")
	setup.AddStorageFlags(cmd, &flags)

	return cmd
}
