// Package mathpadcmder is the root of the mathpad command tree.
package mathpadcmder

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/mathpad/cmd/mathpad/auth"
	chatcmder "github.com/papercomputeco/mathpad/cmd/mathpad/chat"
	configcmder "github.com/papercomputeco/mathpad/cmd/mathpad/config"
	historycmder "github.com/papercomputeco/mathpad/cmd/mathpad/history"
	initcmder "github.com/papercomputeco/mathpad/cmd/mathpad/init"
	servecmder "github.com/papercomputeco/mathpad/cmd/mathpad/serve"
	solvecmder "github.com/papercomputeco/mathpad/cmd/mathpad/solve"
	verifycmder "github.com/papercomputeco/mathpad/cmd/mathpad/verify"
	versioncmder "github.com/papercomputeco/mathpad/cmd/version"
)

const mathpadLongDesc string = `mathpad solves handwritten math.

Draw or photograph a problem, and mathpad transcribes it with a vision
model, streams a step-by-step solution, checks it with a second model and
answers follow-up questions about it.

  mathpad solve --image problem.png   Transcribe and solve a drawing
  mathpad solve --text "2x + 1 = 5"   Solve a typed problem
  mathpad verify                      Check the latest solution
  mathpad chat                        Ask about the latest solution
  mathpad serve                       Run the API server for a front-end`

const mathpadShortDesc string = "mathpad - handwritten math solver"

func NewMathpadCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:           "mathpad",
		Short:         mathpadShortDesc,
		Long:          mathpadLongDesc,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor || termenv.EnvNoColor() {
				lipgloss.SetColorProfile(termenv.Ascii)
				return
			}
			lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
		},
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mathpad directory")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(solvecmder.NewSolveCmd())
	cmd.AddCommand(verifycmder.NewVerifyCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
