package historycmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

func newShowCmd() *cobra.Command {
	var reasoning bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a saved solution with its chat and verification",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			entry, err := env.Entry(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			show(env, entry, reasoning)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reasoning, "reasoning", "r", false, "Include the model's reasoning")

	return cmd
}

func show(env *setup.Env, e *storage.Entry, reasoning bool) {
	w := env.Out

	field(w, "ID", fmt.Sprint(e.ID))
	field(w, "Created", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	field(w, "Model", e.Model)
	if len(e.Image) > 0 {
		field(w, "Image", fmt.Sprintf("%d bytes PNG", len(e.Image)))
	}

	section(w, "Problem")
	fmt.Fprintln(w, e.Problem)

	if reasoning && e.Reasoning != "" {
		section(w, "Reasoning")
		fmt.Fprintln(w, cliui.ReasonStyle.Render(e.Reasoning))
	}

	section(w, "Solution")
	body(env, e.Solution)

	for _, turn := range e.Chat {
		if turn.Role == llm.RoleUser {
			section(w, "You")
			fmt.Fprintln(w, turn.Content)
			continue
		}
		section(w, "Answer")
		if reasoning && turn.Reasoning != "" {
			fmt.Fprintln(w, cliui.ReasonStyle.Render(turn.Reasoning))
		}
		body(env, turn.Content)
	}

	section(w, "Verification")
	fmt.Fprintln(w, cliui.Verdict(e.Verification))
	if e.Verification != nil && e.Verification.Content != "" {
		fmt.Fprintln(w)
		body(env, e.Verification.Content)
	}
}

func field(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-8s", key+":")), cliui.ValueStyle.Render(value))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", cliui.HeaderStyle.Render(title))
}

// body prints model text as markdown on a terminal and verbatim otherwise.
func body(env *setup.Env, content string) {
	if env.Interactive {
		env.Render(content)
		return
	}
	fmt.Fprintln(env.Out, content)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
