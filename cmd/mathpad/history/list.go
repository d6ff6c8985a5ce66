package historycmder

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
	"github.com/papercomputeco/mathpad/pkg/llm"
)

const problemWidth = 48

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved solutions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
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
		fmt.Fprintln(env.Out, cliui.DimStyle.Render(`No history yet. Run "mathpad solve" to add an entry.`))
		return nil
	}

	var activeID int64
	if active, err := dotdir.NewManager().LoadActive(env.ConfigDir); err == nil && active != nil {
		activeID = active.ID
	}

	fmt.Fprintf(env.Out, "  %-14s  %-16s  %-18s  %s  %5s  %s\n",
		"ID", "CREATED", "MODEL", " ", "CHAT", "PROBLEM")
	for _, e := range entries {
		marker := " "
		if e.ID == activeID {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(env.Out, "%s %-14d  %-16s  %-18s  %s  %5d  %s\n",
			marker,
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Model,
			verdictMark(e.Verification),
			len(e.Chat)/2,
			oneLine(e.Problem),
		)
	}
	return nil
}

// verdictMark is a one-column summary of v.
func verdictMark(v *llm.Verification) string {
	switch {
	case v == nil:
		return cliui.DimStyle.Render("·")
	case v.Status == llm.VerificationError:
		return cliui.WarnStyle.Render("!")
	case v.IsCorrect == nil:
		return cliui.WarnStyle.Render("?")
	case *v.IsCorrect:
		return cliui.SuccessMark
	default:
		return cliui.FailMark
	}
}

// oneLine flattens a problem onto one line and cuts it to problemWidth
// cells.
func oneLine(problem string) string {
	flat := strings.Join(strings.Fields(problem), " ")
	return ansi.Truncate(flat, problemWidth, "…")
}
