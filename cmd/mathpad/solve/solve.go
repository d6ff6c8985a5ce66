// Package solvecmder provides the solve command: transcribe a drawing or
// take a typed problem, stream its solution and save it to the history.
package solvecmder

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // photographs of paper
	_ "image/png"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/canvas"
	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

const solveLongDesc string = `Solve a math problem and save it to the history.

The problem comes from a drawing or photograph (--image), which is
transcribed with the vision model first, or from typed text (--text).
--extra appends notes to the problem, such as "give the answer in degrees".

The solution streams live on a terminal; press r to show the model's
reasoning and ctrl+c to stop. The solved entry becomes the one that
"mathpad chat" and "mathpad verify" continue.

Examples:
  mathpad solve --image problem.png
  mathpad solve --image photo.jpg --extra "use radians" --verify
  mathpad solve --text "integrate x^2 from 0 to 1" --family gemini --thinking`

const solveShortDesc string = "Solve a drawn or typed problem"

type solveCommander struct {
	flags config.Config

	image  string
	text   string
	extra  string
	record string
	verify bool
	plain  bool
}

func NewSolveCmd() *cobra.Command {
	c := &solveCommander{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: solveShortDesc,
		Long:  solveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.image == "" && strings.TrimSpace(c.text) == "" {
				return errors.New("nothing to solve: pass --image or --text")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, cmd)
		},
	}

	cmd.Flags().StringVarP(&c.image, "image", "i", "", "PNG or JPEG of the handwritten problem")
	cmd.Flags().StringVarP(&c.text, "text", "t", "", "Typed problem, skipping transcription")
	cmd.Flags().StringVarP(&c.extra, "extra", "e", "", "Notes appended to the problem")
	cmd.Flags().StringVar(&c.record, "record", "", "Write the raw upstream stream to this file")
	cmd.Flags().BoolVar(&c.verify, "verify", false, "Verify the solution with a second model")
	cmd.Flags().BoolVar(&c.plain, "plain", false, "Print plain text instead of the live view")
	cmd.MarkFlagsMutuallyExclusive("image", "text")

	setup.AddModelFlags(cmd, &c.flags)
	setup.AddStorageFlags(cmd, &c.flags)

	return cmd
}

func (c *solveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	env, err := setup.NewEnv(ctx, cmd, setup.EnvOptions{
		FlagKeys: append(append([]string{}, setup.ModelFlags...), setup.StorageFlags...),
		Solver:   true,
		Record:   c.record,
		Plain:    c.plain,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	model, err := solver.SolverModel(env.Config.Model.Family, env.Config.Model.Thinking)
	if err != nil {
		return err
	}

	entry := &storage.Entry{CreatedAt: time.Now()}

	problem := strings.TrimSpace(c.text)
	if c.image != "" {
		entry.Image, err = loadImage(c.image)
		if err != nil {
			return err
		}
		err = cliui.Step(env.Out, "Transcribing with "+env.Config.Model.Vision, func() error {
			problem, err = env.Solver.Extract(ctx, entry.Image)
			return err
		})
		if solver.IsCancelled(err) {
			fmt.Fprintln(env.Out, cliui.DimStyle.Render("  cancelled"))
			return nil
		}
		if err != nil {
			return err
		}
	}

	entry.Problem = solver.CombineProblem(problem, c.extra)
	fmt.Fprintf(env.Out, "\n%s\n%s\n\n", cliui.HeaderStyle.Render("Problem"), entry.Problem)

	var res *llm.Result
	err = env.Stream(ctx, "Solving with "+model, func(ctx context.Context, progress llm.ProgressFunc) error {
		var err error
		res, err = env.Solver.Solve(ctx, solver.SolveRequest{
			Problem:  entry.Problem,
			Thinking: env.Config.Model.Thinking,
		}, progress)
		return err
	})
	if solver.IsCancelled(err) {
		fmt.Fprintln(env.Out, cliui.DimStyle.Render("  cancelled, nothing saved"))
		return nil
	}
	if err != nil {
		return err
	}

	entry.Solution = res.Content
	entry.Reasoning = res.Reasoning
	entry.Model = res.Model
	entry.Chat = []llm.ChatMessage{}

	// A solve that finished is kept even if ctrl+c arrives now.
	store := context.WithoutCancel(ctx)
	if err := env.Store.Add(store, entry); err != nil {
		return fmt.Errorf("saving to history: %w", err)
	}
	if err := env.Select(entry); err != nil {
		env.Logger.Warn("failed to select entry", "id", entry.ID, "error", err)
	}

	env.Render(entry.Solution)
	fmt.Fprintf(env.Out, "\n  %s Saved as entry %s\n",
		cliui.SuccessMark, cliui.NameStyle.Render(strconv.FormatInt(entry.ID, 10)))

	if !c.verify {
		return nil
	}
	fmt.Fprintln(env.Out)
	_, err = env.Verify(ctx, entry)
	if solver.IsCancelled(err) {
		fmt.Fprintln(env.Out, cliui.DimStyle.Render("  verification cancelled"))
		return nil
	}
	return err
}

// loadImage reads a PNG or JPEG and flattens it onto a white board, so the
// vision model always receives an opaque PNG.
func loadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	board := canvas.New(1, 1)
	if err := board.Load(img); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return board.PNG()
}
