// Package chatcmder provides the chat command for follow-up questions about
// a saved solution.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/cliui"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

const chatLongDesc string = `Ask follow-up questions about a saved solution.

The model sees the problem, the solution and every earlier question and
answer of the entry. Each exchange is saved as soon as it completes.

With a question argument, chat answers it and exits. Otherwise it reads
questions line by line until "exit", "quit" or end of input.

Without --id, chat continues the entry selected with "mathpad history use",
or the latest one.

Examples:
  mathpad chat
  mathpad chat "why is the discriminant negative?"
  mathpad chat --id 1718000000000 --thinking`

const chatShortDesc string = "Ask about a saved solution"

type chatCommander struct {
	flags  config.Config
	id     string
	record string
	plain  bool

	env   *setup.Env
	entry *storage.Entry
}

func NewChatCmd() *cobra.Command {
	c := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&c.id, "id", "", "Entry to ask about")
	cmd.Flags().StringVar(&c.record, "record", "", "Write the raw upstream stream to this file")
	cmd.Flags().BoolVar(&c.plain, "plain", false, "Print plain text instead of the live view")
	setup.AddModelFlags(cmd, &c.flags)
	setup.AddStorageFlags(cmd, &c.flags)

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	var err error
	c.env, err = setup.NewEnv(ctx, cmd, setup.EnvOptions{
		FlagKeys: append(append([]string{}, setup.ModelFlags...), setup.StorageFlags...),
		Solver:   true,
		Record:   c.record,
		Plain:    c.plain,
	})
	if err != nil {
		return err
	}
	defer c.env.Close()

	c.entry, err = c.env.Entry(ctx, c.id)
	if err != nil {
		return err
	}

	if question = strings.TrimSpace(question); question != "" {
		return c.ask(ctx, question)
	}

	out := c.env.Out
	fmt.Fprintf(out, "%s %s\n%s\n",
		cliui.HeaderStyle.Render("Entry"), cliui.NameStyle.Render(fmt.Sprint(c.entry.ID)), c.entry.Problem)
	if n := len(c.entry.Chat) / 2; n > 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render(fmt.Sprintf("%d earlier question(s)", n)))
	}
	fmt.Fprintln(out, cliui.DimStyle.Render(`Type a question, or "exit" to leave.`))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n"+cliui.KeyStyle.Render("› "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		err := c.ask(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "  %s %s\n", cliui.FailMark, err)
		}
	}
}

// ask streams one answer and saves the exchange.
func (c *chatCommander) ask(ctx context.Context, question string) error {
	env := c.env
	model, _ := solver.SolverModel(env.Config.Model.Family, env.Config.Model.Thinking)

	var res *llm.Result
	err := env.Stream(ctx, "Answering with "+model, func(ctx context.Context, progress llm.ProgressFunc) error {
		var err error
		res, err = env.Solver.Chat(ctx, solver.ChatRequest{
			Problem:  c.entry.Problem,
			Solution: c.entry.Solution,
			History:  c.entry.Chat,
			Query:    question,
			Thinking: env.Config.Model.Thinking,
		}, progress)
		return err
	})
	if solver.IsCancelled(err) {
		fmt.Fprintln(env.Out, cliui.DimStyle.Render("  cancelled"))
		return nil
	}
	if err != nil {
		return err
	}

	chat := append(append([]llm.ChatMessage(nil), c.entry.Chat...),
		llm.ChatMessage{Role: llm.RoleUser, Content: question},
		llm.ChatMessage{Role: llm.RoleAssistant, Content: res.Content, Reasoning: res.Reasoning},
	)
	err = env.Store.UpdateChat(context.WithoutCancel(ctx), c.entry.ID, chat)
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return errors.New("the entry was deleted; the answer was not saved")
	}
	if err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	c.entry.Chat = chat

	env.Render(res.Content)
	return nil
}
