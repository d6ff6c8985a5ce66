package cliui

import (
	"bytes"
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

var _ = Describe("stream view", func() {
	var (
		m         streamModel
		cancelled bool
	)

	BeforeEach(func() {
		cancelled = false
		m = newStreamModel("Solving", func() { cancelled = true })
	})

	update := func(msg tea.Msg) (streamModel, tea.Cmd) {
		next, cmd := m.Update(msg)
		return next.(streamModel), cmd
	}

	It("shows the latest content", func() {
		m, _ = update(progressMsg{state: llm.StreamState{Content: "step 1\nstep 2"}})

		Expect(m.View()).To(ContainSubstring("Solving"))
		Expect(m.View()).To(ContainSubstring("step 2"))
	})

	It("marks reasoning updates as thinking", func() {
		m, _ = update(progressMsg{state: llm.StreamState{Reasoning: "hmm"}, reasoning: true})
		Expect(m.View()).To(ContainSubstring("thinking"))
		Expect(m.View()).NotTo(ContainSubstring("hmm"))

		m, _ = update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
		Expect(m.View()).To(ContainSubstring("hmm"))
	})

	It("cancels on ctrl+c and waits for the stream to settle", func() {
		m, cmd := update(tea.KeyMsg{Type: tea.KeyCtrlC})
		Expect(cancelled).To(BeTrue())
		Expect(cmd).To(BeNil())
		Expect(m.View()).To(ContainSubstring("stopping"))
	})

	It("quits once the stream settles", func() {
		boom := errors.New("boom")
		m, cmd := update(finishedMsg{err: boom})
		Expect(m.err).To(MatchError(boom))
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))
	})

	It("keeps only the tail", func() {
		Expect(tail("", 3)).To(BeEmpty())
		Expect(tail("a\nb\nc\nd\n", 2)).To(Equal([]string{"c", "d"}))
	})
})

var _ = Describe("PrintStream", func() {
	It("writes each new piece of content once", func() {
		var buf bytes.Buffer
		err := PrintStream(context.Background(), &buf, func(_ context.Context, progress llm.ProgressFunc) error {
			progress(llm.StreamState{Reasoning: "r"}, true)
			progress(llm.StreamState{Content: "x ", Reasoning: "r"}, false)
			progress(llm.StreamState{Content: "x = 1", Reasoning: "r"}, false)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("x = 1\n"))
	})
})
