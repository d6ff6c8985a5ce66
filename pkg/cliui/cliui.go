// Package cliui holds the small terminal helpers shared by mathpad commands:
// step spinners, check marks and markdown rendering for solutions.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ReasonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// spinnerFrames is bubbles' spinner.Dot, so plain steps look like the TUI.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step animates a spinner next to msg while fn runs, then replaces it with
// a mark and the elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))
	return err
}

// Mark returns ✓ for a nil error and ✗ otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats d as "12ms" below a second and "3.2s" above.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Verdict is a one-line summary of a verification.
func Verdict(v *llm.Verification) string {
	if v == nil {
		return DimStyle.Render("not verified")
	}

	var line string
	switch {
	case v.Status == llm.VerificationError:
		line = FailMark + " " + WarnStyle.Render("verification failed")
	case v.Status != llm.VerificationDone:
		line = DimStyle.Render(string(v.Status))
	case v.IsCorrect == nil:
		line = WarnStyle.Render("? no verdict")
	case *v.IsCorrect:
		line = SuccessMark + " correct"
	default:
		line = FailMark + " incorrect"
	}

	if v.Summary != "" {
		line += StepStyle.Render(" · " + v.Summary)
	}
	if v.ModelUsed != "" {
		line += DimStyle.Render(" (" + v.ModelUsed + ")")
	}
	return line
}

var mathDelimiters = strings.NewReplacer(
	`\[`, "$$",
	`\]`, "$$",
	`\(`, "$",
	`\)`, "$",
)

// NormalizeMath rewrites \[ \] display math and \( \) inline math to the
// $$ and $ delimiters.
func NormalizeMath(content string) string {
	return mathDelimiters.Replace(content)
}

// RenderMarkdown renders a model reply for the terminal, wrapped at width
// columns. On failure it returns the normalized text with the error.
func RenderMarkdown(content string, width int) (string, error) {
	content = NormalizeMath(content)
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
