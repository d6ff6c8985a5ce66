package main

import (
	"context"
	"fmt"

	"dagger/mathpad/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts layers golangci-lint on top of goContainer so the sqlite dev
// headers and Go caches are already in place. The linter runs with its
// default rule set.
func (m *Mathpad) lintOpts() dagger.GolangcilintOpts {
	base := m.goContainer("").
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{BaseCtr: base}
}

// CheckLint runs golangci-lint without applying fixes.
func (m *Mathpad) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(m.Source, m.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint with --fix and returns the modified source.
func (m *Mathpad) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(m.Source, m.lintOpts()).Lint()
}
