package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/mathpad/internal/dagger"
)

// Build and return directory of mathpad binaries, one per Linux
// architecture. The SQLite driver needs cgo, so each architecture is built
// natively on its own platform rather than cross-compiled.
func (m *Mathpad) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, platform := range releasePlatforms {
		path := string(platform) + "/"

		build := m.goContainer(platform).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/mathpad"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (m *Mathpad) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/mathpad/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/mathpad/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/mathpad/pkg/utils.Buildtime=%s'", buildtime),
	}

	return m.Build(ctx, strings.Join(ldflags, " "))
}
