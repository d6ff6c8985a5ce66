// Mathpad CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/mathpad/internal/dagger"
)

// Mathpad is the main module for the mathpad CI/CD pipeline
type Mathpad struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Mathpad CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".mathpad", "build", "tmp"]
	source *dagger.Directory,
) *Mathpad {
	return &Mathpad{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container for platform
// with gcc, libsqlite3-dev, CGO enabled, and the project source mounted.
// An empty platform is the engine's own.
//
// It is the shared foundation for tests, builds, and linting.
func (m *Mathpad) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", m.Source)
}

// Test runs the mathpad unit tests via "go test". The PostgreSQL history
// tests skip themselves unless MATHPAD_TEST_POSTGRES_DSN is set.
func (m *Mathpad) Test(ctx context.Context) (string, error) {
	return m.goContainer("").
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
