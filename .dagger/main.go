// Screensort CI/CD
//
// Package main drives reproducible builds, tests, and linting, both locally
// and from GitHub Actions.
package main

import (
	"context"

	"dagger/screensort/internal/dagger"
)

// Screensort is the Dagger module for the screensort repository.
type Screensort struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates the module instance.
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp"]
	source *dagger.Directory,
) *Screensort {
	return &Screensort{
		Source: source,
	}
}

// goContainer is the shared base for tests, builds, and linting: a Bookworm
// Go image with gcc and CGO on, since the sqlite cache driver compiles C.
func (t *Screensort) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("screensort-go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("screensort-go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the unit test suites.
func (t *Screensort) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
