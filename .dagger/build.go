package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dagger/screensort/internal/dagger"
)

// Build cross-compiles the screensort binary for the release targets.
//
// The sqlite cache uses mattn/go-sqlite3, so every target needs a C
// toolchain: amd64 builds with the native gcc, arm64 through the aarch64
// cross compiler. macOS users install with "go install" instead.
func (t *Screensort) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	targets := []struct {
		goarch string
		cc     string
	}{
		{goarch: "amd64", cc: "gcc"},
		{goarch: "arm64", cc: "aarch64-linux-gnu-gcc"},
	}

	golang := t.goContainer().
		WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu"})

	outputs := dag.Directory()

	for _, target := range targets {
		dir := path.Join("linux", target.goarch) + "/"

		build := golang.
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", target.goarch).
			WithEnvVariable("CC", target.cc).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", dir, "./cli/screensort"})

		outputs = outputs.WithDirectory(dir, build.Directory(dir))
	}

	return outputs
}

// BuildRelease compiles release binaries with the version, commit, and build
// time stamped into pkg/utils.
func (t *Screensort) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	stamp := func(name, value string) string {
		return fmt.Sprintf("-X 'github.com/mitgor/screensort/pkg/utils.%s=%s'", name, value)
	}

	ldflags := []string{
		"-s",
		"-w",
		stamp("Version", version),
		stamp("Sha", commit),
		stamp("Buildtime", time.Now().Format(time.RFC3339)),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}
