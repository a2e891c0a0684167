package main

import (
	"context"
	"fmt"

	"dagger/screensort/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts layers golangci-lint onto goContainer so CGO and the module
// caches are already in place when the linter type-checks the tree.
func (t *Screensort) lintOpts() dagger.GolangcilintOpts {
	base := t.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  t.Source.File(".golangci.yml"),
	}
}

// CheckLint reports lint findings without touching the source.
func (t *Screensort) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(t.Source, t.lintOpts()).Check(ctx)
}

// FixLint applies the automatic fixes and returns the modified source tree.
func (t *Screensort) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(t.Source, t.lintOpts()).Lint()
}
