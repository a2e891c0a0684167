package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/screensort/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum,
// which means the change was committed without tidying.
//
// +check
func (t *Screensort) CheckGoModTidy(ctx context.Context) (string, error) {
	out, err := t.goContainer().
		WithExec([]string{"sh", "-c", "cp go.mod /tmp/ && cp go.sum /tmp/"}).
		WithExec([]string{"go", "mod", "tidy"}).
		WithExec([]string{
			"sh", "-c",
			"diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum",
		}).
		Stdout(ctx)

	var execErr *dagger.ExecError
	switch {
	case errors.As(err, &execErr):
		return "", fmt.Errorf(
			"go.mod or go.sum are not tidy: run 'go mod tidy' and commit the changes\n\n%s",
			execErr.Stdout,
		)
	case err != nil:
		return "", fmt.Errorf("unexpected error: %w", err)
	}

	return fmt.Sprintf("go.mod and go.sum are tidy: %s", out), nil
}
