// Package cachestore resolves and opens the processing cache backing
// screensort commands.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/cache/postgres"
	"github.com/mitgor/screensort/pkg/cache/sqlite"
	"github.com/mitgor/screensort/pkg/dotdir"
)

const sqliteFile = "cache.db"

// Open creates the cache store for the configured backend. An empty
// backend means sqlite.
func Open(ctx context.Context, backend, sqlitePath, postgresDSN string) (cache.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		path, err := ResolveSQLitePath(sqlitePath)
		if err != nil {
			return nil, err
		}
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		return store, nil

	case "postgres":
		if strings.TrimSpace(postgresDSN) == "" {
			return nil, errors.New("postgres cache requires a connection string; pass --postgres-dsn or set cache.postgres_dsn")
		}
		store, err := postgres.NewStore(ctx, postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres cache: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %q (expected sqlite or postgres)", backend)
	}
}

// ResolveSQLitePath picks the sqlite cache location:
//  1. Explicit override
//  2. SCREENSORT_SQLITE or SCREENSORT_CACHE environment variables
//  3. An existing cache.db in a known location
//  4. cache.db in the resolved .screensort/ directory, created on first use
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("SCREENSORT_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("SCREENSORT_CACHE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Nothing exists yet; the first run creates the cache in the dot
	// directory.
	target, err := dotdir.NewManager().Target("")
	if err != nil {
		return "", fmt.Errorf("resolving cache location: %w", err)
	}

	return filepath.Join(target, sqliteFile), nil
}

// sqliteCandidates lists existing-cache probe locations, local first to
// match dot directory precedence.
func sqliteCandidates() []string {
	candidates := []string{
		filepath.Join(".screensort", sqliteFile),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".screensort", sqliteFile))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "screensort", sqliteFile))
	}

	return candidates
}
