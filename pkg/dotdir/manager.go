// Package dotdir manages the .screensort/ and ~/.screensort directories.
//
// The dot directory holds the config file, the credentials file, the default
// sqlite cache, and optional fragment snapshots written for debugging.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// dirName is the directory name used both locally and under $HOME.
const dirName = ".screensort"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .screensort/ directory to use,
// creating it when missing. An explicit override wins, then a ./.screensort/
// in the working directory, then ~/.screensort.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.pick(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating screensort directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) pick(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, dirName), nil
}
