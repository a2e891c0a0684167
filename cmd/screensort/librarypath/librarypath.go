// Package librarypath locates the screenshot library directory for
// screensort commands.
package librarypath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const localDirName = "screenshots"

// Resolve picks the screenshot library directory:
//  1. Explicit override (flag, config file, or SCREENSORT_LIBRARY_PATH)
//  2. SCREENSORT_LIBRARY environment variable
//  3. ./screenshots when it exists
//  4. ~/Screenshots when it exists
func Resolve(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("SCREENSORT_LIBRARY")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range candidates() {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.New("could not find a screenshot library; pass --library")
}

func candidates() []string {
	cands := []string{localDirName}

	home, err := os.UserHomeDir()
	if err == nil {
		cands = append(cands, filepath.Join(home, "Screenshots"))
	}

	return cands
}
