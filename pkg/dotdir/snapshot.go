package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitgor/screensort/pkg/screenshot"
)

const snapshotDir = "snapshots"

// FragmentSnapshot is the persisted transcription of one screenshot, kept
// for debugging when debug logging is enabled. Snapshots are advisory and
// never read back by the pipeline itself.
type FragmentSnapshot struct {
	// ScreenshotID is the identifier of the transcribed screenshot.
	ScreenshotID string `json:"screenshot_id"`

	// Fragments is the transcription in top-to-bottom order.
	Fragments []screenshot.Fragment `json:"fragments"`
}

// SaveFragmentSnapshot persists a snapshot to
// .screensort/snapshots/<id>.json. If overrideDir is non-empty, it is used
// instead of the default dot directory.
func (m *Manager) SaveFragmentSnapshot(snap *FragmentSnapshot, overrideDir string) error {
	if snap == nil || snap.ScreenshotID == "" {
		return errors.New("fragment snapshot requires a screenshot id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	snapDir := filepath.Join(dir, snapshotDir)
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding fragment snapshot: %w", err)
	}

	path := filepath.Join(snapDir, snap.ScreenshotID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing fragment snapshot: %w", err)
	}

	return nil
}

// LoadFragmentSnapshot loads a snapshot by screenshot id.
// Returns nil, nil if no snapshot exists for the id.
func (m *Manager) LoadFragmentSnapshot(screenshotID, overrideDir string) (*FragmentSnapshot, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, snapshotDir, screenshotID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading fragment snapshot: %w", err)
	}

	snap := &FragmentSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parsing fragment snapshot: %w", err)
	}

	return snap, nil
}
