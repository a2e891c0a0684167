// Package fs implements library.Library on a local directory of captured
// screenshots. Destinations are subdirectories named after the content
// type. Ids are sha256 content hashes so they survive renames and moves.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/imagemeta"

	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// imageExts are the capture formats we recognize as screenshots.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".heic": true,
	".webp": true,
}

const noteExt = ".note"

// Library reads screenshots from root and sorts them into subdirectories
// of destRoot.
type Library struct {
	root     string
	destRoot string

	mu    sync.RWMutex
	paths map[string]string // screenshot id -> current image path
}

var _ library.Library = (*Library)(nil)

// New creates a filesystem library rooted at root. destRoot is where the
// per-type destination directories live; empty means alongside the
// captures in root.
func New(root, destRoot string) *Library {
	if destRoot == "" {
		destRoot = root
	}

	return &Library{
		root:     root,
		destRoot: destRoot,
		paths:    make(map[string]string),
	}
}

// Authorized verifies the captures directory exists and is readable.
func (l *Library) Authorized(ctx context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return fmt.Errorf("screenshot library not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("screenshot library %s is not a directory", l.root)
	}

	f, err := os.Open(l.root)
	if err != nil {
		return fmt.Errorf("screenshot library not readable: %w", err)
	}
	f.Close()

	return nil
}

// List returns the unsorted screenshots in the captures directory, oldest
// first. Sorted screenshots live in destination subdirectories and are
// not listed again.
func (l *Library) List(ctx context.Context) ([]screenshot.Screenshot, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("listing screenshot library: %w", err)
	}

	shots := make([]screenshot.Screenshot, 0, len(entries))

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() || !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(l.root, entry.Name())
		shot, err := l.readScreenshot(path)
		if err != nil {
			// A capture we cannot even open is skipped, not fatal.
			continue
		}

		l.paths[shot.ID] = path
		shots = append(shots, shot)
	}

	sort.Slice(shots, func(i, j int) bool {
		if shots[i].CapturedAt.Equal(shots[j].CapturedAt) {
			return shots[i].ID < shots[j].ID
		}
		return shots[i].CapturedAt.Before(shots[j].CapturedAt)
	})

	return shots, nil
}

func (l *Library) readScreenshot(path string) (screenshot.Screenshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return screenshot.Screenshot{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return screenshot.Screenshot{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return screenshot.Screenshot{}, err
	}
	id := hex.EncodeToString(h.Sum(nil))

	capturedAt := info.ModTime().UTC()
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if t, ok := exifCaptureTime(f); ok {
			capturedAt = t
		}
	}

	shot := screenshot.Screenshot{
		ID:         id,
		CapturedAt: capturedAt,
	}

	if note, err := os.ReadFile(filepath.Join(filepath.Dir(path), id+noteExt)); err == nil {
		shot.Note = strings.TrimSpace(string(note))
	}

	return shot, nil
}

// exifCaptureTime reads DateTimeOriginal from EXIF data. Missing or
// unparseable metadata degrades to the mtime fallback, never an error.
func exifCaptureTime(r io.ReadSeeker) (time.Time, bool) {
	var captured time.Time
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       r,
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Tag == "DateTimeOriginal"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch v := ti.Value.(type) {
			case time.Time:
				captured = v.UTC()
				found = true
			case string:
				if t, err := time.Parse("2006:01:02 15:04:05", v); err == nil {
					captured = t.UTC()
					found = true
				}
			}
			return nil
		},
	})
	if err != nil {
		return time.Time{}, false
	}

	return captured, found
}

// EnsureDestination creates the destination directory for a content type.
func (l *Library) EnsureDestination(ctx context.Context, t screenshot.ContentType) error {
	if !t.IsValid() || t == screenshot.ContentTypeUnknown {
		return fmt.Errorf("no destination for content type %q", t)
	}

	dir := filepath.Join(l.destRoot, string(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating destination %s: %w", dir, err)
	}

	return nil
}

// Move renames a screenshot into the destination for its type. The note
// sidecar, when present, travels with the image.
func (l *Library) Move(ctx context.Context, id string, t screenshot.ContentType) error {
	if !t.IsValid() || t == screenshot.ContentTypeUnknown {
		return fmt.Errorf("no destination for content type %q", t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.paths[id]
	if !ok {
		return library.ErrNotFound{ID: id}
	}

	dst := filepath.Join(l.destRoot, string(t), filepath.Base(src))
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving screenshot %s: %w", id, err)
	}
	l.paths[id] = dst

	sidecar := filepath.Join(filepath.Dir(src), id+noteExt)
	if _, err := os.Stat(sidecar); err == nil {
		dstSidecar := filepath.Join(filepath.Dir(dst), id+noteExt)
		if err := os.Rename(sidecar, dstSidecar); err != nil {
			return fmt.Errorf("moving note for screenshot %s: %w", id, err)
		}
	}

	return nil
}

// Annotate writes a note sidecar next to the screenshot.
func (l *Library) Annotate(ctx context.Context, id string, note string) error {
	l.mu.RLock()
	path, ok := l.paths[id]
	l.mu.RUnlock()
	if !ok {
		return library.ErrNotFound{ID: id}
	}

	sidecar := filepath.Join(filepath.Dir(path), id+noteExt)
	if err := os.WriteFile(sidecar, []byte(note+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing note for screenshot %s: %w", id, err)
	}

	return nil
}

// Existing reports which ids are still present, scanning the captures
// directory and every destination so sorted screenshots still count.
func (l *Library) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	live, err := l.scanAll()
	if err != nil {
		return nil, fmt.Errorf("scanning library: %w", err)
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = live[id]
	}

	return out, nil
}

func (l *Library) scanAll() (map[string]bool, error) {
	dirs := []string{l.root}
	for _, t := range screenshot.DestinationTypes() {
		dirs = append(dirs, filepath.Join(l.destRoot, string(t)))
	}

	live := make(map[string]bool)

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if entry.IsDir() || !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			id, err := hashFile(path)
			if err != nil {
				continue
			}

			live[id] = true
			l.paths[id] = path
		}
	}

	return live, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
