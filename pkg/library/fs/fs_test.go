package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/screenshot"
)

var _ = Describe("Library", func() {
	var (
		root string
		lib  *fs.Library
		ctx  context.Context
	)

	writeCapture := func(name, content string) string {
		path := filepath.Join(root, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		lib = fs.New(root, "")
	})

	Describe("Authorized", func() {
		It("succeeds for a readable directory", func() {
			Expect(lib.Authorized(ctx)).To(Succeed())
		})

		It("fails when the directory does not exist", func() {
			missing := fs.New(filepath.Join(root, "nope"), "")
			err := missing.Authorized(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not accessible"))
		})

		It("fails when the path is a file", func() {
			path := writeCapture("not-a-dir.png", "data")
			fileLib := fs.New(path, "")
			err := fileLib.Authorized(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not a directory"))
		})
	})

	Describe("List", func() {
		It("returns one screenshot per image file", func() {
			writeCapture("a.png", "capture a")
			writeCapture("b.jpg", "capture b")
			writeCapture("notes.txt", "not an image")

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(2))
		})

		It("assigns ids stable across renames", func() {
			path := writeCapture("original.png", "same bytes")

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(1))
			id := shots[0].ID

			Expect(os.Rename(path, filepath.Join(root, "renamed.png"))).To(Succeed())

			shots, err = lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(1))
			Expect(shots[0].ID).To(Equal(id))
		})

		It("orders screenshots oldest first", func() {
			oldPath := writeCapture("old.png", "old capture")
			newPath := writeCapture("new.png", "new capture")

			older := time.Now().Add(-2 * time.Hour)
			newer := time.Now().Add(-1 * time.Hour)
			Expect(os.Chtimes(oldPath, older, older)).To(Succeed())
			Expect(os.Chtimes(newPath, newer, newer)).To(Succeed())

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(2))
			Expect(shots[0].CapturedAt).To(BeTemporally("<", shots[1].CapturedAt))
		})

		It("falls back to mtime when there is no usable metadata", func() {
			path := writeCapture("plain.png", "no exif here")
			stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
			Expect(os.Chtimes(path, stamp, stamp)).To(Succeed())

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(1))
			Expect(shots[0].CapturedAt).To(BeTemporally("~", stamp, time.Second))
		})

		It("returns an empty list for an empty directory", func() {
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(BeEmpty())
		})
	})

	Describe("EnsureDestination", func() {
		It("creates the destination directory", func() {
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMusic)).To(Succeed())

			info, err := os.Stat(filepath.Join(root, "music"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("is idempotent", func() {
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeBook)).To(Succeed())
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeBook)).To(Succeed())
		})

		It("rejects the unknown type", func() {
			err := lib.EnsureDestination(ctx, screenshot.ContentTypeUnknown)
			Expect(err).To(HaveOccurred())
		})

		It("honors a separate destination root", func() {
			destRoot := GinkgoT().TempDir()
			split := fs.New(root, destRoot)

			Expect(split.EnsureDestination(ctx, screenshot.ContentTypeMovie)).To(Succeed())

			_, err := os.Stat(filepath.Join(destRoot, "movie"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Move", func() {
		It("moves the image into the destination", func() {
			writeCapture("song.png", "a song capture")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMusic)).To(Succeed())
			Expect(lib.Move(ctx, id, screenshot.ContentTypeMusic)).To(Succeed())

			_, err = os.Stat(filepath.Join(root, "music", "song.png"))
			Expect(err).NotTo(HaveOccurred())
			_, err = os.Stat(filepath.Join(root, "song.png"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("moves the note sidecar with the image", func() {
			writeCapture("book.png", "a book capture")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(lib.Annotate(ctx, id, "The Left Hand of Darkness")).To(Succeed())
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeBook)).To(Succeed())
			Expect(lib.Move(ctx, id, screenshot.ContentTypeBook)).To(Succeed())

			note, err := os.ReadFile(filepath.Join(root, "book", id+".note"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(note)).To(ContainSubstring("The Left Hand of Darkness"))
		})

		It("returns ErrNotFound for an unknown id", func() {
			err := lib.Move(ctx, "deadbeef", screenshot.ContentTypeMusic)
			Expect(err).To(BeAssignableToTypeOf(library.ErrNotFound{}))
		})

		It("leaves the listing without the moved screenshot", func() {
			writeCapture("meme.png", "a meme capture")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMeme)).To(Succeed())
			Expect(lib.Move(ctx, id, screenshot.ContentTypeMeme)).To(Succeed())

			shots, err = lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(BeEmpty())
		})
	})

	Describe("Annotate", func() {
		It("surfaces the note on the next listing", func() {
			writeCapture("tune.png", "a tune capture")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(lib.Annotate(ctx, id, "Paranoid Android by Radiohead")).To(Succeed())

			shots, err = lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(1))
			Expect(shots[0].Note).To(Equal("Paranoid Android by Radiohead"))
		})

		It("returns ErrNotFound for an unknown id", func() {
			err := lib.Annotate(ctx, "deadbeef", "note")
			Expect(err).To(BeAssignableToTypeOf(library.ErrNotFound{}))
		})
	})

	Describe("Existing", func() {
		It("counts sorted screenshots as existing", func() {
			writeCapture("track.png", "a track capture")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMusic)).To(Succeed())
			Expect(lib.Move(ctx, id, screenshot.ContentTypeMusic)).To(Succeed())

			existing, err := lib.Existing(ctx, []string{id})
			Expect(err).NotTo(HaveOccurred())
			Expect(existing[id]).To(BeTrue())
		})

		It("reports deleted screenshots as gone", func() {
			path := writeCapture("gone.png", "about to vanish")
			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			id := shots[0].ID

			Expect(os.Remove(path)).To(Succeed())

			existing, err := lib.Existing(ctx, []string{id})
			Expect(err).NotTo(HaveOccurred())
			Expect(existing[id]).To(BeFalse())
		})
	})
})
