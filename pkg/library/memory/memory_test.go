package memory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/library/memory"
	"github.com/mitgor/screensort/pkg/screenshot"
)

func memTestShot(id string) screenshot.Screenshot {
	return screenshot.Screenshot{ID: id, CapturedAt: time.Now().UTC()}
}

var _ = Describe("Library", func() {
	var (
		lib *memory.Library
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		lib = memory.NewLibrary()
	})

	Describe("List", func() {
		It("returns screenshots in insertion order", func() {
			lib.Add(memTestShot("b"))
			lib.Add(memTestShot("a"))
			lib.Add(memTestShot("c"))

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(HaveLen(3))
			Expect(shots[0].ID).To(Equal("b"))
			Expect(shots[1].ID).To(Equal("a"))
			Expect(shots[2].ID).To(Equal("c"))
		})

		It("omits moved screenshots", func() {
			lib.Add(memTestShot("a"))
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMusic)).To(Succeed())
			Expect(lib.Move(ctx, "a", screenshot.ContentTypeMusic)).To(Succeed())

			shots, err := lib.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(shots).To(BeEmpty())
		})

		It("returns the injected error", func() {
			lib.ListErr = errors.New("listing broke")
			_, err := lib.List(ctx)
			Expect(err).To(MatchError("listing broke"))
		})
	})

	Describe("Authorized", func() {
		It("returns nil by default", func() {
			Expect(lib.Authorized(ctx)).To(Succeed())
		})

		It("returns the injected error", func() {
			lib.AuthErr = errors.New("no access")
			Expect(lib.Authorized(ctx)).To(MatchError("no access"))
		})
	})

	Describe("Move", func() {
		It("requires the destination to exist", func() {
			lib.Add(memTestShot("a"))
			err := lib.Move(ctx, "a", screenshot.ContentTypeMovie)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("does not exist"))
		})

		It("records the destination", func() {
			lib.Add(memTestShot("a"))
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMovie)).To(Succeed())
			Expect(lib.Move(ctx, "a", screenshot.ContentTypeMovie)).To(Succeed())

			dest, ok := lib.MovedTo("a")
			Expect(ok).To(BeTrue())
			Expect(dest).To(Equal(screenshot.ContentTypeMovie))
		})

		It("returns ErrNotFound for unknown ids", func() {
			Expect(lib.EnsureDestination(ctx, screenshot.ContentTypeMovie)).To(Succeed())
			err := lib.Move(ctx, "ghost", screenshot.ContentTypeMovie)
			Expect(err).To(BeAssignableToTypeOf(library.ErrNotFound{}))
		})

		It("fails when a move error is injected", func() {
			lib.Add(memTestShot("a"))
			lib.MoveErrs["a"] = errors.New("disk full")
			Expect(lib.Move(ctx, "a", screenshot.ContentTypeMovie)).To(MatchError("disk full"))
		})
	})

	Describe("Annotate", func() {
		It("stores the note", func() {
			lib.Add(memTestShot("a"))
			Expect(lib.Annotate(ctx, "a", "a note")).To(Succeed())

			note, ok := lib.Note("a")
			Expect(ok).To(BeTrue())
			Expect(note).To(Equal("a note"))
		})
	})

	Describe("Existing", func() {
		It("distinguishes present from removed ids", func() {
			lib.Add(memTestShot("a"))
			lib.Add(memTestShot("b"))
			lib.Remove("b")

			existing, err := lib.Existing(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(existing["a"]).To(BeTrue())
			Expect(existing["b"]).To(BeFalse())
		})
	})
})
