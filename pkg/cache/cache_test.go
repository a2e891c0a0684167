package cache_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/cache/inmemory"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// fakeChecker reports existence from a fixed set of ids.
type fakeChecker struct {
	existing map[string]bool
	err      error
}

func (f *fakeChecker) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = f.existing[id]
	}
	return out, nil
}

var _ = Describe("CleanupStale", func() {
	var (
		store *inmemory.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
	})

	It("removes entries whose source screenshots are gone", func() {
		for _, id := range []string{"a", "b", "c"} {
			Expect(store.MarkProcessed(ctx, id)).To(Succeed())
		}
		Expect(store.SaveResults(ctx, []screenshot.ResultRecord{
			screenshot.NewResultRecord("a", screenshot.StatusSuccess, screenshot.ContentTypeMusic, "sorted"),
			screenshot.NewResultRecord("b", screenshot.StatusSuccess, screenshot.ContentTypeMovie, "sorted"),
			screenshot.NewResultRecord("c", screenshot.StatusFailed, screenshot.ContentTypeUnknown, "no match"),
		})).To(Succeed())

		checker := &fakeChecker{existing: map[string]bool{"a": true, "c": true}}
		removed, err := cache.CleanupStale(ctx, store, checker)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(ConsistOf("b"))

		set, err := store.LoadProcessedSet(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(set).To(HaveLen(2))
		Expect(set["a"]).To(BeTrue())
		Expect(set["c"]).To(BeTrue())

		records, err := store.LoadResults(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].ScreenshotID).To(Equal("a"))
		Expect(records[1].ScreenshotID).To(Equal("c"))
	})

	It("removes orphaned result records with no processed entry", func() {
		Expect(store.SaveResults(ctx, []screenshot.ResultRecord{
			screenshot.NewResultRecord("orphan", screenshot.StatusSuccess, screenshot.ContentTypeBook, "sorted"),
		})).To(Succeed())

		checker := &fakeChecker{existing: map[string]bool{}}
		removed, err := cache.CleanupStale(ctx, store, checker)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(ConsistOf("orphan"))

		records, err := store.LoadResults(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	It("returns nothing when every entry is still live", func() {
		Expect(store.MarkProcessed(ctx, "a")).To(Succeed())

		checker := &fakeChecker{existing: map[string]bool{"a": true}}
		removed, err := cache.CleanupStale(ctx, store, checker)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())

		set, err := store.LoadProcessedSet(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(set["a"]).To(BeTrue())
	})

	It("returns nothing for an empty cache", func() {
		checker := &fakeChecker{existing: map[string]bool{}}
		removed, err := cache.CleanupStale(ctx, store, checker)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())
	})

	It("propagates existence check failures without touching the cache", func() {
		Expect(store.MarkProcessed(ctx, "a")).To(Succeed())

		checker := &fakeChecker{err: errors.New("library offline")}
		_, err := cache.CleanupStale(ctx, store, checker)
		Expect(err).To(HaveOccurred())

		set, err := store.LoadProcessedSet(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(set["a"]).To(BeTrue())
	})
})
