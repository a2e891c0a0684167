package screenshot_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/screenshot"
)

var _ = Describe("ContentType", func() {
	It("validates all defined labels", func() {
		for _, c := range screenshot.ContentTypes() {
			Expect(c.IsValid()).To(BeTrue(), string(c))
		}
	})

	It("rejects labels outside the closed set", func() {
		Expect(screenshot.ContentType("podcast").IsValid()).To(BeFalse())
		Expect(screenshot.ContentType("").IsValid()).To(BeFalse())
	})

	It("parses stored labels case-insensitively", func() {
		Expect(screenshot.ParseContentType("Movie")).To(Equal(screenshot.ContentTypeMovie))
		Expect(screenshot.ParseContentType("  music ")).To(Equal(screenshot.ContentTypeMusic))
	})

	It("maps unrecognized labels to unknown", func() {
		Expect(screenshot.ParseContentType("vinyl")).To(Equal(screenshot.ContentTypeUnknown))
	})

	It("excludes unknown from destination types", func() {
		Expect(screenshot.DestinationTypes()).NotTo(ContainElement(screenshot.ContentTypeUnknown))
		Expect(screenshot.DestinationTypes()).To(HaveLen(4))
	})
})

var _ = Describe("Fragments", func() {
	It("sorts top to bottom by vertical position", func() {
		frags := []screenshot.Fragment{
			{Text: "bottom", Y: 0.9},
			{Text: "top", Y: 0.1},
			{Text: "middle", Y: 0.5},
		}
		screenshot.SortFragments(frags)
		Expect(frags[0].Text).To(Equal("top"))
		Expect(frags[1].Text).To(Equal("middle"))
		Expect(frags[2].Text).To(Equal("bottom"))
	})

	It("joins fragments in vertical order, skipping blank lines", func() {
		frags := []screenshot.Fragment{
			{Text: "Second", Y: 0.6},
			{Text: "   ", Y: 0.3},
			{Text: "First", Y: 0.1},
		}
		Expect(screenshot.JoinFragments(frags)).To(Equal("First\nSecond"))
	})

	It("does not mutate the caller's slice when joining", func() {
		frags := []screenshot.Fragment{
			{Text: "b", Y: 0.8},
			{Text: "a", Y: 0.2},
		}
		_ = screenshot.JoinFragments(frags)
		Expect(frags[0].Text).To(Equal("b"))
	})
})

var _ = Describe("ResultRecord", func() {
	It("mints a unique identifier once at creation", func() {
		a := screenshot.NewResultRecord("shot-1", screenshot.StatusSuccess, screenshot.ContentTypeMusic, "ok")
		b := screenshot.NewResultRecord("shot-1", screenshot.StatusSuccess, screenshot.ContentTypeMusic, "ok")
		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("records creation time in UTC", func() {
		rec := screenshot.NewResultRecord("shot-1", screenshot.StatusFlagged, screenshot.ContentTypeUnknown, "unclassified")
		Expect(rec.CreatedAt.Location()).To(Equal(rec.CreatedAt.UTC().Location()))
	})

	It("summarizes with title and creator when present", func() {
		rec := screenshot.NewResultRecord("shot-1", screenshot.StatusSuccess, screenshot.ContentTypeBook, "shelved")
		rec.Title = "Dune"
		rec.Creator = "Frank Herbert"
		Expect(rec.Summary()).To(ContainSubstring(`"Dune" by Frank Herbert`))
	})

	It("summarizes without a title for unknown outcomes", func() {
		rec := screenshot.NewResultRecord("shot-1", screenshot.StatusFlagged, screenshot.ContentTypeUnknown, "no signal")
		Expect(rec.Summary()).To(Equal("[flagged] unknown: no signal"))
	})
})

var _ = Describe("Status", func() {
	It("validates the three terminal statuses", func() {
		Expect(screenshot.StatusSuccess.IsValid()).To(BeTrue())
		Expect(screenshot.StatusFlagged.IsValid()).To(BeTrue())
		Expect(screenshot.StatusFailed.IsValid()).To(BeTrue())
		Expect(screenshot.Status("pending").IsValid()).To(BeFalse())
	})
})
