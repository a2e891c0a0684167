package mcp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/screenshot"
)

var _ = Describe("Search results tool", func() {
	var records []screenshot.ResultRecord

	BeforeEach(func() {
		records = []screenshot.ResultRecord{
			{
				ID:           "r1",
				ScreenshotID: "shot-1",
				Status:       screenshot.StatusSuccess,
				ContentType:  screenshot.ContentTypeMusic,
				Title:        "Paranoid Android",
				Creator:      "Radiohead",
				Message:      "sorted into music",
			},
			{
				ID:           "r2",
				ScreenshotID: "shot-2",
				Status:       screenshot.StatusSuccess,
				ContentType:  screenshot.ContentTypeMovie,
				Title:        "Stalker",
				Creator:      "Andrei Tarkovsky",
				Message:      "sorted into movies",
			},
			{
				ID:           "r3",
				ScreenshotID: "shot-3",
				Status:       screenshot.StatusFlagged,
				ContentType:  screenshot.ContentTypeMusic,
				Message:      "could not extract song info",
			},
		}
	})

	Describe("filterResults", func() {
		It("matches all records with an empty query", func() {
			matches := filterResults(records, SearchResultsInput{}, 10)
			Expect(matches).To(HaveLen(3))
		})

		It("returns newest records first", func() {
			matches := filterResults(records, SearchResultsInput{}, 10)
			Expect(matches[0].ID).To(Equal("r3"))
			Expect(matches[2].ID).To(Equal("r1"))
		})

		It("matches the query case-insensitively against titles", func() {
			matches := filterResults(records, SearchResultsInput{Query: "paranoid"}, 10)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("r1"))
		})

		It("matches the query against creators", func() {
			matches := filterResults(records, SearchResultsInput{Query: "tarkovsky"}, 10)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("r2"))
		})

		It("matches the query against messages", func() {
			matches := filterResults(records, SearchResultsInput{Query: "could not extract"}, 10)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("r3"))
		})

		It("filters by content type", func() {
			matches := filterResults(records, SearchResultsInput{ContentType: "music"}, 10)
			Expect(matches).To(HaveLen(2))
		})

		It("filters by status", func() {
			matches := filterResults(records, SearchResultsInput{Status: "flagged"}, 10)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("r3"))
		})

		It("combines query and filters", func() {
			matches := filterResults(records, SearchResultsInput{
				Query:       "sorted",
				ContentType: "music",
				Status:      "success",
			}, 10)
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("r1"))
		})

		It("caps matches at the limit", func() {
			matches := filterResults(records, SearchResultsInput{}, 2)
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal("r3"))
			Expect(matches[1].ID).To(Equal("r2"))
		})

		It("returns no matches for a query that hits nothing", func() {
			matches := filterResults(records, SearchResultsInput{Query: "zebra"}, 10)
			Expect(matches).To(BeEmpty())
		})
	})

	Describe("matchesQuery", func() {
		It("ignores the link and identifier fields", func() {
			rec := screenshot.ResultRecord{
				ID:           "needle",
				ScreenshotID: "needle",
				Link:         "https://example.com/needle",
				Message:      "sorted",
			}
			Expect(matchesQuery(rec, "needle")).To(BeFalse())
		})
	})
})
