package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mitgor/screensort/pkg/metrics"
	"github.com/mitgor/screensort/pkg/screenshot"
)

var _ = Describe("Metrics", func() {
	It("counts processed items by status and content type", func() {
		m := metrics.New()

		m.ObserveItem(screenshot.StatusSuccess, screenshot.ContentTypeMusic, 2*time.Second)
		m.ObserveItem(screenshot.StatusSuccess, screenshot.ContentTypeMusic, time.Second)
		m.ObserveItem(screenshot.StatusFlagged, screenshot.ContentTypeUnknown, time.Second)

		Expect(testutil.ToFloat64(m.Items().WithLabelValues("success", "music"))).To(BeNumerically("==", 2))
		Expect(testutil.ToFloat64(m.Items().WithLabelValues("flagged", "unknown"))).To(BeNumerically("==", 1))
	})

	It("counts batches by terminal outcome", func() {
		m := metrics.New()

		m.ObserveBatch("completed", time.Minute)
		m.ObserveBatch("cancelled", time.Second)
		m.ObserveBatch("completed", time.Minute)

		Expect(testutil.ToFloat64(m.Batches().WithLabelValues("completed"))).To(BeNumerically("==", 2))
		Expect(testutil.ToFloat64(m.Batches().WithLabelValues("cancelled"))).To(BeNumerically("==", 1))
	})

	It("serves the text exposition over HTTP", func() {
		m := metrics.New()
		m.ObserveItem(screenshot.StatusSuccess, screenshot.ContentTypeBook, time.Second)

		server := httptest.NewServer(m.Handler())
		defer server.Close()

		resp, err := http.Get(server.URL)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("screensort_items_processed_total"))
		Expect(string(body)).To(ContainSubstring("screensort_batch_duration_seconds"))
	})

	It("tolerates a nil receiver", func() {
		var m *metrics.Metrics

		m.ObserveItem(screenshot.StatusSuccess, screenshot.ContentTypeMusic, time.Second)
		m.ObserveBatch("completed", time.Second)
		Expect(m.Handler()).NotTo(BeNil())
	})
})
