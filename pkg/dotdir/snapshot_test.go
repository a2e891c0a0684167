package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/dotdir"
	"github.com/mitgor/screensort/pkg/screenshot"
)

var _ = Describe("FragmentSnapshot", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "snapshot-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("round-trips a snapshot by screenshot id", func() {
		snap := &dotdir.FragmentSnapshot{
			ScreenshotID: "shot-42",
			Fragments: []screenshot.Fragment{
				{Text: "Blade Runner", Confidence: 0.92, Y: 0.1},
				{Text: "1982", Confidence: 0.81, Y: 0.2},
			},
		}

		Expect(m.SaveFragmentSnapshot(snap, tmpDir)).To(Succeed())

		loaded, err := m.LoadFragmentSnapshot("shot-42", tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).NotTo(BeNil())
		Expect(loaded.Fragments).To(HaveLen(2))
		Expect(loaded.Fragments[0].Text).To(Equal("Blade Runner"))
	})

	It("returns nil for a missing snapshot", func() {
		loaded, err := m.LoadFragmentSnapshot("absent", tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeNil())
	})

	It("rejects snapshots without a screenshot id", func() {
		err := m.SaveFragmentSnapshot(&dotdir.FragmentSnapshot{}, tmpDir)
		Expect(err).To(HaveOccurred())
	})

	It("writes snapshots under the snapshots subdirectory", func() {
		snap := &dotdir.FragmentSnapshot{ScreenshotID: "shot-7"}
		Expect(m.SaveFragmentSnapshot(snap, tmpDir)).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, "snapshots", "shot-7.json"))
		Expect(err).NotTo(HaveOccurred())
	})
})
