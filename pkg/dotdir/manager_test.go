package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/dotdir"
)

// workIn switches the working directory for the rest of the spec.
func workIn(dir string) {
	GinkgoHelper()
	orig, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Chdir(dir)).To(Succeed())
	DeferCleanup(func() { os.Chdir(orig) })
}

var _ = Describe("Manager", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		// EvalSymlinks keeps path comparisons stable on macOS, where the
		// temp root lives behind /var -> /private/var.
		resolved, err := filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		tmpDir = resolved

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates a missing override directory", func() {
			dir := filepath.Join(tmpDir, "newdir")

			result, err := m.Target(dir)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))
			Expect(dir).To(BeADirectory())
		})

		It("accepts an override directory that already exists", func() {
			result, err := m.Target(tmpDir)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(tmpDir))
		})

		It("resolves a relative override against the working directory", func() {
			workIn(tmpDir)

			result, err := m.Target(filepath.Join("nested", "dot"))

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, "nested", "dot")))
			Expect(result).To(BeADirectory())
		})

		It("prefers the override over a local .screensort directory", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".screensort"), 0o755)).To(Succeed())
			workIn(tmpDir)

			override := filepath.Join(tmpDir, "override")
			result, err := m.Target(override)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(override))
		})

		It("picks up a local .screensort directory when there is no override", func() {
			local := filepath.Join(tmpDir, ".screensort")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			workIn(tmpDir)

			result, err := m.Target("")

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("creates ~/.screensort when nothing else applies", func() {
			empty := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(empty, 0o755)).To(Succeed())
			workIn(empty)

			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", empty)).To(Succeed())
			DeferCleanup(func() { os.Setenv("HOME", origHome) })

			result, err := m.Target("")

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(empty, ".screensort")))
			Expect(result).To(BeADirectory())
		})
	})
})
