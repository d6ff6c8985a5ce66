package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .mathpad dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".mathpad"), 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .mathpad dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".mathpad")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to a created ~/.mathpad", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Setenv("HOME", origHome) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".mathpad")))
		})
	})

	Describe("ActiveEntry", func() {
		It("returns nil when nothing is selected", func() {
			active, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})

		It("round-trips the selection", func() {
			Expect(m.SaveActive(&dotdir.ActiveEntry{ID: 1700000000000, Problem: "x^2=4"}, tmpDir)).To(Succeed())

			active, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(Equal(&dotdir.ActiveEntry{ID: 1700000000000, Problem: "x^2=4"}))
		})

		It("clears the selection idempotently", func() {
			Expect(m.SaveActive(&dotdir.ActiveEntry{ID: 1}, tmpDir)).To(Succeed())
			Expect(m.ClearActive(tmpDir)).To(Succeed())
			Expect(m.ClearActive(tmpDir)).To(Succeed())

			active, err := m.LoadActive(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})

		It("rejects nil", func() {
			Expect(m.SaveActive(nil, tmpDir)).To(MatchError("cannot save nil active entry"))
		})
	})
})
