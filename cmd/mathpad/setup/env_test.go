package setup_test

import (
	"bytes"
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mathpad/cmd/mathpad/setup"
	"github.com/papercomputeco/mathpad/pkg/config"
	"github.com/papercomputeco/mathpad/pkg/dotdir"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
	testutils "github.com/papercomputeco/mathpad/pkg/utils/test"
)

var _ = Describe("Env", func() {
	var (
		ctx       context.Context
		configDir string
		out       *bytes.Buffer
		upstream  *testutils.Upstream
	)

	newEnv := func(opts setup.EnvOptions) *setup.Env {
		var flags config.Config
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("config-dir", configDir, "")
		cmd.Flags().Bool("debug", false, "")
		setup.AddStorageFlags(cmd, &flags)
		setup.AddModelFlags(cmd, &flags)
		cmd.SetOut(out)
		cmd.SetErr(out)
		Expect(cmd.ParseFlags([]string{"--storage", "memory"})).To(Succeed())

		opts.FlagKeys = append(setup.StorageFlags, setup.ModelFlags...)
		env, err := setup.NewEnv(ctx, cmd, opts)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(env.Close)
		return env
	}

	addEntry := func(env *setup.Env, problem string) *storage.Entry {
		e := &storage.Entry{
			CreatedAt: time.Now(),
			Problem:   problem,
			Solution:  "x = 1",
			Model:     "qwen-plus",
		}
		Expect(env.Store.Add(ctx, e)).To(Succeed())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}

		upstream = testutils.NewUpstream("x + 1 = 2", "VERDICT: CORRECT\nSUMMARY: fine")
		DeferCleanup(upstream.Close)

		GinkgoT().Setenv("MATHPAD_ENDPOINTS_DASHSCOPE", upstream.URL())
		GinkgoT().Setenv("DASHSCOPE_API_KEY", "sk-test")
	})

	It("is not interactive when writing to a buffer", func() {
		env := newEnv(setup.EnvOptions{})
		Expect(env.Interactive).To(BeFalse())
		Expect(env.Solver).To(BeNil())
	})

	It("builds a solver when asked", func() {
		env := newEnv(setup.EnvOptions{Solver: true})
		Expect(env.Solver).NotTo(BeNil())
	})

	Describe("Entry", func() {
		It("explains an empty history", func() {
			env := newEnv(setup.EnvOptions{})
			_, err := env.Entry(ctx, "")
			Expect(err).To(MatchError(ContainSubstring("no history yet")))
		})

		It("rejects an id that is not a number", func() {
			env := newEnv(setup.EnvOptions{})
			_, err := env.Entry(ctx, "abc")
			Expect(err).To(MatchError(ContainSubstring("invalid entry id")))
		})

		It("defaults to the latest entry", func() {
			env := newEnv(setup.EnvOptions{})
			addEntry(env, "first")
			addEntry(env, "second")

			e, err := env.Entry(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Problem).To(Equal("second"))
		})

		It("prefers the selected entry", func() {
			env := newEnv(setup.EnvOptions{})
			first := addEntry(env, "first")
			addEntry(env, "second")
			Expect(env.Select(first)).To(Succeed())

			e, err := env.Entry(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.ID).To(Equal(first.ID))
		})

		It("falls back to the latest entry when the selection is gone", func() {
			env := newEnv(setup.EnvOptions{})
			first := addEntry(env, "first")
			addEntry(env, "second")
			Expect(env.Select(first)).To(Succeed())
			Expect(env.Store.Delete(ctx, first.ID)).To(Succeed())

			e, err := env.Entry(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Problem).To(Equal("second"))

			active, err := dotdir.NewManager().LoadActive(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})
	})

	Describe("Verify", func() {
		It("stores and prints the verdict", func() {
			env := newEnv(setup.EnvOptions{Solver: true})
			e := addEntry(env, "x + 1 = 2")

			v, err := env.Verify(ctx, e)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Status).To(Equal(llm.VerificationDone))
			Expect(*v.IsCorrect).To(BeTrue())
			Expect(out.String()).To(ContainSubstring("correct"))

			stored, err := env.Store.Get(ctx, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Verification.Summary).To(Equal("fine"))
			Expect(upstream.Requests()[0].Model).To(Equal("qwen3-max"))
		})
	})
})
