package verifycmder_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	verifycmder "github.com/papercomputeco/mathpad/cmd/mathpad/verify"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/mathpad/pkg/utils/test"
)

var _ = Describe("verify command", func() {
	var (
		ctx      context.Context
		tmpDir   string
		out      *bytes.Buffer
		upstream *testutils.Upstream
		store    *sqlite.Driver
	)

	run := func(args ...string) error {
		cmd := verifycmder.NewVerifyCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd.ExecuteContext(ctx)
	}

	add := func(problem string) *storage.Entry {
		e := &storage.Entry{Problem: problem, Solution: "x = 1", Model: "qwen-plus"}
		Expect(store.Add(ctx, e)).To(Succeed())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}

		upstream = testutils.NewUpstream("", "VERDICT: INCORRECT\nSUMMARY: sign error")
		DeferCleanup(upstream.Close)

		GinkgoT().Setenv("MATHPAD_ENDPOINTS_DASHSCOPE", upstream.URL())
		GinkgoT().Setenv("DASHSCOPE_API_KEY", "sk-test")
		GinkgoT().Setenv("MATHPAD_SQLITE", "")

		var err error
		store, err = sqlite.NewDriver(ctx, filepath.Join(tmpDir, "history.db"), storage.DefaultMaxEntries)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("verifies the latest entry", func() {
		add("first")
		latest := add("second")

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("incorrect"))
		Expect(out.String()).To(ContainSubstring("sign error"))

		e, err := store.Get(ctx, latest.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Verification.Status).To(Equal(llm.VerificationDone))
		Expect(*e.Verification.IsCorrect).To(BeFalse())
	})

	It("verifies the entry named by id", func() {
		first := add("first")
		add("second")

		Expect(run(strconv.FormatInt(first.ID, 10))).To(Succeed())

		e, err := store.Get(ctx, first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Verification).NotTo(BeNil())
	})

	It("stores the failure when the reviewer errors", func() {
		e := add("first")
		upstream.FailWith(http.StatusBadGateway)

		Expect(run()).To(HaveOccurred())

		stored, err := store.Get(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Verification.Status).To(Equal(llm.VerificationError))
	})

	It("reports an unknown id", func() {
		add("first")
		Expect(run("42")).To(HaveOccurred())
	})

	It("writes the raw stream when recording", func() {
		add("first")
		path := filepath.Join(tmpDir, "stream.txt")

		Expect(run("--record", path)).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring("VERDICT"))
	})
})
