// Package storagetest holds the behavior every storage.Driver must share,
// written as ginkgo specs that each driver's suite runs against itself.
package storagetest

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

// MaxEntries is the limit newDriver is expected to configure.
const MaxEntries = 3

// DriverBehavior declares the shared specs. newDriver must return an empty
// store limited to MaxEntries entries.
func DriverBehavior(newDriver func() storage.Driver) {
	Describe("storage.Driver", func() {
		driverBehavior(newDriver)
	})
}

func driverBehavior(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
			driver = nil
		}
	})

	add := func(problem string) *storage.Entry {
		e := &storage.Entry{
			Problem:  problem,
			Solution: "solution to " + problem,
			Model:    "qwen3-max",
		}
		Expect(driver.Add(ctx, e)).To(Succeed())
		return e
	}

	Describe("Add", func() {
		It("assigns increasing IDs", func() {
			a := add("1+1")
			b := add("2+2")
			Expect(a.ID).NotTo(BeZero())
			Expect(b.ID).To(BeNumerically(">", a.ID))
		})

		It("round trips every field", func() {
			ok := true
			e := &storage.Entry{
				Image:     []byte{0x89, 'P', 'N', 'G'},
				Problem:   "x^2 = 4",
				Solution:  "$x = \\pm 2$",
				Reasoning: "take roots",
				Chat: []llm.ChatMessage{
					{Role: "user", Content: "why?"},
					{Role: "assistant", Content: "because", Reasoning: "hmm"},
				},
				Model: "gemini-2.5-pro",
				Verification: &llm.Verification{
					Status:    llm.VerificationDone,
					Content:   "VERDICT: CORRECT",
					IsCorrect: &ok,
					ModelUsed: "qwen3-max",
				},
			}
			Expect(driver.Add(ctx, e)).To(Succeed())

			got, err := driver.Get(ctx, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Image).To(Equal(e.Image))
			Expect(got.Problem).To(Equal(e.Problem))
			Expect(got.Solution).To(Equal(e.Solution))
			Expect(got.Reasoning).To(Equal(e.Reasoning))
			Expect(got.Chat).To(Equal(e.Chat))
			Expect(got.Model).To(Equal(e.Model))
			Expect(got.CreatedAt.UnixMilli()).To(Equal(e.CreatedAt.UnixMilli()))
			Expect(got.Verification).NotTo(BeNil())
			Expect(*got.Verification.IsCorrect).To(BeTrue())
		})

		It("evicts the oldest entries beyond the limit", func() {
			first := add("p0")
			for i := 1; i <= MaxEntries; i++ {
				add(fmt.Sprintf("p%d", i))
			}

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(MaxEntries))

			_, err = driver.Get(ctx, first.ID)
			Expect(err).To(MatchError(storage.NotFoundError{ID: first.ID}))
		})
	})

	Describe("List", func() {
		It("returns an empty list for an empty store", func() {
			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("returns entries newest first", func() {
			add("a")
			add("b")
			add("c")

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			problems := make([]string, 0, len(entries))
			for _, e := range entries {
				problems = append(problems, e.Problem)
			}
			Expect(problems).To(Equal([]string{"c", "b", "a"}))
		})
	})

	Describe("Latest", func() {
		It("fails on an empty store", func() {
			_, err := driver.Latest(ctx)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("returns the newest entry", func() {
			add("old")
			add("new")
			e, err := driver.Latest(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Problem).To(Equal("new"))
		})
	})

	Describe("chat updates", func() {
		chat := []llm.ChatMessage{{Role: "user", Content: "and then?"}}

		It("replaces the chat of a given entry", func() {
			e := add("p")
			add("q")
			Expect(driver.UpdateChat(ctx, e.ID, chat)).To(Succeed())

			got, err := driver.Get(ctx, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Chat).To(Equal(chat))
		})

		It("replaces the chat of the latest entry", func() {
			add("p")
			latest := add("q")
			Expect(driver.UpdateLatestChat(ctx, chat)).To(Succeed())

			got, err := driver.Get(ctx, latest.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Chat).To(Equal(chat))
		})

		It("fails for a missing entry", func() {
			Expect(driver.UpdateChat(ctx, 42, chat)).To(MatchError(storage.NotFoundError{ID: 42}))
			Expect(driver.UpdateLatestChat(ctx, chat)).To(HaveOccurred())
		})
	})

	Describe("SetVerification", func() {
		It("attaches a verification", func() {
			e := add("p")
			v := &llm.Verification{Status: llm.VerificationError, Content: "boom", ModelUsed: "gemini-2.5-pro"}
			Expect(driver.SetVerification(ctx, e.ID, v)).To(Succeed())

			got, err := driver.Get(ctx, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Verification).To(Equal(v))
		})

		It("fails for a missing entry", func() {
			Expect(driver.SetVerification(ctx, 7, &llm.Verification{})).To(MatchError(storage.NotFoundError{ID: 7}))
		})
	})

	Describe("Delete and Clear", func() {
		It("deletes one entry", func() {
			a := add("a")
			b := add("b")
			Expect(driver.Delete(ctx, a.ID)).To(Succeed())

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(Equal(b.ID))

			Expect(driver.Delete(ctx, a.ID)).To(MatchError(storage.NotFoundError{ID: a.ID}))
		})

		It("clears everything", func() {
			add("a")
			add("b")
			Expect(driver.Clear(ctx)).To(Succeed())

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})
}
