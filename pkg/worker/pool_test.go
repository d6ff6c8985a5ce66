package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathpad/pkg/eventstream"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/storage/inmemory"
	"github.com/papercomputeco/mathpad/pkg/worker"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev *eventstream.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *worker.Pool
		driver    *inmemory.Driver
		publisher *recordingPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(0)
		publisher = &recordingPublisher{}

		var err error
		// One worker keeps job order observable.
		wp, err = worker.NewPool(&worker.Config{
			Driver:     driver,
			Publisher:  publisher,
			NumWorkers: 1,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a driver", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(HaveOccurred())
		wp.Close()
	})

	It("saves an entry and reports its ID", func() {
		var (
			gotID  int64
			gotErr error
		)
		started := time.Now().Add(-time.Second)
		ok := wp.Enqueue(worker.Job{
			Op:        worker.OpSaveEntry,
			Entry:     &storage.Entry{Problem: "1+1", Solution: "2", Model: "qwen3-max"},
			StartedAt: started,
			Done:      func(id int64, err error) { gotID, gotErr = id, err },
		})
		Expect(ok).To(BeTrue())
		wp.Close()
		Expect(gotErr).NotTo(HaveOccurred())

		latest, err := driver.Latest(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest.ID).To(Equal(gotID))
		Expect(latest.Solution).To(Equal("2"))

		Expect(publisher.types()).To(Equal([]string{eventstream.EventTypeSolutionSaved}))
		ev := publisher.events[0]
		Expect(ev.EntryID).To(Equal(gotID))
		Expect(ev.Model).To(Equal("qwen3-max"))
		Expect(ev.ProblemPreview).To(Equal("1+1"))
		Expect(ev.Stream.DurationMs).To(BeNumerically(">=", 1000))
	})

	It("updates the latest chat when no entry ID is given", func() {
		chat := []llm.ChatMessage{
			{Role: "user", Content: "why?"},
			{Role: "assistant", Content: "because"},
		}
		wp.Enqueue(worker.Job{Op: worker.OpSaveEntry, Entry: &storage.Entry{Problem: "p"}})
		wp.Enqueue(worker.Job{Op: worker.OpUpdateChat, Chat: chat})
		wp.Close()

		latest, err := driver.Latest(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(latest.Chat).To(Equal(chat))
		Expect(publisher.types()).To(Equal([]string{
			eventstream.EventTypeSolutionSaved,
			eventstream.EventTypeChatUpdated,
		}))
		Expect(publisher.events[1].ChatTurns).To(Equal(2))
	})

	It("attaches a verification", func() {
		e := &storage.Entry{Problem: "p"}
		Expect(driver.Add(ctx, e)).To(Succeed())

		correct := false
		wp.Enqueue(worker.Job{
			Op:      worker.OpSaveVerification,
			EntryID: e.ID,
			Verification: &llm.Verification{
				Status:    llm.VerificationDone,
				IsCorrect: &correct,
				ModelUsed: "gemini-2.5-pro",
			},
		})
		wp.Close()

		got, err := driver.Get(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Verification.ModelUsed).To(Equal("gemini-2.5-pro"))
		Expect(publisher.events).To(HaveLen(1))
		Expect(*publisher.events[0].Verdict).To(BeFalse())
	})

	It("reports storage failures and publishes nothing", func() {
		var gotErr error
		wp.Enqueue(worker.Job{
			Op:           worker.OpSaveVerification,
			EntryID:      99,
			Verification: &llm.Verification{},
			Done:         func(_ int64, err error) { gotErr = err },
		})
		wp.Close()

		var nf storage.NotFoundError
		Expect(errors.As(gotErr, &nf)).To(BeTrue())
		Expect(publisher.events).To(BeEmpty())
	})

	It("keeps the stored entry when publishing fails", func() {
		publisher.err = errors.New("broker down")
		wp.Enqueue(worker.Job{Op: worker.OpSaveEntry, Entry: &storage.Entry{Problem: "p"}})
		wp.Close()

		entries, err := driver.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("drops jobs when the queue is full", func() {
		wp.Close()

		block := make(chan struct{})
		slow, err := worker.NewPool(&worker.Config{Driver: driver, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The first job parks the only worker, the second fills the queue.
		Expect(slow.Enqueue(worker.Job{Op: worker.OpUpdateChat, EntryID: 1, Done: func(int64, error) { <-block }})).To(BeTrue())
		Eventually(func() bool {
			return slow.Enqueue(worker.Job{Op: worker.OpUpdateChat, EntryID: 1})
		}).Should(BeTrue())

		var dropErr error
		Expect(slow.Enqueue(worker.Job{Op: worker.OpUpdateChat, EntryID: 1, Done: func(_ int64, err error) { dropErr = err }})).To(BeFalse())
		Expect(dropErr).To(MatchError("worker queue full"))

		close(block)
		slow.Close()
	})

	It("tolerates repeated Close", func() {
		wp.Close()
		wp.Close()
	})
})
