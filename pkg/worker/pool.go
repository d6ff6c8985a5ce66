// Package worker provides an asynchronous worker pool for persisting settled
// solver results with the provided storage.Driver and announcing them on the
// provided eventstream.Publisher.
//
// The pool decouples storage from the streaming hot path so a slow database
// never delays the final progress callback of a solve.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/mathpad/pkg/eventstream"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Op selects what a Job persists.
type Op int

const (
	// OpSaveEntry adds Job.Entry to the history.
	OpSaveEntry Op = iota

	// OpUpdateChat replaces the chat of Job.EntryID, or of the latest entry
	// when EntryID is zero.
	OpUpdateChat

	// OpSaveVerification attaches Job.Verification to Job.EntryID.
	OpSaveVerification
)

func (o Op) String() string {
	switch o {
	case OpSaveEntry:
		return "save_entry"
	case OpUpdateChat:
		return "update_chat"
	case OpSaveVerification:
		return "save_verification"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Op Op

	Entry        *storage.Entry
	EntryID      int64
	Chat         []llm.ChatMessage
	Verification *llm.Verification

	// StartedAt and CompletedAt bound the stream that produced the job.
	StartedAt   time.Time
	CompletedAt time.Time

	// Done, if set, is called once the job was processed with the ID of the
	// entry it touched.
	Done func(id int64, err error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting entries.
	Driver storage.Driver

	// Publisher is the optional event stream for persisted changes.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "op", job.Op.String(), "entry_id", job.EntryID)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "op", job.Op.String(), "entry_id", job.EntryID)
		if job.Done != nil {
			job.Done(0, fmt.Errorf("worker queue full"))
		}
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob persists a Job and publishes the matching event.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	id, event, err := p.persist(ctx, job)
	if job.Done != nil {
		job.Done(id, err)
	}
	if err != nil {
		p.logger.Error("async history storage failed", "op", job.Op.String(), "entry_id", job.EntryID, "error", err)
		return
	}

	p.logger.Info("history stored", "op", job.Op.String(), "entry_id", id)

	if p.config.Publisher == nil {
		return
	}
	if err := p.config.Publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish history event",
			"event_type", event.EventType,
			"entry_id", id,
			"error", err,
		)
	}
}

// persist applies the job to the driver and returns the touched entry ID and
// the event describing the change.
func (p *Pool) persist(ctx context.Context, job Job) (int64, *eventstream.Event, error) {
	driver := p.config.Driver
	now := time.Now()

	switch job.Op {
	case OpSaveEntry:
		if job.Entry == nil {
			return 0, nil, fmt.Errorf("save entry: nil entry")
		}
		if err := driver.Add(ctx, job.Entry); err != nil {
			return 0, nil, fmt.Errorf("save entry: %w", err)
		}

		ev := eventstream.NewEvent(eventstream.EventTypeSolutionSaved, job.Entry.ID, now)
		ev.Model = job.Entry.Model
		ev.ProblemPreview = eventstream.Preview(job.Entry.Problem)
		ev.Stream = p.streamMeta(job, job.Entry.Solution, job.Entry.Reasoning)
		return job.Entry.ID, ev, nil

	case OpUpdateChat:
		id := job.EntryID
		if id == 0 {
			latest, err := driver.Latest(ctx)
			if err != nil {
				return 0, nil, fmt.Errorf("update chat: %w", err)
			}
			id = latest.ID
		}
		if err := driver.UpdateChat(ctx, id, job.Chat); err != nil {
			return 0, nil, fmt.Errorf("update chat: %w", err)
		}

		ev := eventstream.NewEvent(eventstream.EventTypeChatUpdated, id, now)
		ev.ChatTurns = len(job.Chat)
		var content, reasoning string
		if n := len(job.Chat); n > 0 {
			content, reasoning = job.Chat[n-1].Content, job.Chat[n-1].Reasoning
		}
		ev.Stream = p.streamMeta(job, content, reasoning)
		return id, ev, nil

	case OpSaveVerification:
		if job.Verification == nil {
			return 0, nil, fmt.Errorf("save verification: nil verification")
		}
		if err := driver.SetVerification(ctx, job.EntryID, job.Verification); err != nil {
			return 0, nil, fmt.Errorf("save verification: %w", err)
		}

		ev := eventstream.NewEvent(eventstream.EventTypeVerificationSaved, job.EntryID, now)
		ev.Model = job.Verification.ModelUsed
		ev.Verdict = job.Verification.IsCorrect
		ev.Stream = p.streamMeta(job, job.Verification.Content, job.Verification.Reasoning)
		return job.EntryID, ev, nil

	default:
		return 0, nil, fmt.Errorf("unknown job op %s", job.Op)
	}
}

func (p *Pool) streamMeta(job Job, content, reasoning string) eventstream.StreamMeta {
	started, completed := job.StartedAt, job.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	if started.IsZero() {
		started = completed
	}
	return eventstream.NewStreamMeta(started, completed, content, reasoning)
}
