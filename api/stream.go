package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mathpad/pkg/canvas"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/session"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/sse"
	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/worker"
)

// Event types written on solve, verify and chat streams.
const (
	EventProblem   = "problem"
	EventProgress  = "progress"
	EventDone      = "done"
	EventError     = "error"
	EventCancelled = "cancelled"
)

// ProgressEvent carries the cumulative state of a stream.
type ProgressEvent struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`

	// ReasoningDelta is true when this update added reasoning text.
	ReasoningDelta bool `json:"reasoning_delta"`
}

// DoneEvent is the last event of a successful stream. EntryID is zero when
// the result could not be stored in time.
type DoneEvent struct {
	EntryID      int64             `json:"entry_id"`
	Problem      string            `json:"problem,omitempty"`
	Model        string            `json:"model,omitempty"`
	Content      string            `json:"content"`
	Reasoning    string            `json:"reasoning,omitempty"`
	Verification *llm.Verification `json:"verification,omitempty"`
	ChatTurns    int               `json:"chat_turns,omitempty"`
}

type solveRequest struct {
	Problem   string `json:"problem"`
	Image     []byte `json:"image"` // base64 PNG
	ExtraText string `json:"extra_text"`
	Thinking  bool   `json:"thinking"`
}

type verifyRequest struct {
	ID int64 `json:"id"`
}

type chatRequest struct {
	ID       int64  `json:"id"`
	Query    string `json:"query"`
	Thinking bool   `json:"thinking"`
}

type cancelRequest struct {
	Scope string `json:"scope"`
}

// eventSink writes events to one client. The first failed write means the
// client went away and cancels the operation.
type eventSink struct {
	w      *sse.Writer
	cancel func()
	failed bool
}

func (e *eventSink) send(eventType string, v any) {
	if e.failed {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{}`)
	}
	if err := e.w.WriteEvent(sse.Event{Type: eventType, Data: string(data)}); err != nil {
		e.failed = true
		e.cancel()
	}
}

func (e *eventSink) progress(state llm.StreamState, reasoning bool) {
	e.send(EventProgress, ProgressEvent{
		Content:        state.Content,
		Reasoning:      state.Reasoning,
		ReasoningDelta: reasoning,
	})
}

// settle reports a failed or cancelled operation.
func (e *eventSink) settle(err error) {
	if solver.IsCancelled(err) {
		e.send(EventCancelled, struct{}{})
		return
	}
	e.send(EventError, ErrorResponse{Error: err.Error()})
}

// stream begins an operation in scope and answers the request with an SSE
// stream fed by run. Beginning cancels the scope's previous operation.
func (s *Server) stream(c *fiber.Ctx, scope *session.Scope, run func(ctx context.Context, sink *eventSink)) error {
	// fasthttp recycles the request context once the handler returns, so
	// the operation hangs off Background instead.
	ctx, release := scope.Begin(context.Background())

	pr, pw := io.Pipe()
	sink := &eventSink{w: sse.NewWriter(pw), cancel: release}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	go func() {
		defer pw.Close()
		defer release()
		run(ctx, sink)
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// persist queues job and waits for it to be stored.
func (s *Server) persist(job worker.Job) (int64, error) {
	type outcome struct {
		id  int64
		err error
	}
	done := make(chan outcome, 1)
	job.Done = func(id int64, err error) {
		done <- outcome{id: id, err: err}
	}

	s.pool.Enqueue(job)

	select {
	case o := <-done:
		if o.err != nil {
			s.logger.Error("failed to store result", "op", job.Op.String(), "error", o.err)
		}
		return o.id, o.err
	case <-time.After(s.config.PersistTimeout):
		s.logger.Warn("timed out waiting for result to be stored", "op", job.Op.String())
		return 0, errors.New("persist timeout")
	}
}

// handleSolve transcribes the canvas (or the posted image) unless a problem
// text is given, then streams its solution.
func (s *Server) handleSolve(c *fiber.Ctx) error {
	var req solveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	image := req.Image
	if len(image) > 0 {
		if _, err := canvas.DecodePNG(image); err != nil {
			return badRequest(c, "image: "+err.Error())
		}
	}
	if req.Problem == "" && len(image) == 0 {
		if s.board.Empty() {
			return badRequest(c, "nothing to solve: draw on the canvas or send a problem")
		}
		png, err := s.board.PNG()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to export canvas"})
		}
		image = png
	}

	return s.stream(c, &s.session.Primary, func(ctx context.Context, sink *eventSink) {
		problem := req.Problem
		if problem == "" {
			text, err := s.solver.Extract(ctx, image)
			if err != nil {
				sink.settle(err)
				return
			}
			problem = text
		}
		problem = solver.CombineProblem(problem, req.ExtraText)
		sink.send(EventProblem, map[string]string{"problem": problem})

		started := time.Now()
		res, err := s.solver.Solve(ctx, solver.SolveRequest{Problem: problem, Thinking: req.Thinking}, sink.progress)
		if err != nil {
			sink.settle(err)
			return
		}

		id, _ := s.persist(worker.Job{
			Op: worker.OpSaveEntry,
			Entry: &storage.Entry{
				Image:     image,
				Problem:   problem,
				Solution:  res.Content,
				Reasoning: res.Reasoning,
				Chat:      []llm.ChatMessage{},
				Model:     res.Model,
			},
			StartedAt:   started,
			CompletedAt: time.Now(),
		})

		sink.send(EventDone, DoneEvent{
			EntryID:   id,
			Problem:   problem,
			Model:     res.Model,
			Content:   res.Content,
			Reasoning: res.Reasoning,
		})
	})
}

// entry returns the entry with id, or the latest one for id zero.
func (s *Server) entry(c *fiber.Ctx, id int64) (*storage.Entry, error) {
	var (
		e   *storage.Entry
		err error
	)
	if id == 0 {
		e, err = s.storer.Latest(c.Context())
	} else {
		e, err = s.storer.Get(c.Context(), id)
	}

	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return nil, c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load history"})
	}
	return e, nil
}

// handleVerify streams a second model's review of a stored solution.
func (s *Server) handleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	e, err := s.entry(c, req.ID)
	if e == nil {
		return err
	}
	if e.Solution == "" {
		return badRequest(c, "entry has no solution to verify")
	}

	return s.stream(c, &s.session.Primary, func(ctx context.Context, sink *eventSink) {
		started := time.Now()
		v, err := s.solver.Verify(ctx, solver.VerifyRequest{
			Problem:     e.Problem,
			Solution:    e.Solution,
			SolverModel: e.Model,
		}, sink.progress)
		if solver.IsCancelled(err) {
			sink.settle(err)
			return
		}

		if v != nil {
			_, _ = s.persist(worker.Job{
				Op:           worker.OpSaveVerification,
				EntryID:      e.ID,
				Verification: v,
				StartedAt:    started,
				CompletedAt:  time.Now(),
			})
		}
		if err != nil {
			sink.settle(err)
			return
		}

		sink.send(EventDone, DoneEvent{
			EntryID:      e.ID,
			Model:        v.ModelUsed,
			Content:      v.Content,
			Reasoning:    v.Reasoning,
			Verification: v,
		})
	})
}

// handleChat streams the answer to a follow-up question about a stored
// solution, the latest one unless an id is given.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Query == "" {
		return badRequest(c, "query is required")
	}

	e, err := s.entry(c, req.ID)
	if e == nil {
		return err
	}

	return s.stream(c, &s.session.Chat, func(ctx context.Context, sink *eventSink) {
		started := time.Now()
		res, err := s.solver.Chat(ctx, solver.ChatRequest{
			Problem:  e.Problem,
			Solution: e.Solution,
			History:  e.Chat,
			Query:    req.Query,
			Thinking: req.Thinking,
		}, sink.progress)
		if err != nil {
			sink.settle(err)
			return
		}

		chat := append(append([]llm.ChatMessage(nil), e.Chat...),
			llm.ChatMessage{Role: llm.RoleUser, Content: req.Query},
			llm.ChatMessage{Role: llm.RoleAssistant, Content: res.Content, Reasoning: res.Reasoning},
		)
		_, _ = s.persist(worker.Job{
			Op:          worker.OpUpdateChat,
			EntryID:     e.ID,
			Chat:        chat,
			StartedAt:   started,
			CompletedAt: time.Now(),
		})

		sink.send(EventDone, DoneEvent{
			EntryID:   e.ID,
			Model:     res.Model,
			Content:   res.Content,
			Reasoning: res.Reasoning,
			ChatTurns: len(chat),
		})
	})
}

// handleCancel stops the running operation of a scope.
func (s *Server) handleCancel(c *fiber.Ctx) error {
	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	scope := s.session.Scope(session.Kind(req.Scope))
	if scope == nil {
		return badRequest(c, `scope must be "primary" or "chat"`)
	}

	return c.JSON(fiber.Map{"cancelled": scope.Cancel()})
}
