package api

import (
	"context"
	"expvar"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mathpad/pkg/canvas"
	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/session"
	"github.com/papercomputeco/mathpad/pkg/solver"
	"github.com/papercomputeco/mathpad/pkg/storage"
	"github.com/papercomputeco/mathpad/pkg/worker"
)

// Solver is the inference surface the server streams from. *solver.Client
// implements it.
type Solver interface {
	Extract(ctx context.Context, png []byte) (string, error)
	Solve(ctx context.Context, req solver.SolveRequest, progress llm.ProgressFunc) (*llm.Result, error)
	Chat(ctx context.Context, req solver.ChatRequest, progress llm.ProgressFunc) (*llm.Result, error)
	Verify(ctx context.Context, req solver.VerifyRequest, progress llm.ProgressFunc) (*llm.Verification, error)
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for one drawing board and its history.
type Server struct {
	config Config
	solver Solver
	storer storage.Driver
	pool   *worker.Pool
	board  *canvas.Board
	logger *slog.Logger
	app    *fiber.App

	session session.Session
}

// NewServer creates a new API server.
// Reads go to storer directly while writes are queued on pool, which must be
// backed by the same driver.
func NewServer(config Config, s Solver, storer storage.Driver, pool *worker.Pool, board *canvas.Board, logger *slog.Logger) (*Server, error) {
	if s == nil || storer == nil || pool == nil || board == nil {
		return nil, fmt.Errorf("api server requires a solver, storage, worker pool and board")
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	srv := &Server{
		config: config,
		solver: s,
		storer: storer,
		pool:   pool,
		board:  board,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", srv.handlePing)
	app.Get("/debug/vars", adaptor.HTTPHandler(expvar.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/solve", srv.handleSolve)
	v1.Post("/verify", srv.handleVerify)
	v1.Post("/chat", srv.handleChat)
	v1.Post("/cancel", srv.handleCancel)

	v1.Get("/history", srv.handleListHistory)
	v1.Get("/history/:id", srv.handleGetHistory)
	v1.Post("/history/:id/load", srv.handleLoadHistory)
	v1.Delete("/history/:id", srv.handleDeleteHistory)
	v1.Delete("/history", srv.handleClearHistory)

	v1.Get("/canvas", srv.handleCanvasPNG)
	v1.Get("/canvas/state", srv.handleCanvasState)
	v1.Post("/canvas/stroke", srv.handleCanvasStroke)
	v1.Post("/canvas/undo", srv.handleCanvasUndo)
	v1.Post("/canvas/clear", srv.handleCanvasClear)
	v1.Post("/canvas/restore", srv.handleCanvasRestore)
	v1.Post("/canvas/resize", srv.handleCanvasResize)

	return srv, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown cancels in-flight streams and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.session.CancelAll()
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
