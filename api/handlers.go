package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mathpad/pkg/llm"
	"github.com/papercomputeco/mathpad/pkg/storage"
)

// HistorySummary is one row of the history list.
type HistorySummary struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Problem   string    `json:"problem"`
	Model     string    `json:"model"`
	HasImage  bool      `json:"has_image"`
	ChatTurns int       `json:"chat_turns"`

	Verification llm.VerificationStatus `json:"verification,omitempty"`
	IsCorrect    *bool                  `json:"is_correct,omitempty"`
}

func summarize(e *storage.Entry) HistorySummary {
	sum := HistorySummary{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Problem:   e.Problem,
		Model:     e.Model,
		HasImage:  len(e.Image) > 0,
		ChatTurns: len(e.Chat),
	}
	if e.Verification != nil {
		sum.Verification = e.Verification.Status
		sum.IsCorrect = e.Verification.IsCorrect
	}
	return sum
}

// handleListHistory returns the history, newest first, without images.
func (s *Server) handleListHistory(c *fiber.Ctx) error {
	entries, err := s.storer.List(c.Context())
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list history"})
	}

	result := make([]HistorySummary, 0, len(entries))
	for _, e := range entries {
		result = append(result, summarize(e))
	}
	return c.JSON(result)
}

func (s *Server) pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// handleGetHistory returns one full entry.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	id, err := s.pathID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	e, err := s.entry(c, id)
	if e == nil {
		return err
	}
	return c.JSON(e)
}

// handleLoadHistory puts an entry's drawing back on the board.
func (s *Server) handleLoadHistory(c *fiber.Ctx) error {
	id, err := s.pathID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	e, err := s.entry(c, id)
	if e == nil {
		return err
	}
	if len(e.Image) == 0 {
		return badRequest(c, "entry has no image")
	}
	if err := s.board.LoadPNG(e.Image); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(s.canvasState())
}

// handleDeleteHistory removes one entry.
func (s *Server) handleDeleteHistory(c *fiber.Ctx) error {
	id, err := s.pathID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = s.storer.Delete(c.Context(), id)
	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete entry"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleClearHistory removes every entry.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	if err := s.storer.Clear(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to clear history"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
