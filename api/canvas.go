package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mathpad/pkg/canvas"
)

// CanvasState describes the board after an edit.
type CanvasState struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Steps      int  `json:"steps"`
	Empty      bool `json:"empty"`
	CanRestore bool `json:"can_restore"`
}

type strokeRequest struct {
	Tool   canvas.Tool    `json:"tool"`
	Points []canvas.Point `json:"points"`
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) canvasState() CanvasState {
	w, h := s.board.Size()
	return CanvasState{
		Width:      w,
		Height:     h,
		Steps:      s.board.Steps(),
		Empty:      s.board.Empty(),
		CanRestore: s.board.CanRestore(),
	}
}

// handleCanvasPNG serves the board as a PNG image.
func (s *Server) handleCanvasPNG(c *fiber.Ctx) error {
	data, err := s.board.PNG()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

func (s *Server) handleCanvasState(c *fiber.Ctx) error {
	return c.JSON(s.canvasState())
}

func (s *Server) handleCanvasStroke(c *fiber.Ctx) error {
	var req strokeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Tool == "" {
		req.Tool = canvas.Pen
	}

	if err := s.board.Stroke(req.Tool, req.Points); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(s.canvasState())
}

func (s *Server) handleCanvasUndo(c *fiber.Ctx) error {
	s.board.Undo()
	return c.JSON(s.canvasState())
}

func (s *Server) handleCanvasClear(c *fiber.Ctx) error {
	s.board.Clear()
	return c.JSON(s.canvasState())
}

// handleCanvasRestore answers 409 once the restore window has passed.
func (s *Server) handleCanvasRestore(c *fiber.Ctx) error {
	if !s.board.Restore() {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "nothing to restore"})
	}
	return c.JSON(s.canvasState())
}

func (s *Server) handleCanvasResize(c *fiber.Ctx) error {
	var req resizeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return badRequest(c, "width and height must be positive")
	}

	if _, err := s.board.Resize(req.Width, req.Height); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(s.canvasState())
}
