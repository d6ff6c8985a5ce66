// Package canvas is the raster drawing board problems are sketched on. It
// keeps an undo stack of snapshots and a short-lived slot for restoring the
// board after a clear.
package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"
	"time"
)

// Tool is the instrument a stroke is drawn with.
type Tool string

const (
	Pen    Tool = "pen"
	Eraser Tool = "eraser"
)

const (
	PenWidth    = 3
	EraserWidth = 40

	// DefaultRestoreWindow is how long a cleared board can be restored.
	DefaultRestoreWindow = 5 * time.Second

	// MaxSide bounds both board dimensions.
	MaxSide = 8192

	// MaxCoordinate bounds the absolute value of a stroke point.
	MaxCoordinate = 1 << 20
)

var (
	ink   = color.RGBA{A: 0xff}
	paper = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

var (
	// ErrUnknownTool is returned by Stroke for tools other than Pen and Eraser.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrTooLarge is returned when a size exceeds MaxSide.
	ErrTooLarge = errors.New("board too large")

	// ErrBadPoint is returned for stroke points that are not finite or lie
	// beyond MaxCoordinate.
	ErrBadPoint = errors.New("invalid point")
)

// Point is a position on the board in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Option configures a Board.
type Option func(*Board)

// WithClock replaces time.Now for restore expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithRestoreWindow sets how long Restore stays available after Clear.
func WithRestoreWindow(d time.Duration) Option {
	return func(b *Board) { b.window = d }
}

// Board is a white surface with an undo history. It is safe for concurrent
// use.
type Board struct {
	mu sync.Mutex

	surface *image.RGBA

	// history holds one snapshot per committed stroke; step indexes the
	// snapshot currently shown, -1 for a blank board.
	history []*image.RGBA
	step    int

	cleared   *image.RGBA
	clearedAt time.Time

	window time.Duration
	now    func() time.Time
}

// New returns a blank board of the given size, clamped to MaxSide.
func New(width, height int, opts ...Option) *Board {
	b := &Board{
		surface: blank(min(width, MaxSide), min(height, MaxSide)),
		step:    -1,
		window:  DefaultRestoreWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stroke draws a polyline with tool and commits it as a new snapshot,
// dropping any snapshots that were undone.
func (b *Board) Stroke(tool Tool, points []Point) error {
	var width float64
	var c color.RGBA
	switch tool {
	case Pen:
		width, c = PenWidth, ink
	case Eraser:
		width, c = EraserWidth, paper
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	if len(points) == 0 {
		return errors.New("stroke has no points")
	}
	for _, p := range points {
		if !valid(p.X) || !valid(p.Y) {
			return fmt.Errorf("%w: (%g, %g)", ErrBadPoint, p.X, p.Y)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r := width / 2
	stamp(b.surface, points[0], r, c)
	for i := 1; i < len(points); i++ {
		line(b.surface, points[i-1], points[i], r, c)
	}

	b.commit()
	return nil
}

// commit pushes the surface as the newest snapshot.
func (b *Board) commit() {
	b.step++
	b.history = append(b.history[:b.step], clone(b.surface))
}

// Undo steps back one snapshot. Undoing the first snapshot leaves a blank
// board with an empty history.
func (b *Board) Undo() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.step > 0 {
		b.step--
		b.show(b.history[b.step])
		return
	}

	b.step = -1
	b.history = nil
	fill(b.surface)
}

// Clear blanks the board and keeps its current snapshot restorable for the
// restore window. Clearing a blank board does nothing.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.step < 0 {
		return
	}

	b.cleared = b.history[b.step]
	b.clearedAt = b.now()
	b.step = -1
	b.history = nil
	fill(b.surface)
}

// CanRestore reports whether Restore would succeed.
func (b *Board) CanRestore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.restorable()
}

func (b *Board) restorable() bool {
	return b.cleared != nil && b.now().Sub(b.clearedAt) < b.window
}

// Restore brings back the board removed by the last Clear, with that
// snapshot as the only history entry. It works once, within the restore
// window.
func (b *Board) Restore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.restorable() {
		b.cleared = nil
		return false
	}

	snap := b.cleared
	b.cleared = nil
	b.show(snap)
	b.history = []*image.RGBA{snap}
	b.step = 0
	return true
}

// Resize grows the board to at least width × height, keeping its content.
// The board never shrinks. It reports whether the size changed.
func (b *Board) Resize(width, height int) (bool, error) {
	if err := checkSize(width, height); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bounds := b.surface.Bounds()
	w, h := max(bounds.Dx(), width), max(bounds.Dy(), height)
	if w == bounds.Dx() && h == bounds.Dy() {
		return false, nil
	}

	content := image.Image(clone(b.surface))
	if b.step >= 0 {
		content = b.history[b.step]
	}
	b.surface = blank(w, h)
	draw.Draw(b.surface, content.Bounds(), content, image.Point{}, draw.Src)
	return true, nil
}

// Load replaces the board with img, growing it to fit, and makes it the
// only history entry.
func (b *Board) Load(img image.Image) error {
	ib := img.Bounds()
	if err := checkSize(ib.Dx(), ib.Dy()); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bounds := b.surface.Bounds()
	b.surface = blank(max(bounds.Dx(), ib.Dx()), max(bounds.Dy(), ib.Dy()))
	draw.Draw(b.surface, image.Rect(0, 0, ib.Dx(), ib.Dy()), img, ib.Min, draw.Over)

	b.history = []*image.RGBA{clone(b.surface)}
	b.step = 0
	return nil
}

// LoadPNG decodes data and loads it.
func (b *Board) LoadPNG(data []byte) error {
	img, err := DecodePNG(data)
	if err != nil {
		return err
	}
	return b.Load(img)
}

// DecodePNG decodes a PNG that fits on a board. The header is checked
// against MaxSide before the pixels are decoded.
func DecodePNG(data []byte) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	if err := checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	return img, nil
}

// Empty reports whether nothing has been drawn since the last clear.
func (b *Board) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.step < 0
}

// Steps returns the number of snapshots that can be stepped back through.
func (b *Board) Steps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.step + 1
}

// Size returns the board dimensions.
func (b *Board) Size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Bounds().Dx(), b.surface.Bounds().Dy()
}

// PNG encodes the current board.
func (b *Board) PNG() ([]byte, error) {
	b.mu.Lock()
	snap := clone(b.surface)
	b.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, snap); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Base64 returns the PNG encoding as standard base64, the form vision
// requests embed.
func (b *Board) Base64() (string, error) {
	data, err := b.PNG()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// show paints snap over a white surface.
func (b *Board) show(snap *image.RGBA) {
	fill(b.surface)
	draw.Draw(b.surface, snap.Bounds(), snap, image.Point{}, draw.Src)
}

func checkSize(width, height int) error {
	if width > MaxSide || height > MaxSide {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrTooLarge, width, height, MaxSide, MaxSide)
	}
	return nil
}

func valid(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= MaxCoordinate
}

func blank(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	fill(img)
	return img
}

func fill(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)
}

func clone(img *image.RGBA) *image.RGBA {
	c := image.NewRGBA(img.Bounds())
	copy(c.Pix, img.Pix)
	return c
}

// line draws a segment with round caps by stamping discs along it. Only the
// part of the segment within r of the surface is stepped.
func line(img *image.RGBA, from, to Point, r float64, c color.RGBA) {
	bounds := img.Bounds()
	from, to, ok := clip(from, to,
		float64(bounds.Min.X)-r, float64(bounds.Min.Y)-r,
		float64(bounds.Max.X)+r, float64(bounds.Max.Y)+r)
	if !ok {
		return
	}

	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	steps := int(math.Ceil(dist * 2))
	stamp(img, from, r, c)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stamp(img, Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}, r, c)
	}
}

// clip cuts the segment from→to down to the rectangle [minX, maxX] ×
// [minY, maxY] (Liang-Barsky). It reports false when nothing is left.
func clip(from, to Point, minX, minY, maxX, maxY float64) (Point, Point, bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, from.X - minX},
		{dx, maxX - from.X},
		{-dy, from.Y - minY},
		{dy, maxY - from.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return from, to, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return from, to, false
			}
			t1 = min(t1, t)
		}
	}
	return Point{X: from.X + dx*t0, Y: from.Y + dy*t0},
		Point{X: from.X + dx*t1, Y: from.Y + dy*t1}, true
}

// stamp fills a disc of radius r centred on p.
func stamp(img *image.RGBA, p Point, r float64, c color.RGBA) {
	bounds := img.Bounds()
	minX, maxX := int(math.Floor(p.X-r)), int(math.Ceil(p.X+r))
	minY, maxY := int(math.Floor(p.Y-r)), int(math.Ceil(p.Y+r))

	for y := max(minY, bounds.Min.Y); y < min(maxY+1, bounds.Max.Y); y++ {
		for x := max(minX, bounds.Min.X); x < min(maxX+1, bounds.Max.X); x++ {
			dx, dy := float64(x)+0.5-p.X, float64(y)+0.5-p.Y
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
