// Package canvas implements the paintable mask overlay that sits on top of
// the displayed scene image.
package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/manash/roomedit/pkg/models"
)

const (
	BrushWidth     = 30
	DefaultOpacity = 0.6
	MinOpacity     = 0.1
	MaxOpacity     = 1.0
)

var (
	ErrNoStroke    = errors.New("no active stroke")
	ErrNoSurface   = errors.New("canvas has no size")
	ErrBadSnapshot = errors.New("cannot decode mask snapshot")
)

// Canvas is a raster surface sized to the image as displayed on screen. It
// collects freehand strokes and serializes itself as a PNG mask.
type Canvas struct {
	origin  Point
	opacity float64
	enabled bool

	surface *image.RGBA
	// base is the surface as it was before the active stroke began.
	base     *image.RGBA
	coverage *image.Alpha
	raster   *vector.Rasterizer

	drawing bool
	last    Point
	// snapshot is the last known mask, replayed on resize.
	snapshot *models.Image
}

func New(width, height int) *Canvas {
	c := &Canvas{
		opacity: DefaultOpacity,
		enabled: true,
		raster:  vector.NewRasterizer(0, 0),
	}
	c.provision(width, height)
	return c
}

func (c *Canvas) provision(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.surface = image.NewRGBA(image.Rect(0, 0, width, height))
	c.base = image.NewRGBA(c.surface.Rect)
	c.coverage = image.NewAlpha(c.surface.Rect)
	c.drawing = false
}

func (c *Canvas) Size() (width, height int) {
	b := c.surface.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) hasSurface() bool {
	w, h := c.Size()
	return w > 0 && h > 0
}

// SetOrigin records where the canvas's top-left corner sits on screen.
func (c *Canvas) SetOrigin(x, y float64) {
	c.origin = Point{X: x, Y: y}
}

func (c *Canvas) Origin() Point {
	return c.origin
}

// SetOpacity sets the highlight opacity for subsequent strokes, clamped to
// [MinOpacity, MaxOpacity]. It returns the value in effect.
func (c *Canvas) SetOpacity(v float64) float64 {
	switch {
	case v < MinOpacity:
		v = MinOpacity
	case v > MaxOpacity:
		v = MaxOpacity
	}
	c.opacity = v
	return v
}

func (c *Canvas) Opacity() float64 {
	return c.opacity
}

// SetEnabled turns drawing on or off. Disabling abandons any stroke in
// progress.
func (c *Canvas) SetEnabled(enabled bool) {
	if !enabled && c.drawing {
		c.abandonStroke()
	}
	c.enabled = enabled
}

func (c *Canvas) Enabled() bool {
	return c.enabled
}

func (c *Canvas) Drawing() bool {
	return c.drawing
}

func (c *Canvas) local(p Pointer) Point {
	pt := p.client()
	return Point{X: pt.X - c.origin.X, Y: pt.Y - c.origin.Y}
}

// BeginStroke starts a new path at p. It reports whether a stroke started.
func (c *Canvas) BeginStroke(p Pointer) bool {
	if !c.enabled || !c.hasSurface() {
		return false
	}
	copy(c.base.Pix, c.surface.Pix)
	clear(c.coverage.Pix)
	c.last = c.local(p)
	c.drawing = true
	return true
}

// ContinueStroke extends the active path to p. Without an active stroke it
// does nothing.
func (c *Canvas) ContinueStroke(p Pointer) bool {
	if !c.enabled || !c.drawing {
		return false
	}
	next := c.local(p)
	strokeSegment(c.raster, c.coverage, c.last, next, BrushWidth/2)
	c.last = next
	c.render()
	return true
}

func (c *Canvas) highlight() color.NRGBA {
	return color.NRGBA{R: 255, A: uint8(c.opacity*255 + 0.5)}
}

func (c *Canvas) render() {
	copy(c.surface.Pix, c.base.Pix)
	draw.DrawMask(c.surface, c.surface.Rect, image.NewUniform(c.highlight()), image.Point{}, c.coverage, image.Point{}, draw.Over)
}

func (c *Canvas) abandonStroke() {
	copy(c.surface.Pix, c.base.Pix)
	c.drawing = false
}

// EndStroke finishes the active stroke and returns the whole surface as a PNG
// snapshot. It returns ErrNoStroke if no stroke was active.
func (c *Canvas) EndStroke() (*models.Image, error) {
	if !c.drawing {
		return nil, ErrNoStroke
	}
	c.drawing = false

	snap, err := c.Encode()
	if err != nil {
		return nil, err
	}
	c.snapshot = snap
	return snap, nil
}

// Clear erases everything painted so far.
func (c *Canvas) Clear() {
	clear(c.surface.Pix)
	clear(c.base.Pix)
	c.drawing = false
	c.snapshot = nil
}

// Restore repaints the surface from a stored snapshot, scaling it to the
// current size. An empty snapshot leaves the surface blank.
func (c *Canvas) Restore(snapshot *models.Image) error {
	c.drawing = false
	clear(c.surface.Pix)
	c.snapshot = nil
	if snapshot.Empty() {
		copy(c.base.Pix, c.surface.Pix)
		return nil
	}
	if err := c.replay(snapshot); err != nil {
		return err
	}
	c.snapshot = snapshot
	copy(c.base.Pix, c.surface.Pix)
	return nil
}

// Resize re-provisions the surface at the displayed image size and replays
// the last known snapshot onto it. A stroke in progress is dropped.
func (c *Canvas) Resize(width, height int) error {
	snap := c.snapshot
	c.provision(width, height)
	if snap.Empty() || !c.hasSurface() {
		return nil
	}
	if err := c.replay(snap); err != nil {
		return err
	}
	copy(c.base.Pix, c.surface.Pix)
	return nil
}

func (c *Canvas) replay(snapshot *models.Image) error {
	src, _, err := image.Decode(bytes.NewReader(snapshot.Data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	xdraw.BiLinear.Scale(c.surface, c.surface.Rect, src, src.Bounds(), xdraw.Over, nil)
	return nil
}

// Snapshot returns the last known mask, nil if none.
func (c *Canvas) Snapshot() *models.Image {
	return c.snapshot
}

// Encode serializes the current surface as PNG.
func (c *Canvas) Encode() (*models.Image, error) {
	if !c.hasSurface() {
		return nil, ErrNoSurface
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.surface); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

// Composite scales background to the canvas size, draws the overlay on top
// and returns the result as PNG.
func (c *Canvas) Composite(background *models.Image) (*models.Image, error) {
	if !c.hasSurface() {
		return nil, ErrNoSurface
	}
	dst := image.NewRGBA(c.surface.Rect)
	if !background.Empty() {
		src, _, err := image.Decode(bytes.NewReader(background.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode background: %w", err)
		}
		xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), xdraw.Src, nil)
	}
	draw.Draw(dst, dst.Rect, c.surface, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}
