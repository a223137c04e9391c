package editor

import (
	"math"

	"github.com/meikuraledutech/flow"
)

const (
	MinZoom = 0.2
	MaxZoom = 2.0
)

// Viewport is the pan/zoom transform of the canvas: a canvas point p is
// drawn at screen point origin + (X, Y) + p*Zoom.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport { return Viewport{Zoom: 1} }

// SetCanvasOrigin records where the canvas element starts on screen.
func (c *Controller) SetCanvasOrigin(p flow.Position) { c.origin = p }

// Viewport returns the current transform.
func (c *Controller) Viewport() Viewport { return c.viewport }

// SetViewport replaces the transform, clamping the zoom.
func (c *Controller) SetViewport(v Viewport) {
	v.Zoom = clampZoom(v.Zoom)
	c.viewport = v
}

// Pan shifts the canvas by a screen-space offset.
func (c *Controller) Pan(dx, dy float64) {
	c.viewport.X += dx
	c.viewport.Y += dy
}

// ZoomBy scales the canvas by factor, keeping the canvas point under the
// screen point around fixed. A factor that is not a finite positive number
// is ignored.
func (c *Controller) ZoomBy(factor float64, around flow.Position) {
	if !finite(factor) || factor <= 0 {
		return
	}
	anchor := c.ScreenToCanvas(around)
	z := clampZoom(c.viewport.Zoom * factor)
	c.viewport.Zoom = z
	c.viewport.X = around.X - c.origin.X - anchor.X*z
	c.viewport.Y = around.Y - c.origin.Y - anchor.Y*z
}

// ScreenToCanvas converts a screen point to canvas coordinates.
func (c *Controller) ScreenToCanvas(p flow.Position) flow.Position {
	z := c.viewport.Zoom
	if z == 0 || !finite(z) {
		z = 1
	}
	return flow.Position{
		X: (p.X - c.origin.X - c.viewport.X) / z,
		Y: (p.Y - c.origin.Y - c.viewport.Y) / z,
	}
}

// CanvasToScreen converts a canvas point to screen coordinates.
func (c *Controller) CanvasToScreen(p flow.Position) flow.Position {
	return flow.Position{
		X: c.origin.X + c.viewport.X + p.X*c.viewport.Zoom,
		Y: c.origin.Y + c.viewport.Y + p.Y*c.viewport.Zoom,
	}
}

// clampZoom bounds z to [MinZoom, MaxZoom]. NaN and infinities reset to 1.
func clampZoom(z float64) float64 {
	switch {
	case !finite(z):
		return 1
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
