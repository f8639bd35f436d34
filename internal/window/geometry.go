package window

import "math"

// Minimum inner size of the main window, in logical units.
const (
	MinWidth  = 600.0
	MinHeight = 520.0
)

// Bounds of the off-screen heuristic, in physical pixels relative to the current monitor.
const (
	offScreenLeft   = -400
	offScreenTop    = -200
	offScreenMargin = 200
)

// Rect is a window rectangle in logical (scale independent) units.
type Rect struct {
	Width  float64
	Height float64
	X      float64
	Y      float64
}

// Slice returns the persisted form [width, height, x, y].
func (r Rect) Slice() []float64 {
	return []float64{r.Width, r.Height, r.X, r.Y}
}

// Placement is the outcome of validating persisted geometry. When Persisted is false
// the platform default size and centering apply and Rect is zero.
type Placement struct {
	Persisted bool
	Rect      Rect
}

// UsePlatformDefault is the placement chosen for absent or malformed geometry.
var UsePlatformDefault = Placement{}

// Validate turns the persisted window_size_position value into a placement decision.
// Exactly four finite values are required; a width or height below the minimum is
// clamped up rather than rejected.
func Validate(values []float64) Placement {
	if len(values) != 4 {
		return UsePlatformDefault
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return UsePlatformDefault
		}
	}

	return Placement{
		Persisted: true,
		Rect: Rect{
			Width:  math.Max(values[0], MinWidth),
			Height: math.Max(values[1], MinHeight),
			X:      values[2],
			Y:      values[3],
		},
	}
}

// PhysicalPosition is a position in physical pixels.
type PhysicalPosition struct {
	X int
	Y int
}

// PhysicalSize is a size in physical pixels.
type PhysicalSize struct {
	Width  int
	Height int
}

// IsOffScreen reports whether a window whose top-left corner is at pos is too far
// outside a monitor of the given size to be reachable. Comparisons are strict.
func IsOffScreen(pos PhysicalPosition, monitor PhysicalSize) bool {
	return pos.X < offScreenLeft ||
		pos.X > monitor.Width-offScreenMargin ||
		pos.Y < offScreenTop ||
		pos.Y > monitor.Height-offScreenMargin
}

// toLogical converts a physical measurement using the window's scale factor.
func toLogical(v int, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return float64(v) / scale
}
