package host

import "fmt"

// Rect is an axis-aligned rectangle in the host's container coordinate space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Outset grows the rectangle by d on every edge. A negative d shrinks it.
func (r Rect) Outset(d float64) Rect {
	return Rect{
		X:      r.X - d,
		Y:      r.Y - d,
		Width:  r.Width + 2*d,
		Height: r.Height + 2*d,
	}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// String returns a compact representation for logging.
func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.Width, r.Height)
}

// Paint is a background fill color in straight-alpha RGBA.
type Paint struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Clear is the fully transparent paint.
var Clear = Paint{}

// Transparent reports whether the paint contributes nothing when composited.
func (p Paint) Transparent() bool {
	return p.A == 0
}
