package display

import (
	"image"

	"github.com/kbinani/screenshot"
)

// Bounds lists the rectangles of the active displays in virtual-screen coordinates.
type Bounds interface {
	Displays() []image.Rectangle
}

// System reads display geometry from the running X server.
type System struct{}

func (System) Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Static is a fixed display layout.
type Static []image.Rectangle

func (s Static) Displays() []image.Rectangle { return s }

// Clamp moves a size-sized surface anchored at p so it stays on the display containing p.
// With no displays, or when p is on none of them, p is returned unchanged.
func Clamp(b Bounds, p image.Point, size image.Point) image.Point {
	if b == nil {
		return p
	}
	for _, r := range b.Displays() {
		if !p.In(r) {
			continue
		}
		if p.X+size.X > r.Max.X {
			p.X = r.Max.X - size.X
		}
		if p.Y+size.Y > r.Max.Y {
			p.Y = r.Max.Y - size.Y
		}
		if p.X < r.Min.X {
			p.X = r.Min.X
		}
		if p.Y < r.Min.Y {
			p.Y = r.Min.Y
		}
		return p
	}
	return p
}
