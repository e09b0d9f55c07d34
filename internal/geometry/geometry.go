package geometry

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// Size is a width/height pair. Native sizes are in document units, rendered
// sizes in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Known reports whether both dimensions are usable for scaling.
func (s Size) Known() bool {
	return positiveFinite(s.Width) && positiveFinite(s.Height)
}

// Box is a native-space quadruple [x0, y0, x1, y1] with a bottom-left origin.
// Upstream data does not guarantee the ordering of either pair.
type Box [4]float64

// Valid reports whether every coordinate is finite.
func (b Box) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Rect returns the normalized rectangle spanned by the box corners.
func (b Box) Rect() r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: b[0], Y: b[1]},
		r2.Point{X: b[2], Y: b[3]},
	)
}

// Rect is a screen-space rectangle in pixels relative to the rendered page's
// top-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ToScreenRect maps a native box onto the rendered page. The larger y value
// of the box is its top edge. ok is false while either size is unknown.
func ToScreenRect(box Box, native, rendered Size) (Rect, bool) {
	if !native.Known() || !rendered.Known() || !box.Valid() {
		return Rect{}, false
	}
	scaleX := rendered.Width / native.Width
	scaleY := rendered.Height / native.Height

	r := box.Rect()
	top := r.Y.Hi
	return Rect{
		X:      r.X.Lo * scaleX,
		Y:      rendered.Height - top*scaleY,
		Width:  (r.X.Hi - r.X.Lo) * scaleX,
		Height: math.Abs(r.Y.Hi-r.Y.Lo) * scaleY,
	}, true
}

// Cells rounds the rectangle outward onto a grid of cellWidth x cellHeight
// pixel cells.
func (r Rect) Cells(cellWidth, cellHeight float64) image.Rectangle {
	if !positiveFinite(cellWidth) || !positiveFinite(cellHeight) {
		return image.Rectangle{}
	}
	x0 := int(math.Floor(r.X / cellWidth))
	y0 := int(math.Floor(r.Y / cellHeight))
	x1 := int(math.Ceil((r.X + r.Width) / cellWidth))
	y1 := int(math.Ceil((r.Y + r.Height) / cellHeight))
	if x1 == x0 {
		x1++
	}
	if y1 == y0 {
		y1++
	}
	return image.Rect(x0, y0, x1, y1)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
