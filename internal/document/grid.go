package document

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// UpperHalfBlock draws the top pixel of a cell in the foreground color and
// the bottom pixel in the background color.
const UpperHalfBlock = '▀'

var (
	paperWhite = colorful.Color{R: 1, G: 1, B: 1}
	inkBlack   = colorful.Color{R: 0.08, G: 0.08, B: 0.08}
)

// Cell is one terminal cell of a rendered page. A cell covers one pixel
// horizontally and two pixels vertically.
type Cell struct {
	Rune rune
	FG   colorful.Color
	BG   colorful.Color
}

// Grid is a rendered page laid out in terminal cells.
type Grid struct {
	Width  int
	Height int
	cells  []Cell
}

// NewGrid returns a blank grid filled with bg.
func NewGrid(width, height int, bg colorful.Color) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{Width: width, Height: height, cells: make([]Cell, width*height)}
	for i := range g.cells {
		g.cells[i] = Cell{Rune: ' ', FG: inkBlack, BG: bg}
	}
	return g
}

// Bounds returns the grid rectangle in cells.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// At returns the cell at x, y. Out of range reads return a blank cell.
func (g *Grid) At(x, y int) Cell {
	if !image.Pt(x, y).In(g.Bounds()) {
		return Cell{Rune: ' ', FG: inkBlack, BG: paperWhite}
	}
	return g.cells[y*g.Width+x]
}

// Set writes a cell; out of range writes are dropped.
func (g *Grid) Set(x, y int, c Cell) {
	if !image.Pt(x, y).In(g.Bounds()) {
		return
	}
	g.cells[y*g.Width+x] = c
}

// Clone returns a deep copy so overlays never touch the rendered page.
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, cells: make([]Cell, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}

// Tint blends every cell inside r toward c by amount t in [0, 1].
func (g *Grid) Tint(r image.Rectangle, c colorful.Color, t float64) {
	r = r.Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cell := &g.cells[y*g.Width+x]
			cell.FG = cell.FG.BlendRgb(c, t).Clamped()
			cell.BG = cell.BG.BlendRgb(c, t).Clamped()
		}
	}
}

// GridFromImage samples img into a width x height grid of half-block cells.
func GridFromImage(img image.Image, width, height int) *Grid {
	g := NewGrid(width, height, paperWhite)
	b := img.Bounds()
	if b.Empty() || width == 0 || height == 0 {
		return g
	}
	heightPx := height * 2
	sample := func(x, py int) colorful.Color {
		sx := b.Min.X + x*b.Dx()/width
		sy := b.Min.Y + py*b.Dy()/heightPx
		c, ok := colorful.MakeColor(img.At(sx, sy))
		if !ok {
			return paperWhite
		}
		return c
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.cells[y*width+x] = Cell{
				Rune: UpperHalfBlock,
				FG:   sample(x, 2*y),
				BG:   sample(x, 2*y+1),
			}
		}
	}
	return g
}
