package document

import (
	"context"
	"math"
	"os"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/csheth/bboxview/internal/geometry"
)

// textEngine draws the glyphs of a page at their positions on a blank sheet.
// It needs no native renderer and works for any document pdfcpu can read.
type textEngine struct {
	cfg Config

	mu     sync.Mutex
	file   *os.File
	reader *pdf.Reader
	dims   []geometry.Size
}

func newTextEngine(cfg Config) *textEngine {
	return &textEngine{cfg: cfg}
}

func (e *textEngine) Load(ctx context.Context, path string) (info Info, err error) {
	if err := ctx.Err(); err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &LoadError{Path: path, Err: errorFromPanic(r)}
		}
	}()

	total, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}
	if total < 1 {
		return Info{}, &LoadError{Path: path, Err: errNoPages}
	}
	pdims, err := api.PageDimsFile(path)
	if err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}
	dims := make([]geometry.Size, total)
	for i := range dims {
		if i < len(pdims) {
			dims[i] = geometry.Size{Width: pdims[i].Width, Height: pdims[i].Height}
		}
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file != nil {
		e.file.Close()
	}
	e.file = file
	e.reader = reader
	e.dims = dims
	return Info{Path: path, TotalPages: total}, nil
}

func (e *textEngine) RenderPage(ctx context.Context, page, widthPx int) (result *Page, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reader == nil {
		return nil, &RenderError{Page: page, Err: ErrNotLoaded}
	}
	if err := checkPage(page, len(e.dims)); err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	defer recoverRender(page, &err)

	native := e.dims[page-1]
	if !native.Known() {
		return nil, &RenderError{Page: page, Err: errEmptyPage}
	}
	out := &Page{Number: page, Native: native}
	rows := gridRows(widthPx, native)
	out.Grid = NewGrid(widthPx, rows, paperWhite)
	if rows == 0 {
		return out, nil
	}

	p := e.reader.Page(page)
	if p.V.IsNull() {
		return nil, &RenderError{Page: page, Err: errEmptyPage}
	}
	scale := float64(widthPx) / native.Width
	renderedH := native.Height * scale
	for _, t := range p.Content().Text {
		r, _ := utf8.DecodeRuneInString(t.S)
		if r == utf8.RuneError || !unicode.IsGraphic(r) || unicode.IsSpace(r) {
			continue
		}
		x := int(math.Floor(t.X * scale))
		y := int(math.Floor((renderedH - t.Y*scale) / 2))
		out.Grid.Set(x, y, Cell{Rune: r, FG: inkBlack, BG: paperWhite})
	}
	return out, nil
}

func (e *textEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	e.reader = nil
	return err
}
