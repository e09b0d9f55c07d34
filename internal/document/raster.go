package document

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/csheth/bboxview/internal/geometry"
)

// rasterEngine renders pages through MuPDF and samples the bitmap into
// half-block cells.
type rasterEngine struct {
	cfg Config

	mu    sync.Mutex
	doc   *fitz.Document
	path  string
	pages int
	// native caches page sizes in points, measured from a 72 dpi render.
	native map[int]geometry.Size
}

func newRasterEngine(cfg Config) *rasterEngine {
	return &rasterEngine{cfg: cfg}
}

func (e *rasterEngine) Load(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}
	doc, err := fitz.New(path)
	if err != nil {
		return Info{}, &LoadError{Path: path, Err: err}
	}
	pages := doc.NumPage()
	if pages < 1 {
		doc.Close()
		return Info{}, &LoadError{Path: path, Err: errNoPages}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc != nil {
		e.doc.Close()
	}
	e.doc = doc
	e.path = path
	e.pages = pages
	e.native = map[int]geometry.Size{}
	return Info{Path: path, TotalPages: pages}, nil
}

func (e *rasterEngine) RenderPage(ctx context.Context, page, widthPx int) (result *Page, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, &RenderError{Page: page, Err: ErrNotLoaded}
	}
	if err := checkPage(page, e.pages); err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	defer recoverRender(page, &err)

	native, sample, err := e.nativeSize(page)
	if err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	out := &Page{Number: page, Native: native}
	if widthPx <= 0 {
		out.Grid = NewGrid(0, 0, paperWhite)
		return out, nil
	}

	dpi := math.Min(72*float64(widthPx)/native.Width, e.cfg.MaxDPI)
	var img image.Image = sample
	if img == nil || math.Abs(dpi-72) > 0.5 {
		img, err = e.doc.ImageDPI(page-1, dpi)
		if err != nil {
			return nil, &RenderError{Page: page, Err: err}
		}
	}
	out.Grid = GridFromImage(img, widthPx, gridRows(widthPx, native))
	return out, nil
}

// nativeSize returns the page size in points. At 72 dpi one pixel is one
// point, so the first measurement renders the page once at that resolution
// and hands the image back for reuse.
func (e *rasterEngine) nativeSize(page int) (geometry.Size, image.Image, error) {
	if size, ok := e.native[page]; ok {
		return size, nil, nil
	}
	img, err := e.doc.ImageDPI(page-1, 72)
	if err != nil {
		return geometry.Size{}, nil, err
	}
	bounds := img.Bounds()
	size := geometry.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	if !size.Known() {
		return geometry.Size{}, nil, errEmptyPage
	}
	e.native[page] = size
	return size, img, nil
}

func (e *rasterEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil
	}
	err := e.doc.Close()
	e.doc = nil
	return err
}
