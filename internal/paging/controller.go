package paging

import "github.com/csheth/bboxview/internal/geometry"

// Metrics abstracts the layout reads and writes of the page pane.
type Metrics interface {
	ContainerWidth() int
	SetScrollOffset(px float64)
}

// RenderRequest tags one page render so its completion can be matched
// against the state that issued it.
type RenderRequest struct {
	Generation uint64
	Seq        uint64
	Page       int
	WidthPx    int
}

// Controller owns the page viewport state of one document session. It is
// not safe for concurrent use; callers drive it from a single event loop.
type Controller struct {
	padding int

	generation uint64
	renderSeq  uint64

	page          int
	totalPages    int
	fallbackPages int

	widthPx    int
	native     geometry.Size
	nativePage int

	docErr   error
	pageErrs map[int]error
}

// NewController returns a controller for page 1 that subtracts padding from
// every container width it is given.
func NewController(padding int) *Controller {
	if padding < 0 {
		padding = 0
	}
	return &Controller{
		padding:    padding,
		generation: 1,
		page:       1,
		pageErrs:   map[int]error{},
	}
}

// Reset starts a new session. Results tagged with an older generation are
// ignored from now on.
func (c *Controller) Reset() uint64 {
	c.generation++
	c.renderSeq = 0
	c.page = 1
	c.totalPages = 0
	c.fallbackPages = 0
	c.native = geometry.Size{}
	c.nativePage = 0
	c.docErr = nil
	c.pageErrs = map[int]error{}
	return c.generation
}

// Generation identifies the current session.
func (c *Controller) Generation() uint64 { return c.generation }

// Page returns the current 1-indexed page.
func (c *Controller) Page() int { return c.page }

// TotalPages returns the authoritative page count, or 0 while unknown.
func (c *Controller) TotalPages() int { return c.totalPages }

// Bound returns the navigation upper bound: the document page count when
// known, otherwise the highest annotated page.
func (c *Controller) Bound() int {
	if c.totalPages > 0 {
		return c.totalPages
	}
	return c.fallbackPages
}

// SetFallbackPages records the best-effort bound taken from the annotations.
func (c *Controller) SetFallbackPages(n int) {
	if n < 0 {
		n = 0
	}
	c.fallbackPages = n
}

// GoToPage moves to page n, clamped into range. While the page count is
// unknown a request beyond the best-effort bound is ignored. It reports
// whether the current page changed.
func (c *Controller) GoToPage(n int) bool {
	if n < 1 {
		n = 1
	}
	switch {
	case c.totalPages > 0:
		if n > c.totalPages {
			n = c.totalPages
		}
	case c.fallbackPages > 0 && n > c.fallbackPages:
		return false
	}
	if n == c.page {
		return false
	}
	c.page = n
	c.native = geometry.Size{}
	c.nativePage = 0
	return true
}

// CanNext reports whether Next would move.
func (c *Controller) CanNext() bool {
	bound := c.Bound()
	return bound > 0 && c.page < bound
}

// CanPrevious reports whether Previous would move.
func (c *Controller) CanPrevious() bool {
	return c.page > 1
}

// Next advances one page unless already on the last page.
func (c *Controller) Next() bool {
	if !c.CanNext() {
		return false
	}
	return c.GoToPage(c.page + 1)
}

// Previous goes back one page unless already on the first page.
func (c *Controller) Previous() bool {
	if !c.CanPrevious() {
		return false
	}
	return c.GoToPage(c.page - 1)
}

// OnContainerResize derives the rendered width from the container width.
func (c *Controller) OnContainerResize(width int) {
	w := width - c.padding
	if w < 0 {
		w = 0
	}
	c.widthPx = w
}

// Measure reads the container width from m.
func (c *Controller) Measure(m Metrics) {
	c.OnContainerResize(m.ContainerWidth())
}

// WidthPx returns the current rendered page width.
func (c *Controller) WidthPx() int { return c.widthPx }

// BeginRender tags a render request for the current page. Only the most
// recent request can be applied.
func (c *Controller) BeginRender() RenderRequest {
	c.renderSeq++
	return RenderRequest{
		Generation: c.generation,
		Seq:        c.renderSeq,
		Page:       c.page,
		WidthPx:    c.widthPx,
	}
}

// Current reports whether req is the latest request for the current page of
// this session at the current width. A resize makes earlier renders stale.
func (c *Controller) Current(req RenderRequest) bool {
	return req.Generation == c.generation && req.Seq == c.renderSeq &&
		req.Page == c.page && req.WidthPx == c.widthPx
}

// OnPageRendered records the native size of a completed render. Stale
// completions are rejected.
func (c *Controller) OnPageRendered(req RenderRequest, native geometry.Size) bool {
	if !c.Current(req) || !native.Known() {
		return false
	}
	c.native = native
	c.nativePage = req.Page
	delete(c.pageErrs, req.Page)
	return true
}

// OnPageFailed records a render failure for the requested page.
func (c *Controller) OnPageFailed(req RenderRequest, err error) bool {
	if !c.Current(req) {
		return false
	}
	c.pageErrs[req.Page] = err
	c.native = geometry.Size{}
	c.nativePage = 0
	return true
}

// OnDocumentLoaded sets the authoritative page count and clamps the current
// page into it.
func (c *Controller) OnDocumentLoaded(generation uint64, totalPages int) bool {
	if generation != c.generation || totalPages < 1 {
		return false
	}
	c.totalPages = totalPages
	c.docErr = nil
	if c.page > totalPages {
		c.GoToPage(totalPages)
	}
	return true
}

// OnDocumentFailed records a document load failure for this session.
func (c *Controller) OnDocumentFailed(generation uint64, err error) bool {
	if generation != c.generation {
		return false
	}
	c.docErr = err
	return true
}

// DocumentError returns the document load failure, if any.
func (c *Controller) DocumentError() error { return c.docErr }

// PageError returns the render failure recorded for page, if any.
func (c *Controller) PageError(page int) error { return c.pageErrs[page] }

// Native returns the native size of the current page once it has rendered.
func (c *Controller) Native() (geometry.Size, bool) {
	if c.nativePage != c.page || !c.native.Known() {
		return geometry.Size{}, false
	}
	return c.native, true
}

// Rendered returns the rendered page size. The height stays zero until the
// current page has reported its native size.
func (c *Controller) Rendered() geometry.Size {
	size := geometry.Size{Width: float64(c.widthPx)}
	native, ok := c.Native()
	if !ok || c.widthPx == 0 {
		return size
	}
	size.Height = size.Width * native.Height / native.Width
	return size
}
