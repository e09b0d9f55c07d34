package paging

import (
	"errors"
	"testing"

	"github.com/csheth/bboxview/internal/geometry"
)

var letter = geometry.Size{Width: 612, Height: 792}

func loadedController(t *testing.T, total int) *Controller {
	t.Helper()
	c := NewController(2)
	if !c.OnDocumentLoaded(c.Generation(), total) {
		t.Fatalf("OnDocumentLoaded rejected a current generation")
	}
	return c
}

func TestGoToPageClamps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target int
		want   int
	}{
		{name: "zero", target: 0, want: 1},
		{name: "negative", target: -4, want: 1},
		{name: "inside", target: 3, want: 3},
		{name: "last", target: 7, want: 7},
		{name: "beyond", target: 12, want: 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := loadedController(t, 7)
			c.GoToPage(4)
			c.GoToPage(tc.target)
			if c.Page() != tc.want {
				t.Fatalf("GoToPage(%d) settled on %d, want %d", tc.target, c.Page(), tc.want)
			}
		})
	}
}

func TestNextPreviousBoundaries(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 3)
	if c.CanPrevious() || c.Previous() {
		t.Fatal("previous must be a no-op on page 1")
	}
	if c.Page() != 1 {
		t.Fatalf("page moved to %d", c.Page())
	}
	if !c.Next() || !c.Next() {
		t.Fatal("next should advance inside the document")
	}
	if c.CanNext() || c.Next() {
		t.Fatal("next must be a no-op on the last page")
	}
	if c.Page() != 3 {
		t.Fatalf("expected to stay on page 3, got %d", c.Page())
	}
	if !c.Previous() || c.Page() != 2 {
		t.Fatalf("previous should step back, got page %d", c.Page())
	}
}

func TestUnknownTotalUsesAnnotationBound(t *testing.T) {
	t.Parallel()

	c := NewController(0)
	c.SetFallbackPages(4)
	if c.GoToPage(9) {
		t.Fatal("request beyond the best-effort bound should be ignored")
	}
	if c.Page() != 1 {
		t.Fatalf("page changed to %d", c.Page())
	}
	if !c.GoToPage(4) || c.Page() != 4 {
		t.Fatalf("page inside the best-effort bound should be accepted, got %d", c.Page())
	}
	if c.CanNext() {
		t.Fatal("next should be disabled at the best-effort bound")
	}

	if !c.OnDocumentLoaded(c.Generation(), 10) {
		t.Fatal("document load rejected")
	}
	if c.Bound() != 10 || !c.CanNext() {
		t.Fatalf("document page count should replace the annotation bound, bound=%d", c.Bound())
	}
}

func TestUnknownBoundsAcceptPagesProvisionally(t *testing.T) {
	t.Parallel()

	c := NewController(0)
	if c.CanNext() {
		t.Fatal("next without any bound should be disabled")
	}
	if !c.GoToPage(6) || c.Page() != 6 {
		t.Fatalf("provisional navigation failed, page=%d", c.Page())
	}
	c.OnDocumentLoaded(c.Generation(), 4)
	if c.Page() != 4 {
		t.Fatalf("provisional page should clamp down to the document, got %d", c.Page())
	}
}

func TestDocumentLoadClampsCurrentPage(t *testing.T) {
	t.Parallel()

	c := NewController(0)
	c.SetFallbackPages(12)
	c.GoToPage(11)
	c.OnDocumentLoaded(c.Generation(), 5)
	if c.Page() != 5 {
		t.Fatalf("expected clamp to 5, got %d", c.Page())
	}
}

func TestResizeIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewController(4)
	for i := 0; i < 3; i++ {
		c.OnContainerResize(100)
	}
	if c.WidthPx() != 96 {
		t.Fatalf("width = %d, want 96", c.WidthPx())
	}
	c.OnContainerResize(2)
	if c.WidthPx() != 0 {
		t.Fatalf("narrow container should floor at zero, got %d", c.WidthPx())
	}
}

type fakeMetrics struct {
	width  int
	offset float64
}

func (f *fakeMetrics) ContainerWidth() int        { return f.width }
func (f *fakeMetrics) SetScrollOffset(px float64) { f.offset = px }

func TestMeasureUsesMetrics(t *testing.T) {
	t.Parallel()

	c := NewController(2)
	c.Measure(&fakeMetrics{width: 82})
	if c.WidthPx() != 80 {
		t.Fatalf("width = %d, want 80", c.WidthPx())
	}
}

func TestGeometryWaitsForCurrentPageRender(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 3)
	c.OnContainerResize(308)
	if _, ok := c.Native(); ok {
		t.Fatal("native size should be unknown before the first render")
	}
	if got := c.Rendered(); got.Height != 0 || got.Width != 306 {
		t.Fatalf("rendered size before render = %+v", got)
	}

	req := c.BeginRender()
	if !c.OnPageRendered(req, letter) {
		t.Fatal("current render should be accepted")
	}
	if got := c.Rendered(); got.Width != 306 || got.Height != 396 {
		t.Fatalf("rendered size = %+v, want 306x396", got)
	}

	c.Next()
	if _, ok := c.Native(); ok {
		t.Fatal("geometry from the previous page must not be reused")
	}
	if got := c.Rendered(); got.Height != 0 {
		t.Fatalf("rendered height should reset after navigation, got %v", got.Height)
	}
}

func TestStaleRenderCompletionIsRejected(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 5)
	c.OnContainerResize(200)

	first := c.BeginRender()
	c.GoToPage(3)
	second := c.BeginRender()

	if c.OnPageRendered(first, letter) {
		t.Fatal("completion for page 1 must not apply on page 3")
	}
	if !c.OnPageRendered(second, letter) {
		t.Fatal("latest completion should apply")
	}

	again := c.BeginRender()
	older := second
	if c.OnPageRendered(older, letter) {
		t.Fatal("superseded request for the same page must be rejected")
	}
	if !c.Current(again) {
		t.Fatal("latest request should be current")
	}
}

func TestResizeMakesInFlightRenderStale(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 2)
	c.OnContainerResize(46)
	before := c.BeginRender()
	c.OnContainerResize(76)

	if c.Current(before) || c.OnPageRendered(before, letter) {
		t.Fatal("a render at the old width must not be applied")
	}
	if c.OnPageFailed(before, errors.New("late failure")) || c.PageError(1) != nil {
		t.Fatal("a failure at the old width must not be recorded")
	}
	if _, ok := c.Native(); ok {
		t.Fatal("no geometry should be known after a rejected render")
	}

	after := c.BeginRender()
	if after.WidthPx != 74 || !c.OnPageRendered(after, letter) {
		t.Fatalf("render at the new width should apply (request %+v)", after)
	}

	c.OnContainerResize(76)
	if !c.Current(after) {
		t.Fatal("resizing to the same width keeps the render current")
	}
}

func TestResetDropsOlderGeneration(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 5)
	oldGen := c.Generation()
	req := c.BeginRender()

	c.Reset()
	if c.Page() != 1 || c.TotalPages() != 0 {
		t.Fatalf("reset should clear state, page=%d total=%d", c.Page(), c.TotalPages())
	}
	if c.OnDocumentLoaded(oldGen, 9) {
		t.Fatal("document result of a replaced session must be dropped")
	}
	if c.OnDocumentFailed(oldGen, errors.New("late")) {
		t.Fatal("document failure of a replaced session must be dropped")
	}
	if c.OnPageRendered(req, letter) {
		t.Fatal("render result of a replaced session must be dropped")
	}
	if c.TotalPages() != 0 || c.DocumentError() != nil {
		t.Fatal("stale results mutated the new session")
	}
}

func TestPageErrorsArePerPageAndRecoverable(t *testing.T) {
	t.Parallel()

	c := loadedController(t, 3)
	c.OnContainerResize(100)
	c.GoToPage(2)
	boom := errors.New("bad page")
	if !c.OnPageFailed(c.BeginRender(), boom) {
		t.Fatal("failure for the current request should be recorded")
	}
	if !errors.Is(c.PageError(2), boom) {
		t.Fatalf("page 2 error = %v", c.PageError(2))
	}
	if c.PageError(1) != nil || c.PageError(3) != nil {
		t.Fatal("other pages must stay unaffected")
	}

	c.GoToPage(3)
	if !c.OnPageRendered(c.BeginRender(), letter) {
		t.Fatal("other pages should still render")
	}
	c.GoToPage(2)
	if !c.OnPageRendered(c.BeginRender(), letter) {
		t.Fatal("retry of the failed page should be accepted")
	}
	if c.PageError(2) != nil {
		t.Fatal("successful re-render should clear the page error")
	}
}

func TestDocumentFailureIsRecorded(t *testing.T) {
	t.Parallel()

	c := NewController(0)
	boom := errors.New("not a pdf")
	if !c.OnDocumentFailed(c.Generation(), boom) {
		t.Fatal("failure should be recorded")
	}
	if !errors.Is(c.DocumentError(), boom) {
		t.Fatalf("DocumentError() = %v", c.DocumentError())
	}
	if c.OnDocumentLoaded(c.Generation(), 0) {
		t.Fatal("zero page count is not a valid load")
	}
}
