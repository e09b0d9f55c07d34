package selection

import (
	"github.com/csheth/bboxview/internal/annotations"
	"github.com/csheth/bboxview/internal/geometry"
	"github.com/csheth/bboxview/internal/paging"
)

// DefaultScrollMargin keeps the highlight off the top edge of the pane, in
// rendered pixels.
const DefaultScrollMargin = 6

// Navigator moves the viewport to a page.
type Navigator interface {
	GoToPage(n int) bool
}

// View exposes the viewport geometry needed to place a highlight.
type View interface {
	Page() int
	Native() (geometry.Size, bool)
	Rendered() geometry.Size
}

// Synchronizer ties the selected record to the viewport and the overlay.
type Synchronizer struct {
	Margin float64

	nav           Navigator
	selected      annotations.Record
	active        bool
	scrollPending bool
}

// New returns a synchronizer that navigates through nav.
func New(nav Navigator, margin float64) *Synchronizer {
	if margin < 0 {
		margin = 0
	}
	return &Synchronizer{Margin: margin, nav: nav}
}

// Select makes rec the current selection and moves the viewport to its
// page. Selecting the already selected record keeps the state as it is.
// It reports whether the page changed.
func (s *Synchronizer) Select(rec annotations.Record) bool {
	if !s.active || s.selected.ID != rec.ID {
		s.selected = rec
		s.active = true
		s.scrollPending = true
	}
	return s.nav.GoToPage(rec.Page)
}

// Selected returns the selected record.
func (s *Synchronizer) Selected() (annotations.Record, bool) {
	return s.selected, s.active
}

// IsSelected reports whether id is the current selection.
func (s *Synchronizer) IsSelected(id annotations.ID) bool {
	return s.active && s.selected.ID == id
}

// Clear drops the selection, used when the record set is replaced.
func (s *Synchronizer) Clear() {
	s.selected = annotations.Record{}
	s.active = false
	s.scrollPending = false
}

// Highlight returns the screen rectangle of the selected record's first box
// when the record is on the displayed page and its geometry is known.
func (s *Synchronizer) Highlight(v View) (geometry.Rect, bool) {
	if !s.active || s.selected.Page != v.Page() {
		return geometry.Rect{}, false
	}
	box, ok := s.selected.Box()
	if !ok {
		return geometry.Rect{}, false
	}
	native, ok := v.Native()
	if !ok {
		return geometry.Rect{}, false
	}
	return geometry.ToScreenRect(box, native, v.Rendered())
}

// ScrollTarget returns the pending scroll offset without consuming it.
func (s *Synchronizer) ScrollTarget(v View) (float64, bool) {
	if !s.scrollPending {
		return 0, false
	}
	rect, ok := s.Highlight(v)
	if !ok {
		return 0, false
	}
	offset := rect.Y - s.Margin
	if offset < 0 {
		offset = 0
	}
	return offset, true
}

// ApplyScroll scrolls to the highlight once per selection change. It reports
// whether a scroll was applied.
func (s *Synchronizer) ApplyScroll(v View, m paging.Metrics) bool {
	offset, ok := s.ScrollTarget(v)
	if !ok {
		return false
	}
	m.SetScrollOffset(offset)
	s.scrollPending = false
	return true
}
