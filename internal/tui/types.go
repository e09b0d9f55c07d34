package tui

import (
	"github.com/csheth/bboxview/internal/annotations"
	"github.com/csheth/bboxview/internal/document"
	"github.com/csheth/bboxview/internal/paging"
)

type stage int

const (
	stageLoading stage = iota
	stageDisplay
	stagePageEntry
)

const (
	// pagePadding is subtracted from the page pane width before rendering.
	pagePadding       = 2
	minPagePaneWidth  = 20
	minTablePaneWidth = 36
	pagePaneChrome    = 4
	pixelsPerRow      = 2
	highlightStrength = 0.45
	detailLines       = 4
	noDetectedType    = "-"
)

const (
	markerSelected = "●"
	navPrevious    = "◀ Previous"
	navNext        = "Next ▶"
)

// sessionResultMsg carries both halves of a session load. Either half may
// have failed without affecting the other.
type sessionResultMsg struct {
	generation uint64

	info   document.Info
	docErr error

	parsed   annotations.Result
	parseErr error
}

type pageRenderedMsg struct {
	req  paging.RenderRequest
	page *document.Page
	err  error
}

type settleMsg struct {
	ticket paging.Ticket
}

type copyResultMsg struct {
	id  annotations.ID
	err error
}
