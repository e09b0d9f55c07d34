package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/csheth/bboxview/internal/document"
)

type pageLayout struct {
	windowWidth  int
	windowHeight int

	pageWidth      int
	pageHeight     int
	viewportWidth  int
	viewportHeight int

	tableWidth  int
	tableHeight int
}

func newPageLayout() pageLayout {
	l := pageLayout{}
	l.Update(100, 30)
	return l
}

// Update splits the window into the page pane on the left and the table
// pane on the right.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height

	const chrome = 6
	paneHeight := height - chrome
	if paneHeight < 8 {
		paneHeight = 8
	}

	l.pageWidth = width / 2
	if l.pageWidth < minPagePaneWidth {
		l.pageWidth = minPagePaneWidth
	}
	l.tableWidth = width - l.pageWidth - 1
	if l.tableWidth < minTablePaneWidth {
		l.tableWidth = minTablePaneWidth
	}

	l.pageHeight = paneHeight
	l.viewportWidth = l.pageWidth - pagePaneChrome
	// Border rows plus the navigation bar.
	l.viewportHeight = paneHeight - 3
	if l.viewportHeight < 3 {
		l.viewportHeight = 3
	}

	l.tableHeight = paneHeight - detailLines - 1
	if l.tableHeight < 3 {
		l.tableHeight = 3
	}
}

func (l pageLayout) columns() []table.Column {
	const (
		markerWidth = 1
		pageWidth   = 4
		seqWidth    = 4
		typeWidth   = 14
		cellPadding = 2
	)
	fixed := markerWidth + pageWidth + seqWidth + typeWidth + 5*cellPadding
	sentence := l.tableWidth - fixed
	if sentence < 10 {
		sentence = 10
	}
	return []table.Column{
		{Title: " ", Width: markerWidth},
		{Title: "Page", Width: pageWidth},
		{Title: "Seq", Width: seqWidth},
		{Title: "Sentence", Width: sentence},
		{Title: "Detected Type", Width: typeWidth},
	}
}

// paneMetrics exposes the page pane to the paging and selection packages.
type paneMetrics struct {
	m *model
}

func (p paneMetrics) ContainerWidth() int {
	return p.m.layout.viewportWidth
}

func (p paneMetrics) SetScrollOffset(px float64) {
	p.m.pageView.SetYOffset(int(px) / pixelsPerRow)
}

// renderGrid turns a cell grid into terminal lines. Runs of cells with the
// same colors share one style.
func renderGrid(g *document.Grid) string {
	if g == nil || g.Width == 0 || g.Height == 0 {
		return ""
	}
	lines := make([]string, g.Height)
	for y := 0; y < g.Height; y++ {
		var b strings.Builder
		var run strings.Builder
		var fg, bg colorful.Color
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fg.Hex())).
				Background(lipgloss.Color(bg.Hex()))
			b.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < g.Width; x++ {
			cell := g.At(x, y)
			if run.Len() > 0 && (cell.FG != fg || cell.BG != bg) {
				flush()
			}
			fg, bg = cell.FG, cell.BG
			run.WriteRune(cell.Rune)
		}
		flush()
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}
