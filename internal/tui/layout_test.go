package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/csheth/bboxview/internal/document"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name           string
		width          int
		height         int
		pageWidth      int
		tableWidth     int
		viewportWidth  int
		viewportHeight int
		tableHeight    int
	}{
		{name: "default", width: 100, height: 30, pageWidth: 50, tableWidth: 49, viewportWidth: 46, viewportHeight: 21, tableHeight: 19},
		{name: "tiny", width: 30, height: 10, pageWidth: 20, tableWidth: 36, viewportWidth: 16, viewportHeight: 5, tableHeight: 3},
		{name: "wide", width: 200, height: 50, pageWidth: 100, tableWidth: 99, viewportWidth: 96, viewportHeight: 41, tableHeight: 39},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.pageWidth != tc.pageWidth || layout.tableWidth != tc.tableWidth {
				t.Fatalf("pane widths = %d/%d, want %d/%d", layout.pageWidth, layout.tableWidth, tc.pageWidth, tc.tableWidth)
			}
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
			if layout.tableHeight != tc.tableHeight {
				t.Fatalf("table height mismatch: got %d want %d", layout.tableHeight, tc.tableHeight)
			}
		})
	}
}

func TestColumnsFillTableWidth(t *testing.T) {
	layout := newPageLayout()
	cols := layout.columns()
	if len(cols) != 5 || cols[3].Title != "Sentence" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
	total := 0
	for _, c := range cols {
		total += c.Width + 2
	}
	if total != layout.tableWidth {
		t.Fatalf("columns span %d cells, table is %d", total, layout.tableWidth)
	}

	layout.Update(30, 10)
	if w := layout.columns()[3].Width; w != 10 {
		t.Fatalf("sentence column should keep a minimum width, got %d", w)
	}
}

func TestResizeMeasuresPagePane(t *testing.T) {
	m := newTestModel(t)
	loadSession(t, m, 1)
	renderCurrent(t, m)

	cmd := m.resize(160, 40)
	if want := m.layout.viewportWidth - pagePadding; m.pager.WidthPx() != want {
		t.Fatalf("rendered width = %d, want %d", m.pager.WidthPx(), want)
	}
	if cmd == nil || m.rendered != nil {
		t.Fatal("a width change should drop the old render and schedule a new one")
	}
	if cmd := m.resize(160, 44); cmd != nil {
		t.Fatal("a height-only change should not re-render")
	}
}

func TestPaneMetricsScrollsInRows(t *testing.T) {
	m := newTestModel(t)
	m.pageView = viewport.New(20, 5)
	m.pageView.SetContent(strings.Repeat("line\n", 40))

	paneMetrics{m}.SetScrollOffset(13)
	if m.pageView.YOffset != 6 {
		t.Fatalf("offset 13px should land on row 6, got %d", m.pageView.YOffset)
	}
	if got := (paneMetrics{m}).ContainerWidth(); got != m.layout.viewportWidth {
		t.Fatalf("container width = %d", got)
	}
}

func TestRenderGrid(t *testing.T) {
	if renderGrid(nil) != "" {
		t.Fatal("nil grid renders nothing")
	}
	g := document.NewGrid(3, 2, white)
	g.Set(1, 0, document.Cell{Rune: 'x', FG: white, BG: white})
	lines := strings.Split(renderGrid(g), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "x") || strings.Contains(lines[1], "x") {
		t.Fatalf("unexpected rows: %q", lines)
	}
}
