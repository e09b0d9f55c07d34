package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/bboxview/internal/markup"
)

func (m *model) View() string {
	panes := lipgloss.JoinHorizontal(lipgloss.Top, m.pagePaneView(), " ", m.tablePaneView())
	parts := []string{m.headerView(), panes, m.statusView()}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	return joinNonEmpty(parts)
}

func (m *model) headerView() string {
	files := fmt.Sprintf("%s · %s", filepath.Base(m.config.DocumentPath), filepath.Base(m.config.AnnotationsPath))
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render("bboxview"), "  ", helperStyle.Render(files))
}

func (m *model) pagePaneView() string {
	body := strings.Join([]string{m.pageView.View(), m.navBarView()}, "\n")
	return pageBoxStyle.Width(m.layout.pageWidth - 2).Render(body)
}

// navBarView shows Previous, the page position and Next. A control that
// cannot move is drawn dimmed.
func (m *model) navBarView() string {
	if m.stage == stagePageEntry {
		return m.pageInput.View()
	}
	prev := navDisabledStyle.Render(navPrevious)
	if m.pager.CanPrevious() {
		prev = navEnabledStyle.Render(navPrevious)
	}
	next := navDisabledStyle.Render(navNext)
	if m.pager.CanNext() {
		next = navEnabledStyle.Render(navNext)
	}
	total := "?"
	if n := m.pager.TotalPages(); n > 0 {
		total = fmt.Sprint(n)
	}
	position := fmt.Sprintf("Page %d of %s", m.pager.Page(), total)
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, "  ", pagePositionStyle.Render(position), "  ", next)
}

func (m *model) tablePaneView() string {
	width := m.layout.tableWidth
	if m.parseErr != nil {
		msg := wordwrap.String("Could not read the annotations.\n\n"+markup.Printable(m.parseErr.Error()), width)
		return lipgloss.NewStyle().Width(width).Render(errorStyle.Render(msg))
	}
	parts := []string{m.table.View()}
	switch {
	case m.loading():
		parts = append(parts, helperStyle.Render("Parsing annotations…"))
	case len(m.rows) == 0:
		parts = append(parts, helperStyle.Render(fmt.Sprintf("No annotations on page %d.", m.pager.Page())))
	default:
		parts = append(parts, m.detailView(width))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(parts, "\n"))
}

// detailView shows the full sentence under the cursor with its inline
// formatting.
func (m *model) detailView(width int) string {
	rec, ok := m.cursorRecord()
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, span := range markup.Spans(rec.Sentence) {
		b.WriteString(spanStyle(span).Render(span.Text))
	}
	label := fmt.Sprintf("%s · seq %d", markup.Printable(string(rec.ID)), rec.SeqNo)
	if kind := markup.Printable(rec.Type); kind != "" {
		label += " · " + kind
	}
	lines := strings.Split(wordwrap.String(b.String(), width), "\n")
	if len(lines) > detailLines-1 {
		lines = lines[:detailLines-1]
		lines[len(lines)-1] = truncate.StringWithTail(lines[len(lines)-1], uint(width-1), "") + "…"
	}
	return detailLabelStyle.Render(label) + "\n" + strings.Join(lines, "\n")
}

func spanStyle(span markup.Span) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(span.Bold).Italic(span.Italic).Underline(span.Underline)
	if span.Mark {
		style = style.Background(markColor).Foreground(lipgloss.Color("#0f0f0f"))
	}
	return style
}

func (m *model) statusView() string {
	stats := []string{}
	if m.spinning() {
		stats = append(stats, m.spinner.View())
	}
	if m.infoMessage != "" {
		stats = append(stats, m.infoMessage)
	}
	if rec, ok := m.selection.Selected(); ok {
		stats = append(stats, fmt.Sprintf("Selected %s (page %d)", markup.Printable(string(rec.ID)), rec.Page))
	}
	stats = append(stats, m.tracker.badges()...)
	stats = append(stats, "? help")
	lines := []string{statusBarStyle.Render(strings.Join(stats, "  •  "))}
	if m.errorMessage != "" {
		lines = append(lines, errorStyle.Render(wordwrap.String(markup.Printable(m.errorMessage), m.layout.windowWidth)))
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"←/h", "Previous page"},
		{"→/l", "Next page"},
		{"p", "Go to page"},
		{"↑/↓", "Move row"},
		{"Enter", "Select row"},
		{"PgUp/PgDn", "Scroll page"},
		{"y", "Copy sentence"},
		{"r", "Reload files"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Keys")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

var (
	highlightColor = colorful.Color{R: 1, G: 0.84, B: 0}
	markColor      = lipgloss.Color("#ffd166")

	tableHeaderColor = lipgloss.Color("81")

	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	detailLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("147"))
	pagePositionStyle  = lipgloss.NewStyle().Bold(true)
	navEnabledStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8ecae6"))
	navDisabledStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
	pageBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	cursorRowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
)
