package tui

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/bboxview/internal/annotations"
	"github.com/csheth/bboxview/internal/document"
	"github.com/csheth/bboxview/internal/markup"
	"github.com/csheth/bboxview/internal/paging"
	"github.com/csheth/bboxview/internal/selection"
)

// Config wires runtime options into the TUI program.
type Config struct {
	DocumentPath    string
	AnnotationsPath string

	// Engine renders the document. Document is the configuration it was
	// built from and is reused to resolve remote documents.
	Engine   document.Engine
	Document document.Config

	// Debounce is the navigation coalescing window. Zero renders on every
	// page change.
	Debounce     time.Duration
	ScrollMargin float64

	// Clipboard receives copied sentences; nil uses the system clipboard.
	Clipboard func(string) error
}

type model struct {
	config Config
	stage  stage
	// resume is the stage page entry returns to.
	resume stage

	layout    pageLayout
	pager     *paging.Controller
	debouncer *paging.Debouncer
	selection *selection.Synchronizer

	records  annotations.Set
	rows     []annotations.Record
	parsed   annotations.Result
	parseErr error
	info     document.Info
	rendered *document.Page

	table     table.Model
	pageView  viewport.Model
	pageInput textinput.Model
	spinner   spinner.Model

	jobs    *jobBus
	tracker jobTracker

	infoMessage  string
	errorMessage string
	helpVisible  bool
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Clipboard == nil {
		config.Clipboard = clipboard.WriteAll
	}

	pageInput := textinput.New()
	pageInput.Placeholder = "page number"
	pageInput.CharLimit = 6
	pageInput.Width = 12
	pageInput.Prompt = "Go to page: "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(40, 20)
	vp.MouseWheelEnabled = true

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(tableHeaderColor)
	styles.Selected = cursorRowStyle
	tbl := table.New(table.WithFocused(true), table.WithStyles(styles))

	pager := paging.NewController(pagePadding)
	m := &model{
		config:    config,
		stage:     stageLoading,
		layout:    newPageLayout(),
		pager:     pager,
		debouncer: paging.NewDebouncer(config.Debounce),
		selection: selection.New(pager, config.ScrollMargin),
		records:   annotations.NewSet(nil),
		table:     tbl,
		pageView:  vp,
		pageInput: pageInput,
		spinner:   spin,
		jobs:      newJobBus(),
		tracker:   newJobTracker(),
	}
	m.applyLayout()
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.startSession(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.spinning() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case jobSignalMsg:
		m.tracker.observe(msg.Snapshot)
		return m, nil
	case jobResultEnvelope:
		m.tracker.observe(msg.Snapshot)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case sessionResultMsg:
		return m, m.applySession(msg)
	case pageRenderedMsg:
		m.applyRender(msg)
		return m, nil
	case settleMsg:
		return m, m.settle(msg.ticket)
	case copyResultMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("clipboard: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Copied sentence of %s.", markup.Printable(string(msg.id)))
		return m, nil
	case tea.WindowSizeMsg:
		return m, m.resize(msg.Width, msg.Height)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.pageView, cmd = m.pageView.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) spinning() bool {
	return m.loading() || m.tracker.busy(jobKindRender)
}

func (m *model) loading() bool {
	return m.stage == stageLoading || (m.stage == stagePageEntry && m.resume == stageLoading)
}

// startSession discards everything tied to the previous session and loads
// both files again under a new generation.
func (m *model) startSession() tea.Cmd {
	generation := m.pager.Reset()
	m.debouncer.Cancel()
	m.selection.Clear()
	m.records = annotations.NewSet(nil)
	m.parsed = annotations.Result{}
	m.parseErr = nil
	m.info = document.Info{}
	m.rendered = nil
	m.stage = stageLoading
	m.resume = stageLoading
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Loading %s and %s…", filepath.Base(m.config.DocumentPath), filepath.Base(m.config.AnnotationsPath))
	m.pager.Measure(paneMetrics{m})
	m.refreshTable(true)
	m.refreshPage()
	log.Printf("[session] generation %d: %s + %s", generation, m.config.DocumentPath, m.config.AnnotationsPath)
	return m.jobs.Start(jobKindSession, sessionJob(generation, m.config))
}

func (m *model) applySession(msg sessionResultMsg) tea.Cmd {
	if msg.generation != m.pager.Generation() {
		log.Printf("[session] dropping stale result for generation %d", msg.generation)
		return nil
	}
	if m.stage == stageLoading {
		m.stage = stageDisplay
	}
	if m.resume == stageLoading {
		m.resume = stageDisplay
	}

	var problems []string
	if msg.parseErr != nil {
		m.parseErr = msg.parseErr
		problems = append(problems, fmt.Sprintf("annotations: %v", msg.parseErr))
	} else {
		m.parsed = msg.parsed
		m.records = annotations.NewSet(msg.parsed.Records)
		m.pager.SetFallbackPages(m.records.MaxPage())
		for _, failure := range msg.parsed.Failures {
			log.Printf("[annotations] skipped %v", failure)
		}
		for _, warning := range msg.parsed.Warnings {
			log.Printf("[annotations] %s", warning)
		}
	}

	if msg.docErr != nil {
		m.pager.OnDocumentFailed(msg.generation, msg.docErr)
		problems = append(problems, msg.docErr.Error())
	} else {
		m.info = msg.info
		m.pager.OnDocumentLoaded(msg.generation, msg.info.TotalPages)
	}

	m.errorMessage = strings.Join(problems, "; ")
	m.infoMessage = m.sessionSummary()
	m.refreshTable(true)
	m.refreshPage()
	return m.requestRender()
}

func (m *model) sessionSummary() string {
	parts := []string{}
	if m.info.TotalPages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", m.info.TotalPages))
	}
	if m.parseErr == nil {
		parts = append(parts, m.parsed.Summary())
	}
	return strings.Join(parts, ", ")
}

// requestRender asks the engine for the current page at the current width.
func (m *model) requestRender() tea.Cmd {
	if m.config.Engine == nil || m.pager.TotalPages() == 0 {
		return nil
	}
	m.pager.Measure(paneMetrics{m})
	req := m.pager.BeginRender()
	if req.WidthPx == 0 {
		return nil
	}
	return tea.Batch(m.jobs.Start(jobKindRender, renderJob(m.config.Engine, req)), m.spinner.Tick)
}

func (m *model) applyRender(msg pageRenderedMsg) {
	if msg.err != nil {
		if m.pager.OnPageFailed(msg.req, msg.err) {
			m.rendered = nil
			m.refreshPage()
		}
		return
	}
	if msg.page == nil || !m.pager.OnPageRendered(msg.req, msg.page.Native) {
		return
	}
	m.rendered = msg.page
	m.refreshPage()
	m.selection.ApplyScroll(m.pager, paneMetrics{m})
}

// pageChanged refreshes everything derived from the current page and
// schedules a debounced render.
func (m *model) pageChanged() tea.Cmd {
	m.rendered = nil
	m.pageView.GotoTop()
	m.refreshTable(true)
	m.refreshPage()
	return settleCmd(m.debouncer.Request(m.pager.Page()))
}

func (m *model) settle(ticket paging.Ticket) tea.Cmd {
	page, ok := m.debouncer.Settle(ticket)
	if !ok || page != m.pager.Page() {
		return nil
	}
	return m.requestRender()
}

func (m *model) resize(width, height int) tea.Cmd {
	m.layout.Update(width, height)
	previous := m.pager.WidthPx()
	m.applyLayout()
	m.refreshTable(false)
	if m.pager.WidthPx() == previous {
		m.refreshPage()
		return nil
	}
	m.rendered = nil
	m.refreshPage()
	return settleCmd(m.debouncer.Request(m.pager.Page()))
}

func (m *model) applyLayout() {
	m.pageView.Width = m.layout.viewportWidth
	m.pageView.Height = m.layout.viewportHeight
	m.table.SetColumns(m.layout.columns())
	m.table.SetWidth(m.layout.tableWidth)
	m.table.SetHeight(m.layout.tableHeight)
	m.pager.Measure(paneMetrics{m})
}

// selectRecord makes rec the selection and brings its page into view.
func (m *model) selectRecord(rec annotations.Record) tea.Cmd {
	changed := m.selection.Select(rec)
	log.Printf("[session] selected %s on page %d", rec.ID, rec.Page)
	if changed {
		return m.pageChanged()
	}
	m.refreshTable(false)
	m.refreshPage()
	m.selection.ApplyScroll(m.pager, paneMetrics{m})
	return nil
}

func (m *model) refreshTable(resetCursor bool) {
	m.rows = m.records.OnPage(m.pager.Page())
	rows := make([]table.Row, 0, len(m.rows))
	for _, rec := range m.rows {
		rows = append(rows, m.tableRow(rec))
	}
	cursor := m.table.Cursor()
	if resetCursor {
		cursor = 0
		for idx, rec := range m.rows {
			if m.selection.IsSelected(rec.ID) {
				cursor = idx
				break
			}
		}
	}
	m.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
}

func (m *model) tableRow(rec annotations.Record) table.Row {
	marker := ""
	if m.selection.IsSelected(rec.ID) {
		marker = markerSelected
	}
	detected := markup.Printable(rec.DetectedType)
	if detected == "" {
		detected = noDetectedType
	}
	return table.Row{
		marker,
		strconv.Itoa(rec.Page),
		strconv.Itoa(rec.SeqNo),
		markup.Plain(rec.Sentence),
		detected,
	}
}

func (m *model) cursorRecord() (annotations.Record, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return annotations.Record{}, false
	}
	return m.rows[idx], true
}

func (m *model) refreshPage() {
	page := m.pager.Page()
	wrap := m.pageView.Width
	var content string
	switch {
	case m.pager.DocumentError() != nil:
		content = errorStyle.Width(wrap).Render("Could not load the document.\n\n"+markup.Printable(m.pager.DocumentError().Error()))
	case m.loading():
		content = helperStyle.Render("Loading document…")
	case m.pager.PageError(page) != nil:
		content = errorStyle.Width(wrap).Render(fmt.Sprintf("Page %d failed to render.\n\n%s", page, markup.Printable(m.pager.PageError(page).Error())))
	case m.rendered == nil || m.rendered.Number != page:
		content = helperStyle.Render(fmt.Sprintf("Rendering page %d…", page))
	default:
		grid := m.rendered.Grid
		if rect, ok := m.selection.Highlight(m.pager); ok && grid != nil {
			grid = grid.Clone()
			grid.Tint(rect.Cells(1, pixelsPerRow), highlightColor, highlightStrength)
		}
		content = renderGrid(grid)
	}
	m.pageView.SetContent(content)
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.stage == stagePageEntry {
		return m.handlePageEntryKey(key)
	}
	switch key.String() {
	case "ctrl+c", "q":
		m.jobs.Stop()
		return m, tea.Quit
	case "?":
		m.helpVisible = !m.helpVisible
	case "esc":
		m.helpVisible = false
	case "left", "h":
		if m.pager.Previous() {
			return m, m.pageChanged()
		}
	case "right", "l":
		if m.pager.Next() {
			return m, m.pageChanged()
		}
	case "p":
		m.startPageEntry()
		return m, textinput.Blink
	case "up", "k":
		m.table.MoveUp(1)
	case "down", "j":
		m.table.MoveDown(1)
	case "enter":
		if rec, ok := m.cursorRecord(); ok {
			return m, m.selectRecord(rec)
		}
	case "pgup":
		m.pageView.HalfViewUp()
	case "pgdown", " ":
		m.pageView.HalfViewDown()
	case "home", "g":
		m.pageView.GotoTop()
	case "end", "G":
		m.pageView.GotoBottom()
	case "y":
		return m, m.copySelection()
	case "r":
		return m, tea.Batch(m.startSession(), m.spinner.Tick)
	}
	return m, nil
}

func (m *model) startPageEntry() {
	m.resume = m.stage
	m.stage = stagePageEntry
	m.pageInput.SetValue("")
	m.pageInput.Focus()
}

func (m *model) endPageEntry() {
	m.pageInput.Blur()
	m.pageInput.SetValue("")
	m.stage = m.resume
}

// handlePageEntryKey reads a page number. Input that is not a page of the
// document is dropped without a message.
func (m *model) handlePageEntryKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		m.jobs.Stop()
		return m, tea.Quit
	case tea.KeyEsc:
		m.endPageEntry()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.pageInput.Value())
		m.endPageEntry()
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return m, nil
		}
		if bound := m.pager.Bound(); bound > 0 && n > bound {
			return m, nil
		}
		if m.pager.GoToPage(n) {
			return m, m.pageChanged()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pageInput, cmd = m.pageInput.Update(key)
	return m, cmd
}

func (m *model) copySelection() tea.Cmd {
	rec, ok := m.selection.Selected()
	if !ok {
		rec, ok = m.cursorRecord()
	}
	if !ok {
		m.infoMessage = "Nothing to copy on this page."
		return nil
	}
	return m.jobs.Start(jobKindCopy, copyJob(m.config.Clipboard, rec.ID, markup.Plain(rec.Sentence)))
}
