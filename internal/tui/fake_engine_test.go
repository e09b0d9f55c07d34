package tui

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/csheth/bboxview/internal/annotations"
	"github.com/csheth/bboxview/internal/document"
	"github.com/csheth/bboxview/internal/geometry"
)

var (
	letter = geometry.Size{Width: 612, Height: 792}
	white  = colorful.Color{R: 1, G: 1, B: 1}
)

type fakeEngine struct {
	mu       sync.Mutex
	total    int
	native   geometry.Size
	loadErr  error
	failPage int
	loads    int
	renders  int
}

func (f *fakeEngine) Load(ctx context.Context, path string) (document.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return document.Info{}, &document.LoadError{Path: path, Err: f.loadErr}
	}
	return document.Info{Path: path, TotalPages: f.total}, nil
}

func (f *fakeEngine) RenderPage(ctx context.Context, page, widthPx int) (*document.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	if page == f.failPage {
		return nil, &document.RenderError{Page: page, Err: errors.New("broken xref")}
	}
	return fakePage(page, widthPx, f.native), nil
}

func (f *fakeEngine) Close() error { return nil }

func fakePage(page, widthPx int, native geometry.Size) *document.Page {
	rows := int(math.Ceil(float64(widthPx) * native.Height / native.Width / 2))
	return &document.Page{Number: page, Native: native, Grid: document.NewGrid(widthPx, rows, white)}
}

type fakeClipboard struct {
	writes []string
	err    error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.writes = append(c.writes, text)
	return c.err
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	clip := &fakeClipboard{}
	teaModel, ok := New(Config{
		DocumentPath:    "paper.pdf",
		AnnotationsPath: "paper.jsonl",
		Engine:          &fakeEngine{total: 3, native: letter},
		Clipboard:       clip.WriteAll,
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	return teaModel
}

// loadSession feeds a successful session result for the current generation.
func loadSession(t *testing.T, m *model, total int, records ...annotations.Record) {
	t.Helper()
	m.Update(sessionResultMsg{
		generation: m.pager.Generation(),
		info:       document.Info{Path: "paper.pdf", TotalPages: total},
		parsed:     annotations.Result{Records: records, Lines: len(records)},
	})
	if m.stage != stageDisplay {
		t.Fatalf("stage after load = %v, want display", m.stage)
	}
}

// renderCurrent completes a render of the current page.
func renderCurrent(t *testing.T, m *model) {
	t.Helper()
	req := m.pager.BeginRender()
	m.Update(pageRenderedMsg{req: req, page: fakePage(req.Page, req.WidthPx, letter)})
	if m.rendered == nil || m.rendered.Number != req.Page {
		t.Fatalf("render of page %d was not applied", req.Page)
	}
}

func rec(id string, page, seq int, boxes ...geometry.Box) annotations.Record {
	return annotations.Record{
		ID:           annotations.ID(id),
		Page:         page,
		SeqNo:        seq,
		Sentence:     "Sentence <b>" + id + "</b>",
		DetectedType: "claim",
		Location:     boxes,
	}
}
