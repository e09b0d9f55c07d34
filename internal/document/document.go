package document

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/csheth/bboxview/internal/geometry"
)

// Engine names accepted by Config.
const (
	EngineRaster = "raster"
	EngineText   = "text"
)

const (
	defaultMaxDPI      = 300
	defaultHTTPTimeout = 90 * time.Second
)

var (
	// ErrDocumentLoad classifies failures to open a document.
	ErrDocumentLoad = errors.New("document load failed")
	// ErrPageRender classifies failures to render a single page.
	ErrPageRender = errors.New("page render failed")
	// ErrNotLoaded is returned when rendering before a successful Load.
	ErrNotLoaded = errors.New("no document loaded")

	errNoPages   = errors.New("document has no pages")
	errEmptyPage = errors.New("page has no usable size")
)

// LoadError reports a document that could not be opened.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is classifies every LoadError as ErrDocumentLoad.
func (e *LoadError) Is(target error) bool { return target == ErrDocumentLoad }

// RenderError reports a page that failed to render. Other pages are not
// affected.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is classifies every RenderError as ErrPageRender.
func (e *RenderError) Is(target error) bool { return target == ErrPageRender }

// Info describes a loaded document.
type Info struct {
	Path       string
	TotalPages int
}

// Page is one rendered page.
type Page struct {
	Number int
	Native geometry.Size
	Grid   *Grid
}

// Engine is the rendering collaborator. Implementations must tolerate
// RenderPage calls from a goroutine other than the one that called Load.
type Engine interface {
	Load(ctx context.Context, path string) (Info, error)
	RenderPage(ctx context.Context, page, widthPx int) (*Page, error)
	Close() error
}

// Config is the process-wide rendering configuration. It is built once at
// startup and injected into NewEngine.
type Config struct {
	Engine      string
	MaxDPI      float64
	CacheDir    string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineRaster
	}
	if c.MaxDPI <= 0 {
		c.MaxDPI = defaultMaxDPI
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	return c
}

// NewEngine builds the engine named by cfg.
func NewEngine(cfg Config) (Engine, error) {
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case EngineRaster:
		return newRasterEngine(cfg), nil
	case EngineText:
		return newTextEngine(cfg), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// gridRows converts a rendered pixel height into half-block rows.
func gridRows(widthPx int, native geometry.Size) int {
	if widthPx <= 0 || !native.Known() {
		return 0
	}
	heightPx := float64(widthPx) * native.Height / native.Width
	rows := int(math.Ceil(heightPx / 2))
	if rows < 1 {
		rows = 1
	}
	return rows
}

func checkPage(page, total int) error {
	if page < 1 || page > total {
		return fmt.Errorf("page %d out of range 1-%d", page, total)
	}
	return nil
}

func recoverRender(page int, err *error) {
	if r := recover(); r != nil {
		*err = &RenderError{Page: page, Err: errorFromPanic(r)}
	}
}

func errorFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("decoder panic: %w", err)
	}
	return fmt.Errorf("decoder panic: %v", r)
}
