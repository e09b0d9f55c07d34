package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/bboxview/internal/document"
	"github.com/csheth/bboxview/internal/paging"
	"github.com/csheth/bboxview/internal/selection"
	"github.com/csheth/bboxview/internal/tui"
)

var cli struct {
	Engine       string        `enum:"raster,text" default:"raster" help:"Rendering engine: raster (MuPDF) or text (pure Go glyph layout)."`
	MaxDPI       float64       `name:"max-dpi" default:"300" help:"Raster DPI ceiling."`
	Debounce     time.Duration `default:"300ms" help:"Navigation debounce window."`
	ScrollMargin float64       `default:"6" help:"Auto-scroll margin above the highlight, in pixels."`
	LogFile      string        `type:"path" help:"Write logs to this file."`
	NoAltScreen  bool          `help:"Disable the alternate screen buffer."`
	CacheDir     string        `type:"path" help:"Cache directory for remote documents (default $BBOXVIEW_CACHE_DIR or the user cache dir)."`

	Document    string `arg:"" name:"document" help:"PDF path or http(s) URL."`
	Annotations string `arg:"" name:"annotations" type:"path" help:"Line-delimited JSON annotations."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("bboxview"),
		kong.Description("View a PDF next to its line-delimited JSON annotations."),
		kong.UsageOnError(),
	)
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bboxview:", err)
		os.Exit(1)
	}
}

// run owns every resource of the process so deferred cleanup happens before
// main exits.
func run() error {
	if cli.LogFile != "" {
		f, err := tea.LogToFile(cli.LogFile, "bboxview")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	docConfig := document.Config{
		Engine:   cli.Engine,
		MaxDPI:   cli.MaxDPI,
		CacheDir: cli.CacheDir,
	}
	engine, err := document.NewEngine(docConfig)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	debounce := cli.Debounce
	if debounce < 0 {
		debounce = paging.DefaultDebounce
	}
	margin := cli.ScrollMargin
	if margin < 0 {
		margin = selection.DefaultScrollMargin
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !cli.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			DocumentPath:    cli.Document,
			AnnotationsPath: cli.Annotations,
			Engine:          engine,
			Document:        docConfig,
			Debounce:        debounce,
			ScrollMargin:    margin,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program: %w", err)
	}
	return nil
}
