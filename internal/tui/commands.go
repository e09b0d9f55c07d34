package tui

import (
	"context"
	"errors"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/csheth/bboxview/internal/annotations"
	"github.com/csheth/bboxview/internal/document"
	"github.com/csheth/bboxview/internal/paging"
)

const (
	sessionTimeout = 2 * time.Minute
	renderTimeout  = 30 * time.Second
)

// sessionJob opens the document and parses the annotations side by side.
// Each half reports its own outcome.
func sessionJob(generation uint64, cfg Config) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, sessionTimeout)
		defer cancel()

		msg := sessionResultMsg{generation: generation}
		var g errgroup.Group
		g.Go(func() error {
			if cfg.Engine == nil {
				msg.docErr = &document.LoadError{Path: cfg.DocumentPath, Err: document.ErrNotLoaded}
				return msg.docErr
			}
			local, err := document.Resolve(ctx, cfg.Document, cfg.DocumentPath)
			if err != nil {
				msg.docErr = err
				return err
			}
			msg.info, msg.docErr = cfg.Engine.Load(ctx, local)
			return msg.docErr
		})
		g.Go(func() error {
			msg.parsed, msg.parseErr = annotations.ParseFile(cfg.AnnotationsPath)
			return msg.parseErr
		})
		if err := g.Wait(); err != nil {
			log.Printf("[session] generation %d: %v", generation, errors.Join(msg.docErr, msg.parseErr))
		}
		return msg, errors.Join(msg.docErr, msg.parseErr)
	}
}

func renderJob(engine document.Engine, req paging.RenderRequest) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, renderTimeout)
		defer cancel()
		page, err := engine.RenderPage(ctx, req.Page, req.WidthPx)
		if err != nil {
			log.Printf("[render] page %d at %dpx: %v", req.Page, req.WidthPx, err)
		}
		return pageRenderedMsg{req: req, page: page, err: err}, err
	}
}

func copyJob(write func(string) error, id annotations.ID, text string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := write(text)
		return copyResultMsg{id: id, err: err}, err
	}
}

// settleCmd fires the ticket once its debounce window has passed.
func settleCmd(ticket paging.Ticket) tea.Cmd {
	if ticket.Window <= 0 {
		return func() tea.Msg { return settleMsg{ticket: ticket} }
	}
	return tea.Tick(ticket.Window, func(time.Time) tea.Msg {
		return settleMsg{ticket: ticket}
	})
}
