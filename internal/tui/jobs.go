package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind string

type jobStatus string

const (
	jobKindSession jobKind = "session"
	jobKindRender  jobKind = "render"
	jobKindCopy    jobKind = "copy"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
	jobStatusCancelled jobStatus = "cancelled"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs jobs off the event loop. Starting a session or render job
// cancels the previous job of the same kind; its result is stale anyway.
type jobBus struct {
	counter int64

	mu      sync.Mutex
	cancels map[jobKind]context.CancelFunc
}

func newJobBus() *jobBus {
	return &jobBus{cancels: map[jobKind]context.CancelFunc{}}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func supersedes(kind jobKind) bool {
	return kind == jobKindSession || kind == jobKindRender
}

func (b *jobBus) context(kind jobKind) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if !supersedes(kind) {
		return ctx, cancel
	}
	b.mu.Lock()
	if previous, ok := b.cancels[kind]; ok {
		previous()
	}
	b.cancels[kind] = cancel
	b.mu.Unlock()
	return ctx, cancel
}

// Stop cancels every job still running.
func (b *jobBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, cancel := range b.cancels {
		cancel()
		delete(b.cancels, kind)
	}
}

// Start returns a command that emits a start signal, runs runner and then
// emits the result envelope.
func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	ctx, cancel := b.context(kind)

	signal := func() tea.Msg {
		return jobSignalMsg{Snapshot: jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}}
	}
	run := func() tea.Msg {
		defer cancel()
		payload, err := runner(ctx)
		done := jobSnapshot{ID: id, Kind: kind, Status: jobStatusSucceeded, StartedAt: started, CompletedAt: time.Now()}
		done.Duration = done.CompletedAt.Sub(started)
		if err != nil {
			done.Status = jobStatusFailed
			done.Err = err.Error()
			if errors.Is(err, context.Canceled) {
				done.Status = jobStatusCancelled
			}
		}
		log.Printf("[jobs] %s %s in %s", id, done.Status, done.Duration.Round(time.Millisecond))
		if err != nil && done.Status == jobStatusFailed {
			log.Printf("[jobs] %s: %v", id, err)
		}
		return jobResultEnvelope{Snapshot: done, Payload: payload}
	}
	return tea.Sequence(signal, run)
}

// jobTracker keeps the running jobs for the status bar.
type jobTracker struct {
	running map[string]jobSnapshot
	last    map[jobKind]jobSnapshot
}

func newJobTracker() jobTracker {
	return jobTracker{running: map[string]jobSnapshot{}, last: map[jobKind]jobSnapshot{}}
}

func (t *jobTracker) observe(s jobSnapshot) {
	if s.Status == jobStatusRunning {
		t.running[s.ID] = s
		return
	}
	delete(t.running, s.ID)
	t.last[s.Kind] = s
}

func (t *jobTracker) busy(kind jobKind) bool {
	for _, s := range t.running {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func (t *jobTracker) badges() []string {
	counts := map[jobKind]int{}
	for _, s := range t.running {
		counts[s.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	badges := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		n := counts[jobKind(kind)]
		if n > 1 {
			badges = append(badges, fmt.Sprintf("%s ×%d", kind, n))
			continue
		}
		badges = append(badges, kind+"…")
	}
	return badges
}
