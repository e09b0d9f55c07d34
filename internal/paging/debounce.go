package paging

import "time"

// DefaultDebounce is the navigation coalescing window.
const DefaultDebounce = 300 * time.Millisecond

// Ticket is one pending navigation. The caller schedules it after Window
// and hands it back to Settle.
type Ticket struct {
	Seq    uint64
	Page   int
	Window time.Duration
}

// Debouncer coalesces rapid navigation so only the last request within the
// window triggers a render. Scheduling is left to the caller, which keeps
// the policy testable without timers.
type Debouncer struct {
	Window time.Duration

	seq     uint64
	settled bool
}

// NewDebouncer returns a debouncer with the given window; negative windows
// are treated as zero.
func NewDebouncer(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{Window: window, settled: true}
}

// Request supersedes every earlier ticket.
func (d *Debouncer) Request(page int) Ticket {
	d.seq++
	d.settled = false
	return Ticket{Seq: d.seq, Page: page, Window: d.Window}
}

// Settle returns the page of t when t is the latest request and has not
// settled yet.
func (d *Debouncer) Settle(t Ticket) (int, bool) {
	if t.Seq != d.seq || d.settled {
		return 0, false
	}
	d.settled = true
	return t.Page, true
}

// Pending reports whether a request is waiting to settle.
func (d *Debouncer) Pending() bool {
	return !d.settled
}

// Cancel drops any pending request.
func (d *Debouncer) Cancel() {
	d.seq++
	d.settled = true
}
