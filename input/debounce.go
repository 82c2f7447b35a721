package input

import (
	"sync"
	"time"
)

// DefaultSettle is the debounce window for modifier channels whose
// reported state oscillates within tens of milliseconds.
const DefaultSettle = 75 * time.Millisecond

// Debouncer filters a single channel's raw boolean-state stream. A
// transition is forwarded only after settle has elapsed with no
// contradicting transition; a contradiction discards the pending one.
// At most one transition is forwarded per physical transition.
//
// With pressOnly set, only presses are delayed: a release cancels any
// pending press and is forwarded immediately when a press went through.
// This variant implements the middle-click activation delay.
type Debouncer struct {
	settle    time.Duration
	pressOnly bool
	out       Handler

	mu      sync.Mutex
	current bool // last forwarded value; false initially (not pressed)
	gen     int
	timer   *time.Timer
}

func NewDebouncer(settle time.Duration, pressOnly bool, out Handler) *Debouncer {
	return &Debouncer{settle: settle, pressOnly: pressOnly, out: out}
}

// Offer consumes one raw transition. The forwarded transition keeps the
// original timestamp so downstream hold-duration math sees physical time,
// not settle latency.
func (d *Debouncer) Offer(t Transition) {
	d.mu.Lock()

	if d.pressOnly && !t.Pressed {
		d.cancelLocked()
		forward := d.current
		d.current = false
		d.mu.Unlock()
		if forward {
			d.out(t)
		}
		return
	}

	if t.Pressed == d.current {
		// Contradicts the pending transition (or repeats the stable
		// value): drop whatever was pending, forward nothing.
		d.cancelLocked()
		d.mu.Unlock()
		return
	}

	d.cancelLocked()
	d.gen++
	g := d.gen
	d.timer = time.AfterFunc(d.settle, func() {
		d.mu.Lock()
		if g != d.gen {
			// Cancelled while the timer was firing.
			d.mu.Unlock()
			return
		}
		d.current = t.Pressed
		d.timer = nil
		d.mu.Unlock()
		d.out(t)
	})
	d.mu.Unlock()
}

// Cancel discards any pending transition. A cancelled timer never fires.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
