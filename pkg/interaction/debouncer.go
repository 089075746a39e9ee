package interaction

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiet period after the last resize before
// the graph is rebuilt.
const DefaultDebounceWindow = 100 * time.Millisecond

// Debouncer runs only the last of a burst of calls, once the burst has been
// quiet for the window. It holds a single timer that every call cancels and
// re-arms.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	fn    func()
}

// NewDebouncer creates a debouncer. A non-positive window uses
// DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration { return d.window }

// Trigger schedules fn, replacing any call still waiting. It reports
// whether a waiting call was dropped.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	dropped := d.cancelLocked()
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	return dropped
}

// Stop drops the waiting call, if any, and reports whether there was one.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Flush runs the waiting call now instead of at the end of the window.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.fn
	d.cancelLocked()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pending reports whether a call is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *Debouncer) cancelLocked() bool {
	pending := d.fn != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// A timer that already fired but has not taken the lock yet sees a
	// newer generation and does nothing.
	d.gen++
	d.fn = nil
	return pending
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
