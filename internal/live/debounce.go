// Package live implements the debounced live-prediction pipeline: typing
// bursts are coalesced, requests race freely, and only the freshest
// request's outcome is ever published.
package live

import (
	"sync"
	"time"
)

// Debouncer delays a callback until input has been quiet for the
// configured interval. Schedule within the interval replaces the pending
// fire, so the callback runs at most once per quiet period and receives
// the last text supplied. Pure timing control: no retries, no errors.
type Debouncer struct {
	interval time.Duration
	fn       func(string)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer wraps fn with a quiet period of interval. The callback
// must not call back into the Debouncer.
func NewDebouncer(interval time.Duration, fn func(string)) *Debouncer {
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	return &Debouncer{interval: interval, fn: fn}
}

// Schedule records text and (re)starts the quiet-period timer.
func (d *Debouncer) Schedule(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		// The generation check runs under the same lock Cancel takes, so
		// nothing fires once Cancel has returned; Timer.Stop alone does
		// not give that guarantee for an already-started AfterFunc.
		d.mu.Lock()
		defer d.mu.Unlock()
		if gen != d.gen {
			return
		}
		d.timer = nil
		d.fn(text)
	})
}

// Cancel drops any pending fire. Safe to call when idle, any number of
// times.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
