package storefront

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d. time.AfterFunc satisfies it through StdAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// StdAfterFunc schedules f with the runtime timer.
func StdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last of a burst of triggers, once the burst has been
// quiet for the configured delay.
//
// A trigger that fires after being superseded is dropped even when its timer
// could not be stopped in time.
type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu      sync.Mutex
	timer   Timer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a Debouncer. A nil after uses StdAfterFunc.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = StdAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Trigger cancels any scheduled call and schedules fn to run after the delay.
// Triggers after Stop are ignored.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.after(d.delay, func() {
		d.mu.Lock()
		current := !d.stopped && seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the scheduled call, if any. The Debouncer stays usable.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Stop drops the scheduled call and ignores every later Trigger.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
