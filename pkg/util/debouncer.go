// Package util holds small concurrency helpers.
package util

import (
	"sync"
	"time"
)

// Debouncer fires once a quiet period has passed since the last Trigger.
// Unlike a bare timer it starts disarmed, so nothing fires until the first
// Trigger.
//
//	d := NewDebouncer(600 * time.Millisecond)
//	defer d.Stop()
//
//	for {
//	    select {
//	    case chunk := <-audio:
//	        buffer(chunk)
//	        d.Trigger()
//	    case <-d.C():
//	        flushBuffer()
//	    }
//	}
type Debouncer struct {
	quiet   time.Duration
	timer   *time.Timer
	mu      sync.Mutex
	armed   bool
	stopped bool
}

// NewDebouncer creates a disarmed debouncer.
func NewDebouncer(quiet time.Duration) *Debouncer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &Debouncer{quiet: quiet, timer: t}
}

// Trigger (re)arms the debouncer to fire after the quiet period. It is a no-op
// once stopped.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.drain()
	d.timer.Reset(d.quiet)
	d.armed = true
}

// Cancel disarms a pending fire without stopping the debouncer.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.drain()
	d.armed = false
}

// Armed reports whether a fire is pending. It turns false again only through
// Cancel, Stop or Fired.
func (d *Debouncer) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Fired must be called after receiving from C.
func (d *Debouncer) Fired() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
}

// C returns the channel that receives when the quiet period elapses.
func (d *Debouncer) C() <-chan time.Time {
	return d.timer.C
}

// Stop disarms the debouncer for good. It is safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.stopped {
		d.drain()
		d.stopped = true
		d.armed = false
	}
}

func (d *Debouncer) drain() {
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
}
