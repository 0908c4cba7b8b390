package search

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer runs the most recently triggered function once the quiet period
// has elapsed without another trigger.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any call that has not started yet.
// It is a no-op after Stop.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		fn()
	})
}

// Cancel drops a pending call without stopping the debouncer.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
}

// Stop cancels any pending call and waits for a running one to return.
// Callers must not hold locks that the triggered function acquires.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
	d.mu.Unlock()

	d.wg.Wait()
}

// Sequencer hands out monotonically increasing request tokens.
// Only the most recently issued token is current.
type Sequencer struct {
	n atomic.Uint64
}

// Next issues a new token, superseding all earlier ones.
func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// Invalidate supersedes every outstanding token without issuing one.
func (s *Sequencer) Invalidate() {
	s.n.Add(1)
}

// Current reports whether tok is still the latest token.
func (s *Sequencer) Current(tok uint64) bool {
	return s.n.Load() == tok
}
