package reconcile

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs the most recently triggered task once the trigger has been
// quiet for the configured delay. Each new trigger cancels the pending task
// and the context of a task already running.
type Debouncer struct {
	delay time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	pending  func(context.Context)
	gen      uint64
	inflight context.CancelFunc

	wg sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing anything scheduled or running.
func (d *Debouncer) Trigger(fn func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.pending = fn
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, context.Background()) })
}

// Flush runs the pending task now, on the calling goroutine, under ctx.
// Reports whether there was a task to run.
func (d *Debouncer) Flush(ctx context.Context) bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	gen := d.gen
	d.mu.Unlock()

	return d.fire(gen, ctx)
}

// Stop drops the pending task and cancels a running one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.pending = nil
}

// Pending reports whether a task is waiting for its delay to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Wait blocks until no task is running.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.inflight != nil {
		d.inflight()
		d.inflight = nil
	}
	d.gen++
}

// fire runs the pending task if gen is still current.
func (d *Debouncer) fire(gen uint64, parent context.Context) bool {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return false
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	ctx, cancel := context.WithCancel(parent)
	d.inflight = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	fn(ctx)

	d.mu.Lock()
	if d.gen == gen {
		d.inflight = nil
	}
	d.mu.Unlock()
	cancel()
	return true
}
