package batch

import (
	"sync"
	"sync/atomic"
	"time"
)

// ProgressUpdate is a snapshot passed to progress callbacks.
type ProgressUpdate struct {
	Processed int
	Total     int
	Elapsed   time.Duration
	ETA       time.Duration
}

// ProgressCallback receives throttled progress notifications.
type ProgressCallback func(ProgressUpdate)

// ProgressTracker tracks batch progress and supports cooperative
// cancellation. Cancellation is a flag checked between batches; in-flight
// work is never forcibly stopped. A nil tracker is safe and does nothing.
type ProgressTracker struct {
	total       int
	start       time.Time
	minInterval time.Duration
	callback    ProgressCallback

	processed atomic.Int64
	cancelled atomic.Bool

	mu         sync.Mutex
	lastNotify time.Time
}

// NewProgressTracker creates a tracker for total items. callback may be
// nil; minInterval gates how often it fires.
func NewProgressTracker(total int, callback ProgressCallback, minInterval time.Duration) *ProgressTracker {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	now := time.Now()
	return &ProgressTracker{
		total:       total,
		start:       now,
		minInterval: minInterval,
		callback:    callback,
		lastNotify:  now,
	}
}

// Increment records one processed item and fires the callback if the
// minimum interval has passed since the last notification.
func (p *ProgressTracker) Increment() {
	if p == nil {
		return
	}
	processed := int(p.processed.Add(1))

	if p.callback == nil {
		return
	}

	p.mu.Lock()
	now := time.Now()
	final := processed >= p.total
	if !final && now.Sub(p.lastNotify) < p.minInterval {
		p.mu.Unlock()
		return
	}
	p.lastNotify = now
	p.mu.Unlock()

	p.callback(p.snapshot(processed))
}

// Cancel requests cooperative cancellation.
func (p *ProgressTracker) Cancel() {
	if p == nil {
		return
	}
	p.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (p *ProgressTracker) Cancelled() bool {
	return p != nil && p.cancelled.Load()
}

// Processed returns the number of items recorded so far.
func (p *ProgressTracker) Processed() int {
	if p == nil {
		return 0
	}
	return int(p.processed.Load())
}

// ETA estimates time remaining from the observed processing rate. Zero
// until at least one item has been processed.
func (p *ProgressTracker) ETA() time.Duration {
	if p == nil {
		return 0
	}
	return p.snapshot(int(p.processed.Load())).ETA
}

func (p *ProgressTracker) snapshot(processed int) ProgressUpdate {
	elapsed := time.Since(p.start)

	var eta time.Duration
	if processed > 0 && processed < p.total {
		rate := float64(processed) / elapsed.Seconds()
		if rate > 0 {
			eta = time.Duration(float64(p.total-processed) / rate * float64(time.Second))
		}
	}

	return ProgressUpdate{
		Processed: processed,
		Total:     p.total,
		Elapsed:   elapsed,
		ETA:       eta,
	}
}
