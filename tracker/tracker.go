// Package tracker watches the live scroll offset of a surface and reports
// it at a bounded rate.
//
// Raw scroll events arrive on every pixel of motion; the tracker coalesces
// a burst into a single trailing callback after a quiet window, so the
// store is written once per gesture instead of once per frame. Reporting
// can be suspended while the coordinator performs its own corrective
// scrolling, and flushed on demand when a view is departed.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/scrollkeep/position"
	"github.com/hazyhaar/scrollkeep/surface"
)

// Options tunes the tracker.
type Options struct {
	// Window is the debounce window: the callback fires once no scroll
	// event has arrived for this long. Default: 150ms.
	Window time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Window <= 0 {
		o.Window = 150 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Tracker debounces a surface's scroll events into onChange callbacks.
// Callbacks run on the tracker's own goroutine, one at a time.
type Tracker struct {
	surf     surface.Surface
	onChange func(position.Offset)
	opts     Options

	// suspended counts active suspensions so overlapping restoration
	// sequences balance independently.
	suspended atomic.Int64

	flushCh   chan chan struct{}
	done      chan struct{}
	startOnce sync.Once
}

// New creates a Tracker. Call Start to begin delivery.
func New(surf surface.Surface, onChange func(position.Offset), opts Options) *Tracker {
	opts.defaults()
	return &Tracker{
		surf:     surf,
		onChange: onChange,
		opts:     opts,
		flushCh:  make(chan chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the event loop until ctx is cancelled. Subsequent calls no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() { go t.loop(ctx) })
}

// CurrentOffset reads the live scroll position of the surface.
func (t *Tracker) CurrentOffset(ctx context.Context) (position.Offset, error) {
	return t.surf.Offset(ctx)
}

// Suspend stops callback delivery. Scroll events that arrive while
// suspended are discarded, not queued: the coordinator's own corrective
// motion must never be re-persisted as a user position.
func (t *Tracker) Suspend() {
	t.suspended.Add(1)
}

// Resume undoes one Suspend.
func (t *Tracker) Resume() {
	if t.suspended.Add(-1) < 0 {
		t.suspended.Add(1)
		t.opts.Logger.Warn("tracker: unbalanced resume")
	}
}

// Suspended reports whether callback delivery is currently off.
func (t *Tracker) Suspended() bool {
	return t.suspended.Load() > 0
}

// FlushNow reports the live offset immediately, superseding any pending
// debounce timer — the flush is the final word for the departing view.
// It returns once the callback has run, or when ctx expires.
func (t *Tracker) FlushNow(ctx context.Context) {
	done := make(chan struct{})
	select {
	case t.flushCh <- done:
	case <-ctx.Done():
		return
	case <-t.done:
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)

	var timer *time.Timer
	var timerCh <-chan time.Time
	var pending position.Offset
	havePending := false

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerCh = nil
		}
		havePending = false
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case ev, ok := <-t.surf.Scrolls():
			if !ok {
				stopTimer()
				return
			}
			if t.Suspended() {
				stopTimer()
				continue
			}
			pending = ev.Offset
			havePending = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(t.opts.Window)
			timerCh = timer.C

		case <-timerCh:
			timer = nil
			timerCh = nil
			if havePending && !t.Suspended() {
				t.onChange(pending)
			}
			havePending = false

		case done := <-t.flushCh:
			stopTimer()
			off, err := t.surf.Offset(ctx)
			if err != nil {
				t.opts.Logger.Warn("tracker: flush offset read failed", "error", err)
			} else {
				t.onChange(off)
			}
			close(done)
		}
	}
}
