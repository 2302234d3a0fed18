// Package stability decides when a surface's layout has stopped moving
// enough to restore a scroll position onto it.
//
// Content height is not known synchronously — images load late, grids
// populate over the network — so a naive "wait N milliseconds and hope" is
// either too slow or wrong. The strategies here are feedback-driven
// instead: they observe actual height changes and resolve when the layout
// has been quiet for a configured window, when the target offset is already
// reachable, or when a bounded time/cycle budget runs out.
package stability

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/scrollkeep/position"
	"github.com/hazyhaar/scrollkeep/surface"
)

// Result is the outcome of a stability wait.
type Result struct {
	// Reachable reports whether the target offset fits within the
	// observed scrollable extent. False after a give-up means the caller
	// should clamp to MaxY rather than hang or error.
	Reachable bool
	// MaxY is the best maximum scrollable offset seen during the wait.
	MaxY int
}

// Strategy is one policy for waiting out layout growth.
type Strategy interface {
	// WaitForStable blocks until the surface is stable enough to apply
	// the target offset, the target is already reachable, or the budget
	// is exhausted. A timeout is not an error; an error means the wait
	// itself failed (cancelled context, dead surface) and the caller
	// should degrade to "not reachable".
	WaitForStable(ctx context.Context, surf surface.Surface, target position.Offset) (Result, error)
}

// Options tunes the QuietPeriod strategy.
type Options struct {
	// Interval is the height polling frequency. Default: 50ms.
	Interval time.Duration `yaml:"interval"`
	// Quiet is the window with no qualifying height change required
	// before the layout counts as stable. Default: 300ms.
	Quiet time.Duration `yaml:"quiet"`
	// NarrowQuiet replaces Quiet on narrow viewports, where images and
	// reflows are slower. Default: 700ms.
	NarrowQuiet time.Duration `yaml:"narrow_quiet"`
	// NarrowWidth is the viewport width at or below which NarrowQuiet
	// applies. Default: 768.
	NarrowWidth int `yaml:"narrow_width"`
	// Threshold ignores height jitter up to this many pixels. Default: 4.
	Threshold int `yaml:"threshold"`
	// MaxCycles bounds the number of height observations. Default: 200.
	MaxCycles int `yaml:"max_cycles"`
	// Budget bounds total wall time. Default: 10s.
	Budget time.Duration `yaml:"budget"`
	// Logger overrides the default slog logger.
	Logger *slog.Logger `yaml:"-"`
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 50 * time.Millisecond
	}
	if o.Quiet <= 0 {
		o.Quiet = 300 * time.Millisecond
	}
	if o.NarrowQuiet <= 0 {
		o.NarrowQuiet = 700 * time.Millisecond
	}
	if o.NarrowWidth <= 0 {
		o.NarrowWidth = 768
	}
	if o.Threshold <= 0 {
		o.Threshold = 4
	}
	if o.MaxCycles <= 0 {
		o.MaxCycles = 200
	}
	if o.Budget <= 0 {
		o.Budget = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// QuietPeriod is the authoritative strategy: poll the content height and
// resolve once no change bigger than the threshold has happened for the
// quiet window, exiting early as soon as the target is reachable.
type QuietPeriod struct {
	opts Options
}

// NewQuietPeriod creates the strategy with defaults applied.
func NewQuietPeriod(opts Options) *QuietPeriod {
	opts.defaults()
	return &QuietPeriod{opts: opts}
}

// WaitForStable implements Strategy.
func (q *QuietPeriod) WaitForStable(ctx context.Context, surf surface.Surface, target position.Offset) (Result, error) {
	log := q.opts.Logger

	quiet := q.opts.Quiet
	w, vh, err := surf.ViewportSize(ctx)
	if err != nil {
		return Result{}, err
	}
	if w <= q.opts.NarrowWidth {
		quiet = q.opts.NarrowQuiet
	}

	height, err := surf.ContentHeight(ctx)
	if err != nil {
		return Result{}, err
	}
	maxY := maxScroll(height, vh)
	best := maxY
	if maxY >= target.Y {
		// Already reachable, nothing to wait for.
		return Result{Reachable: true, MaxY: maxY}, nil
	}

	budget := time.NewTimer(q.opts.Budget)
	defer budget.Stop()
	ticker := time.NewTicker(q.opts.Interval)
	defer ticker.Stop()
	quietTimer := time.NewTimer(quiet)
	defer quietTimer.Stop()

	lastHeight := height
	cycles := 0

	for {
		select {
		case <-ctx.Done():
			return Result{Reachable: false, MaxY: best}, ctx.Err()

		case <-budget.C:
			log.Debug("stability: budget exhausted", "best_max_y", best, "target_y", target.Y)
			return Result{Reachable: false, MaxY: best}, nil

		case <-quietTimer.C:
			// No qualifying growth for a full quiet window: this is as
			// tall as the view is going to get.
			return Result{Reachable: best >= target.Y, MaxY: best}, nil

		case <-ticker.C:
			cycles++
			if cycles > q.opts.MaxCycles {
				log.Debug("stability: max cycles reached", "best_max_y", best, "target_y", target.Y)
				return Result{Reachable: false, MaxY: best}, nil
			}

			h, err := surf.ContentHeight(ctx)
			if err != nil {
				return Result{Reachable: false, MaxY: best}, err
			}
			maxY = maxScroll(h, vh)
			if maxY > best {
				best = maxY
			}
			if maxY >= target.Y {
				return Result{Reachable: true, MaxY: maxY}, nil
			}
			if abs(h-lastHeight) > q.opts.Threshold {
				lastHeight = h
				// Still growing: extend the quiet window.
				if !quietTimer.Stop() {
					select {
					case <-quietTimer.C:
					default:
					}
				}
				quietTimer.Reset(quiet)
			}
		}
	}
}

// FixedDelay is the naive policy: sleep once, then report what is
// reachable. Kept as a configurable fallback for surfaces whose growth is
// invisible to height polling.
type FixedDelay struct {
	// Delay is how long to wait. Default: 500ms.
	Delay time.Duration
}

// WaitForStable implements Strategy.
func (f *FixedDelay) WaitForStable(ctx context.Context, surf surface.Surface, target position.Offset) (Result, error) {
	delay := f.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-t.C:
	}

	maxY, err := surface.MaxScroll(ctx, surf)
	if err != nil {
		return Result{}, err
	}
	return Result{Reachable: maxY >= target.Y, MaxY: maxY}, nil
}

// Hybrid waits a fixed minimum first — letting the initial render burst
// pass without polling — then hands over to QuietPeriod.
type Hybrid struct {
	// MinDelay is the unconditional head start. Default: 200ms.
	MinDelay time.Duration
	// Quiet tunes the QuietPeriod phase.
	Quiet Options
}

// WaitForStable implements Strategy.
func (h *Hybrid) WaitForStable(ctx context.Context, surf surface.Surface, target position.Offset) (Result, error) {
	delay := h.MinDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-t.C:
	}

	return NewQuietPeriod(h.Quiet).WaitForStable(ctx, surf, target)
}

func maxScroll(contentHeight, viewportHeight int) int {
	m := contentHeight - viewportHeight
	if m < 0 {
		m = 0
	}
	return m
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
