// Package restore orchestrates scroll position persistence and restoration
// for one surface.
//
// On view entry the engine reads the saved record, suspends its own
// tracking, waits for the layout to stabilise, applies the best achievable
// offset, and re-arms tracking. User scrolling flows the other way: the
// tracker reports debounced offsets which are written to the store under
// the active view key, with a final flush on view departure.
//
// Every failure path degrades — missing or corrupt record means "scroll to
// top", an unstable layout means "clamp and apply best effort". Nothing in
// this package propagates an error to the navigation or rendering layers.
package restore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/scrollkeep/position"
	"github.com/hazyhaar/scrollkeep/stability"
	"github.com/hazyhaar/scrollkeep/store"
	"github.com/hazyhaar/scrollkeep/surface"
	"github.com/hazyhaar/scrollkeep/tracker"
)

// State is the restoration state of the current view activation.
type State int

const (
	StateIdle State = iota
	StateReading
	StateWaiting
	StateApplying
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateWaiting:
		return "waiting"
	case StateApplying:
		return "applying"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Options tunes the engine.
type Options struct {
	// Strategy decides when the layout is stable enough to restore onto.
	// Default: stability.QuietPeriod with its own defaults.
	Strategy stability.Strategy
	// DebounceWindow is the tracker's quiet window between a scroll burst
	// and the persistence write. Default: 150ms.
	DebounceWindow time.Duration
	// GraceWindow suppresses tracking for a moment after restoration
	// settles, so the applied scroll is not re-captured as user motion
	// while layout is still growing beneath it. Default: 250ms.
	GraceWindow time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Strategy == nil {
		o.Strategy = stability.NewQuietPeriod(stability.Options{Logger: o.Logger})
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = 150 * time.Millisecond
	}
	if o.GraceWindow <= 0 {
		o.GraceWindow = 250 * time.Millisecond
	}
}

// Engine coordinates one surface: it owns the tracker, consults the
// stability strategy, and is the only writer of view state.
type Engine struct {
	surf   surface.Surface
	store  store.Store
	track  *tracker.Tracker
	opts   Options
	logger *slog.Logger

	// hostRestore disables the host's own back/forward restoration once
	// per session so it never races the engine.
	hostRestore sync.Once

	// generation tags each activation; deferred work checks it and
	// no-ops when stale, which is how fast navigation cancels cleanly.
	generation atomic.Uint64

	mu           sync.Mutex
	state        State
	viewKey      string
	restoring    bool
	cancelActive context.CancelFunc
}

// New creates an Engine for a surface and a store. Call Start before the
// first EnterView.
func New(surf surface.Surface, st store.Store, opts Options) *Engine {
	opts.defaults()
	e := &Engine{
		surf:   surf,
		store:  st,
		opts:   opts,
		logger: opts.Logger,
	}
	e.track = tracker.New(surf, e.persist, tracker.Options{
		Window: opts.DebounceWindow,
		Logger: opts.Logger,
	})
	return e
}

// Start runs the tracking loop until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.track.Start(ctx)
}

// State returns the restoration state of the current activation.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveView returns the view key of the current activation, or "".
func (e *Engine) ActiveView() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewKey
}

// EnterView activates a view: any in-flight restoration for another view is
// abandoned and a restoration sequence for viewKey starts. Re-entering the
// same view while its restoration is still in flight is a no-op —
// restoration happens at most once per activation.
//
// The sequence runs on its own goroutine; EnterView never blocks on layout.
func (e *Engine) EnterView(ctx context.Context, viewKey string) {
	e.hostRestore.Do(func() {
		if err := e.surf.DisableAutoRestore(ctx); err != nil {
			e.logger.Warn("restore: disable host auto-restoration", "error", err)
		}
	})

	e.mu.Lock()
	if e.restoring && e.viewKey == viewKey {
		e.mu.Unlock()
		e.logger.Debug("restore: restoration already in flight", "view", viewKey)
		return
	}
	if e.cancelActive != nil {
		e.cancelActive()
	}
	gen := e.generation.Add(1)
	actx, cancel := context.WithCancel(ctx)
	e.cancelActive = cancel
	e.viewKey = viewKey
	e.restoring = true
	e.state = StateReading
	e.mu.Unlock()

	e.logger.Debug("restore: view activated", "view", viewKey, "generation", gen)
	go e.run(actx, gen, viewKey)
}

// LeaveView deactivates the current view. The in-flight restoration, if
// any, is invalidated first; then the tracker is flushed unconditionally so
// the final position is captured even when the debounce window had not yet
// elapsed.
func (e *Engine) LeaveView(ctx context.Context) {
	e.mu.Lock()
	key := e.viewKey
	if key == "" {
		e.mu.Unlock()
		return
	}
	e.generation.Add(1)
	if e.cancelActive != nil {
		e.cancelActive()
		e.cancelActive = nil
	}
	e.restoring = false
	e.mu.Unlock()

	// The flush is the final word for the departing view.
	e.track.FlushNow(ctx)

	e.mu.Lock()
	e.viewKey = ""
	e.state = StateIdle
	e.mu.Unlock()
	e.logger.Debug("restore: view departed", "view", key)
}

// run is one activation's Reading → Waiting → Applying → Settled sequence.
func (e *Engine) run(ctx context.Context, gen uint64, viewKey string) {
	rec, ok := e.store.Read(ctx, viewKey)
	if e.stale(gen) || ctx.Err() != nil {
		return
	}
	if !ok {
		// First visit: force the top so the user never inherits a stale
		// offset from an unrelated prior view.
		if err := e.surf.ScrollTo(ctx, position.Offset{}, surface.BehaviorInstant); err != nil {
			e.logger.Warn("restore: scroll to top failed", "view", viewKey, "error", err)
		}
		e.finish(gen, StateIdle)
		return
	}

	target := position.Sanitize(rec.Offset())

	e.track.Suspend()
	e.transition(gen, StateWaiting)

	res, err := e.opts.Strategy.WaitForStable(ctx, e.surf, target)
	if err != nil {
		e.logger.Debug("restore: stability wait failed, degrading",
			"view", viewKey, "error", err)
	}
	if e.stale(gen) || ctx.Err() != nil {
		e.track.Resume()
		return
	}

	applied := position.Clamp(target, res.MaxY)
	e.transition(gen, StateApplying)
	if err := e.surf.ScrollTo(ctx, applied, surface.BehaviorInstant); err != nil {
		e.logger.Warn("restore: apply scroll failed", "view", viewKey, "error", err)
	}
	if !res.Reachable {
		e.logger.Debug("restore: partial restoration",
			"view", viewKey, "target_y", target.Y, "applied_y", applied.Y)
	}
	if e.stale(gen) || ctx.Err() != nil {
		e.track.Resume()
		return
	}

	e.transition(gen, StateSettled)

	// Layout may still be growing beneath the applied offset; trust user
	// motion again only after the grace window.
	time.AfterFunc(e.opts.GraceWindow, func() {
		e.track.Resume()
		e.mu.Lock()
		if e.generation.Load() == gen {
			e.restoring = false
		}
		e.mu.Unlock()
	})
}

// persist is the tracker callback: write the debounced offset under the
// active view key.
func (e *Engine) persist(off position.Offset) {
	e.mu.Lock()
	key := e.viewKey
	restoring := e.restoring
	e.mu.Unlock()

	if key == "" {
		return
	}
	if restoring {
		// Corrective motion from the engine's own restoration; persisting
		// it would pin the user at the wrong offset.
		return
	}
	e.store.Write(context.Background(), key, position.Sanitize(off))
}

func (e *Engine) stale(gen uint64) bool {
	return e.generation.Load() != gen
}

func (e *Engine) transition(gen uint64, s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() != gen {
		return
	}
	e.logger.Debug("restore: state", "view", e.viewKey, "from", e.state.String(), "to", s.String())
	e.state = s
}

func (e *Engine) finish(gen uint64, s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() != gen {
		return
	}
	e.state = s
	e.restoring = false
}
