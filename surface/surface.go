// Package surface abstracts the scrollable page the engine observes: the
// live offset, the content height, an imperative scroll effect, and a
// stream of scroll events.
//
// Two implementations ship with the module: PageSurface binds a live
// go-rod page through an injected reporter script, and Simulated is a
// deterministic in-process surface for tests and embedders that drive the
// engine without a browser.
package surface

import (
	"context"
	"time"

	"github.com/hazyhaar/scrollkeep/position"
)

// Behavior selects how a programmatic scroll is applied.
type Behavior string

const (
	// BehaviorInstant jumps without animation. Restoration uses this so
	// the viewport never visibly flies over unrelated content.
	BehaviorInstant Behavior = "instant"
	// BehaviorSmooth animates. Available for corrective nudges.
	BehaviorSmooth Behavior = "smooth"
)

// Event is one observed scroll motion on a surface.
type Event struct {
	Offset position.Offset
	At     time.Time
}

// Surface is a scrollable page or container.
//
// Programmatic scrolls issued through ScrollTo are reported on Scrolls like
// any other motion; callers that must tell the two apart (the restoration
// coordinator) suspend their tracking around the ScrollTo call.
type Surface interface {
	// Offset reads the live scroll position.
	Offset(ctx context.Context) (position.Offset, error)

	// ScrollTo applies an imperative scroll effect.
	ScrollTo(ctx context.Context, to position.Offset, behavior Behavior) error

	// ContentHeight reads the full scrollable height of the watched
	// content, which may still be growing after initial paint.
	ContentHeight(ctx context.Context) (int, error)

	// ViewportSize reads the visible width and height.
	ViewportSize(ctx context.Context) (w, h int, err error)

	// Scrolls is the surface's scroll event stream. The channel stays
	// open for the surface's lifetime; events are dropped, not blocked
	// on, when the consumer falls behind.
	Scrolls() <-chan Event

	// DisableAutoRestore turns off any host-provided automatic
	// "restore previous offset" behavior so it cannot race the engine.
	DisableAutoRestore(ctx context.Context) error
}

// MaxScroll returns the maximum reachable vertical offset of a surface:
// content height minus viewport height, floored at zero.
func MaxScroll(ctx context.Context, s Surface) (int, error) {
	h, err := s.ContentHeight(ctx)
	if err != nil {
		return 0, err
	}
	_, vh, err := s.ViewportSize(ctx)
	if err != nil {
		return 0, err
	}
	m := h - vh
	if m < 0 {
		m = 0
	}
	return m, nil
}
