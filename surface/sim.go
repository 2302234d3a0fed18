package surface

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/scrollkeep/position"
)

// ScrollCall records one programmatic scroll applied to a Simulated surface.
type ScrollCall struct {
	To       position.Offset
	Behavior Behavior
}

// Simulated is an in-process Surface with controllable geometry. Content
// height can be changed at any time to model late-loading grids, and every
// ScrollTo is recorded so callers can assert on applied scrolls.
//
// Like a real browser, programmatic scrolls clamp to the reachable extent
// and emit a scroll event.
type Simulated struct {
	mu      sync.Mutex
	offset  position.Offset
	content int
	viewW   int
	viewH   int
	calls   []ScrollCall
	autoOff bool

	events chan Event
}

// NewSimulated creates a surface with the given viewport and content height.
func NewSimulated(viewW, viewH, contentHeight int) *Simulated {
	return &Simulated{
		viewW:   viewW,
		viewH:   viewH,
		content: contentHeight,
		events:  make(chan Event, 256),
	}
}

// Offset returns the current scroll position.
func (s *Simulated) Offset(ctx context.Context) (position.Offset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

// ScrollTo clamps to the reachable extent, records the call, and emits a
// scroll event — programmatic motion is observable, as on a real page.
func (s *Simulated) ScrollTo(ctx context.Context, to position.Offset, behavior Behavior) error {
	s.mu.Lock()
	s.calls = append(s.calls, ScrollCall{To: to, Behavior: behavior})
	applied := position.Clamp(position.Sanitize(to), s.maxYLocked())
	s.offset = applied
	s.mu.Unlock()

	s.emit(applied)
	return nil
}

// ContentHeight returns the current content height.
func (s *Simulated) ContentHeight(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, nil
}

// ViewportSize returns the configured viewport.
func (s *Simulated) ViewportSize(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewW, s.viewH, nil
}

// Scrolls is the scroll event stream.
func (s *Simulated) Scrolls() <-chan Event {
	return s.events
}

// DisableAutoRestore marks host restoration as disabled.
func (s *Simulated) DisableAutoRestore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoOff = true
	return nil
}

// UserScroll models user-driven motion: clamps, moves, emits an event.
func (s *Simulated) UserScroll(x, y int) {
	s.mu.Lock()
	applied := position.Clamp(position.Sanitize(position.Offset{X: x, Y: y}), s.maxYLocked())
	s.offset = applied
	s.mu.Unlock()

	s.emit(applied)
}

// SetContentHeight changes the content height, modeling asynchronous growth
// or shrinkage. The scroll offset is re-clamped the way a browser would.
func (s *Simulated) SetContentHeight(h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = h
	s.offset = position.Clamp(s.offset, s.maxYLocked())
}

// Calls returns a copy of the programmatic scrolls applied so far.
func (s *Simulated) Calls() []ScrollCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScrollCall(nil), s.calls...)
}

// AutoRestoreDisabled reports whether DisableAutoRestore was called.
func (s *Simulated) AutoRestoreDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoOff
}

func (s *Simulated) maxYLocked() int {
	m := s.content - s.viewH
	if m < 0 {
		m = 0
	}
	return m
}

func (s *Simulated) emit(off position.Offset) {
	select {
	case s.events <- Event{Offset: off, At: time.Now()}:
	default:
	}
}
