package surface

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/scrollkeep/position"
)

//go:embed scroll.js
var scrollJS []byte

const bindingName = "__scrollkeep_binding"

// PageSurface binds a live rod page. Scroll motion is captured by an
// injected reporter script and delivered through a CDP runtime binding;
// reads and scrolls are plain JS evaluations.
type PageSurface struct {
	page      *rod.Page
	logger    *slog.Logger
	heightSel string
	events    chan Event
	navs      chan string
	cancel    context.CancelFunc
}

// PageOption configures a PageSurface.
type PageOption func(*PageSurface)

// WithHeightSelector watches the scrollHeight of the first element matching
// the CSS selector instead of the document's. Use it when the window scrolls
// but a nested grid is the element whose growth matters.
func WithHeightSelector(sel string) PageOption {
	return func(s *PageSurface) { s.heightSel = sel }
}

// WithPageLogger overrides the default slog logger.
func WithPageLogger(l *slog.Logger) PageOption {
	return func(s *PageSurface) { s.logger = l }
}

// NewPage wires a PageSurface to an already-navigated rod page: it registers
// the runtime binding, starts the binding listener, and injects the reporter
// script. The listener lives until ctx is cancelled or Close is called.
func NewPage(ctx context.Context, page *rod.Page, opts ...PageOption) (*PageSurface, error) {
	s := &PageSurface{
		page:   page,
		logger: slog.Default(),
		events: make(chan Event, 1024),
		navs:   make(chan string, 16),
	}
	for _, o := range opts {
		o(s)
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		s.logger.Warn("surface: add binding (may already exist)", "error", err)
	}

	lctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.listen(lctx)

	if _, err := page.Context(ctx).Eval(string(scrollJS)); err != nil {
		cancel()
		return nil, fmt.Errorf("surface: inject scroll hooks: %w", err)
	}
	return s, nil
}

// listen receives reporter messages via Runtime.bindingCalled.
func (s *PageSurface) listen(ctx context.Context) {
	s.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var msg struct {
			Kind string `json:"kind"`
			X    int    `json:"x"`
			Y    int    `json:"y"`
			URL  string `json:"url"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
			s.logger.Warn("surface: parse binding payload", "error", err)
			return
		}
		switch msg.Kind {
		case "scroll":
			select {
			case s.events <- Event{Offset: position.Offset{X: msg.X, Y: msg.Y}, At: time.Now()}:
			default:
				// Consumer behind; the next event carries fresher state anyway.
			}
		case "navigate":
			select {
			case s.navs <- msg.URL:
			default:
			}
		}
	})()
}

// Offset reads the live window scroll position.
func (s *PageSurface) Offset(ctx context.Context) (position.Offset, error) {
	res, err := s.page.Context(ctx).Eval(`() => [window.scrollX, window.scrollY]`)
	if err != nil {
		return position.Offset{}, fmt.Errorf("surface: read offset: %w", err)
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return position.Offset{}, fmt.Errorf("surface: read offset: unexpected result %v", res.Value)
	}
	return position.Offset{X: arr[0].Int(), Y: arr[1].Int()}, nil
}

// ScrollTo applies window.scrollTo with the requested behavior.
func (s *PageSurface) ScrollTo(ctx context.Context, to position.Offset, behavior Behavior) error {
	_, err := s.page.Context(ctx).Eval(
		`(x, y, behavior) => window.scrollTo({left: x, top: y, behavior: behavior})`,
		to.X, to.Y, string(behavior))
	if err != nil {
		return fmt.Errorf("surface: scroll to (%d,%d): %w", to.X, to.Y, err)
	}
	return nil
}

// ContentHeight reads the watched content's scrollHeight. With a height
// selector configured, a missing element falls back to the document so a
// view without the grid never wedges the wait loop.
func (s *PageSurface) ContentHeight(ctx context.Context) (int, error) {
	var res *proto.RuntimeRemoteObject
	var err error
	if s.heightSel != "" {
		res, err = s.page.Context(ctx).Eval(`(sel) => {
			const el = document.querySelector(sel);
			return el ? el.scrollHeight : document.documentElement.scrollHeight;
		}`, s.heightSel)
	} else {
		res, err = s.page.Context(ctx).Eval(`() => document.documentElement.scrollHeight`)
	}
	if err != nil {
		return 0, fmt.Errorf("surface: read content height: %w", err)
	}
	return res.Value.Int(), nil
}

// ViewportSize reads the inner window dimensions.
func (s *PageSurface) ViewportSize(ctx context.Context) (int, int, error) {
	res, err := s.page.Context(ctx).Eval(`() => [window.innerWidth, window.innerHeight]`)
	if err != nil {
		return 0, 0, fmt.Errorf("surface: read viewport: %w", err)
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("surface: read viewport: unexpected result %v", res.Value)
	}
	return arr[0].Int(), arr[1].Int(), nil
}

// Scrolls is the scroll event stream fed by the injected reporter.
func (s *PageSurface) Scrolls() <-chan Event {
	return s.events
}

// Navigations reports SPA navigations (history pushState/replaceState and
// popstate) as absolute URLs. The host translates these into view changes.
func (s *PageSurface) Navigations() <-chan string {
	return s.navs
}

// DisableAutoRestore sets history.scrollRestoration to manual so the
// browser's own back/forward restoration never races the engine.
func (s *PageSurface) DisableAutoRestore(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(
		`() => { if ('scrollRestoration' in history) history.scrollRestoration = 'manual'; }`)
	if err != nil {
		return fmt.Errorf("surface: disable host restoration: %w", err)
	}
	return nil
}

// Close stops the binding listener. The page itself is owned by the caller.
func (s *PageSurface) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
