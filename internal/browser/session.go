// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
)

// Session represents one browser tab and exposes the page primitives the
// scanner, resolver and controller operate on. All methods combine the
// session lifetime with the caller's context, so either side can cancel an
// operation.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	monitor *networkMonitor

	mu       sync.Mutex
	isClosed bool
}

// NewSession creates a new Session wrapper around an allocated tab context.
func NewSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	return &Session{
		id:     sessionID,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(zap.String("session_id", sessionID)),
		cfg:    cfg,
	}, nil
}

// Initialize connects the CDP target and starts the network monitor.
func (s *Session) Initialize(ctx context.Context) error {
	initCtx, initCancel := CombineContext(s.ctx, ctx)
	defer initCancel()

	// Ensure the target (tab) is created and CDP is connected.
	if err := chromedp.Run(initCtx); err != nil {
		return fmt.Errorf("failed to initialize browser target connection: %w", err)
	}

	s.monitor = newNetworkMonitor(s.logger)
	if err := s.monitor.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start network monitor: %w", err)
	}
	return nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Close terminates the tab gracefully. Safe to call more than once.
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// runActions executes chromedp actions respecting both the session lifetime
// and the incoming request context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Screenshot captures the current viewport as JPEG at the configured quality.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(s.cfg.Browser.ScreenshotQuality)).
			Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// CurrentURL returns the page's current location. A blank tab reports
// "about:blank".
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// Evaluate runs a JavaScript expression in the current document, unmarshaling
// the result into res when non-nil.
func (s *Session) Evaluate(ctx context.Context, expr string, res any) error {
	return s.runActions(ctx, chromedp.Evaluate(expr, res))
}

// Navigate loads the URL and waits for the DOM-ready milestone, not full
// load. Exceeding the navigation timeout returns
// schemas.ErrNavigationTimeout, which callers treat as a soft success.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.cfg.Browser.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(c context.Context) error {
			_, _, errText, _, err := page.Navigate(url).Do(c)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("page error: %s", errText)
			}
			return nil
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return schemas.ErrNavigationTimeout
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// ClickAt synthesizes a pointer click at viewport coordinates. This is the
// primary interaction path; marker numbers map directly to element centers.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	if err := s.runActions(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("coordinate click at (%.0f, %.0f) failed: %w", x, y, err)
	}
	return nil
}

// ClickSelector performs a DOM-level click via the derived selector. Used as
// the fallback when the coordinate click fails.
func (s *Session) ClickSelector(ctx context.Context, selector string, timeout time.Duration) error {
	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.runActions(clickCtx,
		chromedp.ScrollIntoView(selector, queryOption(selector)),
		chromedp.Click(selector, queryOption(selector)),
	)
	if err != nil {
		return fmt.Errorf("selector click failed for %q: %w", selector, err)
	}
	return nil
}

// TypeText sends the text as individual key events with a fixed delay between
// characters, mimicking human input to avoid racing page-side input handlers.
func (s *Session) TypeText(ctx context.Context, text string, perKeyDelay time.Duration) error {
	var tasks chromedp.Tasks
	for _, r := range text {
		tasks = append(tasks, chromedp.KeyEvent(string(r)), chromedp.Sleep(perKeyDelay))
	}
	if err := s.runActions(ctx, tasks); err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}
	return nil
}

// SelectAll issues the select-all shortcut to clear existing field content
// before typing replaces it.
func (s *Session) SelectAll(ctx context.Context) error {
	err := s.runActions(ctx, chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)))
	if err != nil {
		return fmt.Errorf("select-all shortcut failed: %w", err)
	}
	return nil
}

// FillSelector sets a field value directly through the derived selector; the
// fallback path when coordinate-based typing fails.
func (s *Session) FillSelector(ctx context.Context, selector, value string, timeout time.Duration) error {
	fillCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(fillCtx, chromedp.SetValue(selector, value, queryOption(selector))); err != nil {
		return fmt.Errorf("selector fill failed for %q: %w", selector, err)
	}
	return nil
}

// ScrollBy dispatches a wheel event with the given deltas at the viewport
// center.
func (s *Session) ScrollBy(ctx context.Context, deltaX, deltaY float64) error {
	cx := float64(s.cfg.Browser.ViewportWidth) / 2
	cy := float64(s.cfg.Browser.ViewportHeight) / 2

	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, cx, cy).
			WithDeltaX(deltaX).
			WithDeltaY(deltaY).
			Do(c)
	}))
	if err != nil {
		return fmt.Errorf("wheel scroll failed: %w", err)
	}
	return nil
}

// PressKey sends a single named key event (for example "Enter").
func (s *Session) PressKey(ctx context.Context, key string) error {
	if err := s.runActions(ctx, chromedp.KeyEvent(resolveKey(key))); err != nil {
		return fmt.Errorf("key press %q failed: %w", key, err)
	}
	return nil
}

// WaitNetworkIdle waits until the network has been quiet for 500ms, bounded
// by timeout. Returns schemas.ErrNetworkIdleTimeout on deadline; pages with
// continuous background activity never reach idle, so callers define that
// outcome as acceptable.
func (s *Session) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	idleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitCtx, waitCancel := CombineContext(s.ctx, idleCtx)
	defer waitCancel()

	err := s.monitor.WaitIdle(waitCtx, 500*time.Millisecond)
	if err != nil && idleCtx.Err() == context.DeadlineExceeded {
		// The combined context reports plain cancellation; recover the
		// deadline outcome from the timeout context it wraps.
		return schemas.ErrNetworkIdleTimeout
	}
	return err
}

// Sleep pauses for the given settle delay, respecting cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.runActions(ctx, chromedp.Sleep(d))
}

// WaitForStable waits for the page to settle after an action: network idle
// within the stabilize timeout (tolerated on timeout), then a short settle
// delay for dynamic content.
func (s *Session) WaitForStable(ctx context.Context) error {
	timeout := s.cfg.Browser.StabilizeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	if err := s.WaitNetworkIdle(ctx, timeout); err != nil {
		if err != schemas.ErrNetworkIdleTimeout {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("Network idle wait failed during stabilization.", zap.Error(err))
		}
	}

	return s.Sleep(ctx, 500*time.Millisecond)
}

// queryOption picks the chromedp query strategy for a derived selector:
// XPath selectors (used for text matching) go through DOM search, everything
// else is a CSS query.
func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// namedKeys maps the decision service's key names onto CDP key runes.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
	"Home":       kb.Home,
	"End":        kb.End,
}

// resolveKey translates a named key to its CDP representation; single
// characters pass through unchanged.
func resolveKey(key string) string {
	if k, ok := namedKeys[key]; ok {
		return k
	}
	return key
}
