// internal/action/resolver.go
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// Fixed interaction timing. These mirror the settle-delay idiom: short fixed
// pauses that let asynchronous page updates apply before the next scan.
const (
	settleDelay      = 500 * time.Millisecond
	focusSettleDelay = 200 * time.Millisecond
	navigationSettle = 1 * time.Second
	perKeyDelay      = 50 * time.Millisecond
	waitIdleTimeout  = 5 * time.Second
	waitExtraDelay   = 1 * time.Second
	scrollDelta      = 500
)

// Page is the narrow browser capability surface the resolver drives. The
// concrete implementation is browser.Session; tests substitute a mock.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ClickAt(ctx context.Context, x, y float64) error
	ClickSelector(ctx context.Context, selector string, timeout time.Duration) error
	TypeText(ctx context.Context, text string, perKeyDelay time.Duration) error
	SelectAll(ctx context.Context) error
	FillSelector(ctx context.Context, selector, value string, timeout time.Duration) error
	ScrollBy(ctx context.Context, deltaX, deltaY float64) error
	PressKey(ctx context.Context, key string) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Resolver maps symbolic decision-service actions onto concrete browser
// operations. It never lets an error escape as a panic or Go error: every
// execution path, including unexpected driver failures, resolves to an
// ActionResult.
type Resolver struct {
	page Page
	// fallbackTimeout bounds selector-based fallback interactions.
	fallbackTimeout time.Duration
	logger          *zap.Logger
}

// NewResolver creates a resolver over the given page primitives.
func NewResolver(page Page, fallbackTimeout time.Duration, logger *zap.Logger) *Resolver {
	if fallbackTimeout <= 0 {
		fallbackTimeout = 5 * time.Second
	}
	return &Resolver{
		page:            page,
		fallbackTimeout: fallbackTimeout,
		logger:          logger.Named("action"),
	}
}

// Execute performs the requested action against the element arena produced in
// the same step. Element indices are only valid against that arena.
func (r *Resolver) Execute(ctx context.Context, req *schemas.ActionRequest, elements []schemas.InteractiveElement) (result schemas.ActionResult) {
	// Unexpected driver panics become failed results; the loop must survive
	// anything a single action does.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic during action execution.",
				zap.String("kind", string(req.Kind)), zap.Any("panic_value", rec))
			result = schemas.Failure(
				fmt.Sprintf("Action failed: %s", req.Kind),
				fmt.Sprintf("panic during %s: %v", req.Kind, rec),
			)
		}
	}()

	switch req.Kind {
	case schemas.ActionGoto:
		return r.executeGoto(ctx, req.URL)
	case schemas.ActionClick:
		return r.executeClick(ctx, req.Element, elements)
	case schemas.ActionType:
		return r.executeType(ctx, req.Element, req.Text, elements)
	case schemas.ActionScroll:
		return r.executeScroll(ctx, req.Direction)
	case schemas.ActionPress:
		return r.executePress(ctx, req.Key)
	case schemas.ActionWait:
		return r.executeWait(ctx)
	case schemas.ActionDone:
		// Not a browser operation; the controller interprets this as
		// terminal success.
		msg := req.Result
		if msg == "" {
			msg = "Task completed"
		}
		return schemas.Successf("Done: %s", msg)
	case schemas.ActionAsk:
		// Not a browser operation; the controller routes this to the user.
		question := req.Question
		if question == "" {
			question = "Need more information"
		}
		return schemas.Successf("Question: %s", question)
	case schemas.ActionError:
		return schemas.Failure("Error", req.Error)
	default:
		return schemas.Failure(
			fmt.Sprintf("Unknown action: %s", req.Kind),
			fmt.Sprintf("unknown action kind: %s", req.Kind),
		)
	}
}

// executeGoto navigates to the URL, defaulting the scheme to https. A
// navigation timeout is a soft success: the DOM is usually usable before the
// page finishes loading.
func (r *Resolver) executeGoto(ctx context.Context, url string) schemas.ActionResult {
	if url == "" {
		return schemas.Failure("No URL provided", "URL is empty")
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	err := r.page.Navigate(ctx, url)
	switch {
	case err == nil:
	case err == schemas.ErrNavigationTimeout:
		r.settle(ctx, navigationSettle)
		return schemas.Successf("Navigated to %s (timed out waiting for DOM ready)", url)
	default:
		return schemas.Failure(fmt.Sprintf("Failed to navigate to %s", url), err.Error())
	}

	r.settle(ctx, navigationSettle)
	return schemas.Successf("Navigated to %s", url)
}

// executeClick clicks the referenced element, coordinates first, derived
// selector as fallback.
func (r *Resolver) executeClick(ctx context.Context, index int, elements []schemas.InteractiveElement) schemas.ActionResult {
	if index <= 0 {
		return schemas.Failure("No element specified", "element index is missing")
	}

	el, ok := findElement(elements, index)
	if !ok {
		return schemas.Failure(
			fmt.Sprintf("Element [%d] not found", index),
			fmt.Sprintf("element with index %d not in current scan (have %d elements)", index, len(elements)),
		)
	}

	primaryErr := r.page.ClickAt(ctx, float64(el.CenterX), float64(el.CenterY))
	if primaryErr == nil {
		r.settle(ctx, settleDelay)
		return schemas.Successf("Clicked element [%d]: %s", index, elementLabel(el))
	}

	r.logger.Debug("Coordinate click failed, falling back to selector.",
		zap.Int("element", index), zap.String("selector", el.Selector), zap.Error(primaryErr))

	if fallbackErr := r.page.ClickSelector(ctx, el.Selector, r.fallbackTimeout); fallbackErr != nil {
		return schemas.Failure(
			fmt.Sprintf("Failed to click element [%d]", index),
			fmt.Sprintf("click failed: %v; selector fallback: %v", primaryErr, fallbackErr),
		)
	}

	r.settle(ctx, settleDelay)
	return schemas.Successf("Clicked element [%d] via selector", index)
}

// executeType focuses the element by clicking its center, clears existing
// content with select-all, then types with a per-character delay. Falls back
// to setting the field value through the derived selector.
func (r *Resolver) executeType(ctx context.Context, index int, text string, elements []schemas.InteractiveElement) schemas.ActionResult {
	if index <= 0 {
		return schemas.Failure("No element specified", "element index is missing")
	}
	if text == "" {
		return schemas.Failure("No text to type", "text is empty")
	}

	el, ok := findElement(elements, index)
	if !ok {
		return schemas.Failure(
			fmt.Sprintf("Element [%d] not found", index),
			fmt.Sprintf("element with index %d not in current scan (have %d elements)", index, len(elements)),
		)
	}

	primaryErr := r.typeAtCenter(ctx, el, text)
	if primaryErr == nil {
		return schemas.Successf("Typed %q into element [%d]", text, index)
	}

	r.logger.Debug("Coordinate typing failed, falling back to selector fill.",
		zap.Int("element", index), zap.String("selector", el.Selector), zap.Error(primaryErr))

	if fallbackErr := r.page.FillSelector(ctx, el.Selector, text, r.fallbackTimeout); fallbackErr != nil {
		return schemas.Failure(
			fmt.Sprintf("Failed to type into element [%d]", index),
			fmt.Sprintf("type failed: %v; selector fallback: %v", primaryErr, fallbackErr),
		)
	}
	return schemas.Successf("Typed %q into element [%d] via selector", text, index)
}

func (r *Resolver) typeAtCenter(ctx context.Context, el schemas.InteractiveElement, text string) error {
	if err := r.page.ClickAt(ctx, float64(el.CenterX), float64(el.CenterY)); err != nil {
		return fmt.Errorf("focus click failed: %w", err)
	}
	r.settle(ctx, focusSettleDelay)

	if err := r.page.SelectAll(ctx); err != nil {
		return fmt.Errorf("clearing field failed: %w", err)
	}
	return r.page.TypeText(ctx, text, perKeyDelay)
}

// executeScroll issues a fixed-magnitude wheel delta; unrecognized directions
// default to down.
func (r *Resolver) executeScroll(ctx context.Context, direction string) schemas.ActionResult {
	var dx, dy float64
	switch direction {
	case "up":
		dy = -scrollDelta
	case "left":
		dx = -scrollDelta
	case "right":
		dx = scrollDelta
	case "down":
		dy = scrollDelta
	default:
		direction = "down"
		dy = scrollDelta
	}

	if err := r.page.ScrollBy(ctx, dx, dy); err != nil {
		return schemas.Failure(fmt.Sprintf("Failed to scroll %s", direction), err.Error())
	}

	r.settle(ctx, settleDelay)
	return schemas.Successf("Scrolled %s", direction)
}

// executePress sends a single named key event, defaulting to Enter.
func (r *Resolver) executePress(ctx context.Context, key string) schemas.ActionResult {
	if key == "" {
		key = "Enter"
	}

	if err := r.page.PressKey(ctx, key); err != nil {
		return schemas.Failure(fmt.Sprintf("Failed to press %s", key), err.Error())
	}

	r.settle(ctx, settleDelay)
	return schemas.Successf("Pressed %s", key)
}

// executeWait waits for network idle with a bounded timeout. The timeout
// outcome is a defined success, not an error: pages with continuous
// background activity never reach idle.
func (r *Resolver) executeWait(ctx context.Context) schemas.ActionResult {
	if err := r.page.WaitNetworkIdle(ctx, waitIdleTimeout); err != nil && err != schemas.ErrNetworkIdleTimeout {
		return schemas.Failure("Failed to wait for page load", err.Error())
	}

	r.settle(ctx, waitExtraDelay)
	return schemas.Successf("Waited for page load")
}

// settle inserts the fixed post-action pause. Failures here are ignored; the
// pause is best-effort by contract.
func (r *Resolver) settle(ctx context.Context, d time.Duration) {
	_ = r.page.Sleep(ctx, d)
}

// findElement looks up an element by its per-scan index.
func findElement(elements []schemas.InteractiveElement, index int) (schemas.InteractiveElement, bool) {
	for _, el := range elements {
		if el.Index == index {
			return el, true
		}
	}
	return schemas.InteractiveElement{}, false
}

// elementLabel describes an element for result messages.
func elementLabel(el schemas.InteractiveElement) string {
	if el.Text != "" {
		if len(el.Text) > 30 {
			return el.Text[:30]
		}
		return el.Text
	}
	return el.Tag
}
