// api/schemas/interfaces.go
package schemas

import (
	"context"
	"errors"
)

// ErrNavigationTimeout is returned by the browser boundary when navigation
// did not reach the DOM-ready milestone in time. Callers treat it as a soft
// success: the page is usually usable even though loading continues.
var ErrNavigationTimeout = errors.New("navigation timed out before DOM ready")

// ErrNetworkIdleTimeout is returned when a network-idle wait hit its
// deadline. Pages with continuous background activity never reach idle, so
// the contract defines this outcome as tolerable rather than fatal.
var ErrNetworkIdleTimeout = errors.New("network did not become idle before timeout")

// DecisionRequest is the payload sent to the decision service on every step.
type DecisionRequest struct {
	// Image is the marked screenshot (JPEG bytes).
	Image []byte
	// Task is the user's task description, constant for the whole run.
	Task string
	// History is the bounded tail (last 10) of prior step outcomes.
	History []HistoryEntry
	// CurrentURL is the page URL at decision time.
	CurrentURL string
	// ElementsSummary is the text rendering of the current element set.
	ElementsSummary string
}

// DecisionClient is the consumed decision-service capability. Implementations
// must never surface a parse failure as a Go error: an unparseable response
// is converted into an ActionError-kind request carrying a truncated
// diagnostic of the raw payload. A returned error therefore always means the
// service itself was unreachable.
type DecisionClient interface {
	NextAction(ctx context.Context, req DecisionRequest) (*ActionRequest, error)
}

// UserQuery is the consumed user-interaction capability for ActionAsk
// requests. It may block on human input or be supplied non-interactively by
// an embedding caller.
type UserQuery func(question string) (string, error)
