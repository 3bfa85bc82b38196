// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// Browser is the slice of the session surface the controller itself touches.
// Scanning and action execution go through their own collaborators.
type Browser interface {
	Screenshot(ctx context.Context) ([]byte, error)
	CurrentURL(ctx context.Context) (string, error)
	WaitForStable(ctx context.Context) error
}

// Scanner produces the per-step element arena.
type Scanner interface {
	Scan(ctx context.Context) ([]schemas.InteractiveElement, error)
}

// Renderer overlays Set-of-Marks labels onto a screenshot.
type Renderer interface {
	Render(screenshot []byte, elements []schemas.InteractiveElement) ([]byte, error)
}

// Resolver executes one action against the current element arena.
type Resolver interface {
	Execute(ctx context.Context, req *schemas.ActionRequest, elements []schemas.InteractiveElement) schemas.ActionResult
}
