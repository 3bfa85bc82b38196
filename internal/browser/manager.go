// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/internal/config"
)

// Manager owns the Chrome process allocator. One Manager backs one run; it
// hands out tab sessions and guarantees the browser process is released on
// Close regardless of how the run ended.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewManager creates the exec allocator for the configured Chrome instance.
// The browser process itself is launched lazily by the first session.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Manager {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(cfg)...)
	return &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

// execOptions translates the application config into chromedp allocator options.
func execOptions(cfg *config.Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Required on hardened systems where the Chrome sandbox cannot start.
		chromedp.NoSandbox,
		// Recommended for stability in containers.
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight),
	)

	if cfg.Browser.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	return opts
}

// NewSession creates and initializes a tab session. The caller owns the
// returned session and must Close it.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	s, err := NewSession(tabCtx, tabCancel, m.cfg, m.logger)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to create browser session: %w", err)
	}

	if err := s.Initialize(ctx); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to initialize browser session: %w", err)
	}
	return s, nil
}

// Close tears down the allocator and the Chrome process.
func (m *Manager) Close() {
	m.logger.Debug("Shutting down browser allocator.")
	m.allocCancel()
}
