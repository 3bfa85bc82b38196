// internal/browser/monitor.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// networkMonitor tracks in-flight requests over CDP network events so the
// session can implement network-idle waits without relying on load events.
type networkMonitor struct {
	logger *zap.Logger

	mu       sync.RWMutex
	inflight map[network.RequestID]struct{}
}

func newNetworkMonitor(logger *zap.Logger) *networkMonitor {
	return &networkMonitor{
		logger:   logger.Named("netmon"),
		inflight: make(map[network.RequestID]struct{}),
	}
}

// Start enables network events and registers the target listener. The
// listener lives for the whole session context.
func (n *networkMonitor) Start(sessionCtx context.Context) error {
	chromedp.ListenTarget(sessionCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			n.mu.Lock()
			n.inflight[e.RequestID] = struct{}{}
			n.mu.Unlock()
		case *network.EventLoadingFinished:
			n.remove(e.RequestID)
		case *network.EventLoadingFailed:
			n.remove(e.RequestID)
		}
	})

	return chromedp.Run(sessionCtx, network.Enable())
}

func (n *networkMonitor) remove(id network.RequestID) {
	n.mu.Lock()
	delete(n.inflight, id)
	n.mu.Unlock()
}

func (n *networkMonitor) inflightCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.inflight)
}

// WaitIdle polls until there have been no in-flight requests for quietPeriod,
// or until the context expires. A deadline is reported as
// schemas.ErrNetworkIdleTimeout so callers can treat it as a defined soft
// outcome rather than a swallowed exception.
func (n *networkMonitor) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(quietPeriod / 2)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return schemas.ErrNetworkIdleTimeout
			}
			return ctx.Err()
		case <-ticker.C:
			if count := n.inflightCount(); count > 0 {
				lastActivity = time.Now()
				n.logger.Debug("Waiting for network idle.", zap.Int("inflight_requests", count))
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}
