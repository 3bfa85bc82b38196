// internal/browser/monitor_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWaitIdleReturnsWhenQuiet(t *testing.T) {
	mon := newNetworkMonitor(zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := mon.WaitIdle(ctx, 50*time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitIdleTimesOutWhileRequestsInflight(t *testing.T) {
	mon := newNetworkMonitor(zaptest.NewLogger(t))
	mon.mu.Lock()
	mon.inflight["req-1"] = struct{}{}
	mon.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := mon.WaitIdle(ctx, 50*time.Millisecond)
	require.ErrorIs(t, err, schemas.ErrNetworkIdleTimeout)
}

func TestWaitIdleRecoversAfterRequestsDrain(t *testing.T) {
	mon := newNetworkMonitor(zaptest.NewLogger(t))
	mon.mu.Lock()
	mon.inflight["req-1"] = struct{}{}
	mon.mu.Unlock()

	go func() {
		time.Sleep(80 * time.Millisecond)
		mon.remove(network.RequestID("req-1"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := mon.WaitIdle(ctx, 50*time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitIdlePropagatesCancellation(t *testing.T) {
	mon := newNetworkMonitor(zaptest.NewLogger(t))
	mon.mu.Lock()
	mon.inflight["req-1"] = struct{}{}
	mon.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := mon.WaitIdle(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
