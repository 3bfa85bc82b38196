// internal/browser/context.go
package browser

import "context"

// CombineContext links the session lifetime and the per-operation context so
// that cancellation of either terminates the derived context. The returned
// context inherits values (including the CDP target) from the first argument.
func CombineContext(sessionCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(sessionCtx)

	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combined.Done():
			// Already canceled from the session side or by the caller.
		}
	}()

	return combined, cancel
}
