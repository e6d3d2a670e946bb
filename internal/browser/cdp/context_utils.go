// internal/browser/cdp/context_utils.go
package cdp

import (
	"context"
	"time"
)

// CombineContext returns a context carrying the values of tabCtx that is
// canceled when either tabCtx or opCtx is done. chromedp looks up the target
// in the context values, so tabCtx must stay the parent while the caller's
// deadline still applies.
func CombineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	if opCtx.Done() == nil {
		return combined, cancel
	}
	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// detached keeps the values of its parent but none of its deadline or cancellation.
type detached struct {
	context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }

// Detach returns a context that still resolves the chromedp target of ctx
// but survives its cancellation. Cleanup work runs on it.
func Detach(ctx context.Context) context.Context {
	return detached{ctx}
}
