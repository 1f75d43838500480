package browser

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 (the session context,
// which carries the CDP target) that is canceled when either ctx1 or ctx2
// (the operational context, which carries the deadline) is canceled. Values
// are inherited from ctx1 only; chromedp resolves its connection through
// them.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext inherits values from its parent but ignores the parent's
// deadline and cancellation signal.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }

func (valueOnlyContext) Done() <-chan struct{} { return nil }

func (valueOnlyContext) Err() error { return nil }

// Detach returns a context that keeps ctx's values but is not canceled when
// ctx is. Cleanup work that must outlive a failing operation runs under it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
