// File: internal/engine/default.go
package engine

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// defaultSession backs the package-level helpers used by simple scripts.
var defaultSession atomic.Pointer[Session]

// Default returns the process-wide session, creating it on first use with the
// global zap logger and DefaultSettings.
func Default() *Session {
	if s := defaultSession.Load(); s != nil {
		return s
	}
	defaultSession.CompareAndSwap(nil, NewSession(zap.L(), DefaultSettings()))
	return defaultSession.Load()
}

// SetDefault replaces the process-wide session.
func SetDefault(s *Session) {
	defaultSession.Store(s)
}

// BindPage binds page to the default session.
func BindPage(page PageHandle) { Default().Bind(page) }

// ClickByText runs Session.ClickByText on the default session.
func ClickByText(ctx context.Context, text string, opts ...Option) (Outcome, error) {
	return Default().ClickByText(ctx, text, opts...)
}

// ClickByAttribute runs Session.ClickByAttribute on the default session.
func ClickByAttribute(ctx context.Context, value string, opts ...Option) (Outcome, error) {
	return Default().ClickByAttribute(ctx, value, opts...)
}

// ClickByIndex runs Session.ClickByIndex on the default session.
func ClickByIndex(ctx context.Context, selector string, index int, opts ...Option) (Outcome, error) {
	return Default().ClickByIndex(ctx, selector, index, opts...)
}

// ClickNthByName runs Session.ClickNthByName on the default session.
func ClickNthByName(ctx context.Context, name string, index int, opts ...Option) (Outcome, error) {
	return Default().ClickNthByName(ctx, name, index, opts...)
}

// ClickCheckboxByText runs Session.ClickCheckboxByText on the default session.
func ClickCheckboxByText(ctx context.Context, text string, opts ...Option) (Outcome, error) {
	return Default().ClickCheckboxByText(ctx, text, opts...)
}
