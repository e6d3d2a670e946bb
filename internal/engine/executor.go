// File: internal/engine/executor.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ClickPath names the strategy that delivered a click.
type ClickPath string

const (
	// ClickNative is a trusted pointer click dispatched by the browser.
	ClickNative ClickPath = "native"
	// ClickSynthetic is the element's own click() invoked in the document.
	ClickSynthetic ClickPath = "synthetic"
)

// DefaultSettleDelay is the pause between scrolling and clicking.
const DefaultSettleDelay = time.Second

// ClickStrategy is one way of clicking a referenced element.
type ClickStrategy struct {
	Path  ClickPath
	Click func(ctx context.Context, page PageHandle, ref NodeRef) error
}

// DefaultStrategies tries a native click and falls back to a synthetic one.
func DefaultStrategies() []ClickStrategy {
	return []ClickStrategy{
		{Path: ClickNative, Click: func(ctx context.Context, p PageHandle, ref NodeRef) error { return p.NativeClick(ctx, ref) }},
		{Path: ClickSynthetic, Click: func(ctx context.Context, p PageHandle, ref NodeRef) error { return p.SyntheticClick(ctx, ref) }},
	}
}

// Executor scrolls a candidate into view, lets the layout settle and clicks
// it with the first strategy that succeeds.
type Executor struct {
	logger     *zap.Logger
	settle     time.Duration
	strategies []ClickStrategy
}

// NewExecutor creates an executor. A nil strategy list means DefaultStrategies.
func NewExecutor(logger *zap.Logger, settle time.Duration, strategies []ClickStrategy) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Executor{
		logger:     logger.Named("executor"),
		settle:     settle,
		strategies: strategies,
	}
}

// Click runs the interaction sequence against cand. The element is not
// re-validated after the settle delay.
func (x *Executor) Click(ctx context.Context, page PageHandle, cand *Candidate, debug bool) (ClickPath, error) {
	if err := page.ScrollIntoView(ctx, cand.Ref); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// The element may still be clickable where it is.
		x.logger.Warn("Scroll into view failed; clicking in place.", zap.String("path", cand.Path), zap.Error(err))
	}

	if debug {
		x.logger.Debug("Waiting for layout to settle after scroll.", zap.Duration("delay", x.settle))
	}
	if err := Sleep(ctx, x.settle); err != nil {
		return "", err
	}

	failures := make([]ClickAttempt, 0, len(x.strategies))
	for _, s := range x.strategies {
		err := s.Click(ctx, page, cand.Ref)
		if err == nil {
			return s.Path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		failures = append(failures, ClickAttempt{Path: s.Path, Err: err})
		x.logger.Debug("Click strategy failed.", zap.String("strategy", string(s.Path)), zap.Error(err))
	}
	return "", &ClickError{Attempts: failures}
}
