// File: internal/engine/poller.go
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every strategy unless overridden.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is the pause between predicate evaluations.
	DefaultPollInterval = 100 * time.Millisecond
)

// WaitUntil evaluates c against page until it yields a Candidate or the
// timeout elapses. It never gives up before the timeout and returns within
// one interval after it. An interval longer than the timeout is capped at it. Evaluation errors are treated as transient, except
// ErrInvalidPredicate which ends the wait at once. Cancellation of ctx is
// returned unchanged.
//
// On timeout the error is ErrElementNotFound, or ErrCheckboxNotFound for a
// checkbox search whose text matched at least once.
func WaitUntil(ctx context.Context, logger *zap.Logger, page PageHandle, c Criteria, timeout, interval time.Duration) (*Candidate, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	interval = min(interval, timeout)
	if logger == nil {
		logger = zap.NewNop()
	}

	deadline := time.Now().Add(timeout)
	// A single evaluation may run past the deadline by at most one interval.
	hardStop := deadline.Add(interval)

	var (
		textMatched bool
		attempts    int
		lastErr     error
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempts++
		evalCtx, cancel := context.WithDeadline(ctx, hardStop)
		res, err := page.Evaluate(evalCtx, c)
		cancel()

		switch {
		case err == nil && res.Candidate != nil:
			return res.Candidate, nil
		case errors.Is(err, ErrInvalidPredicate):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			if lastErr == nil || lastErr.Error() != err.Error() {
				logger.Debug("Predicate evaluation failed, retrying.", zap.Stringer("criteria", c), zap.Error(err))
			}
			lastErr = err
		default:
			textMatched = textMatched || res.TextMatched
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Debug("Wait timed out.",
				zap.Stringer("criteria", c),
				zap.Int("attempts", attempts),
				zap.Duration("timeout", timeout),
				zap.NamedError("last_error", lastErr))
			if c.Kind == KindTextContainsCheckbox && textMatched {
				return nil, ErrCheckboxNotFound
			}
			return nil, ErrElementNotFound
		}
		timer.Reset(min(interval, remaining))
	}
}
