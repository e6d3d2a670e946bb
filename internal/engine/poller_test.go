// File: internal/engine/poller_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// slack absorbs scheduler jitter in timing assertions.
const slack = 150 * time.Millisecond

func TestWaitUntil_ImmediateMatch(t *testing.T) {
	page := newScriptedPage(func(context.Context, int, Criteria) (MatchResult, error) {
		return found("r1"), nil
	})

	start := time.Now()
	cand, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("ok"), time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, NodeRef("r1"), cand.Ref)
	assert.Equal(t, 1, page.evaluations())
	assert.Less(t, time.Since(start), slack)
}

func TestWaitUntil_LateAppearance(t *testing.T) {
	page := newScriptedPage(func(_ context.Context, call int, _ Criteria) (MatchResult, error) {
		if call < 4 {
			return MatchResult{}, nil
		}
		return found("late"), nil
	})

	start := time.Now()
	cand, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("ok"), 2*time.Second, 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, NodeRef("late"), cand.Ref)
	assert.Equal(t, 4, page.evaluations())
	assert.GreaterOrEqual(t, time.Since(start), 3*30*time.Millisecond, "three intervals must pass before the fourth evaluation")
}

func TestWaitUntil_TimeoutWindow(t *testing.T) {
	tests := []struct {
		timeout  time.Duration
		interval time.Duration
	}{
		{300 * time.Millisecond, 50 * time.Millisecond},
		{250 * time.Millisecond, 100 * time.Millisecond},
		{100 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.timeout, tt.interval), func(t *testing.T) {
			page := newScriptedPage(nil)

			start := time.Now()
			cand, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("absent"), tt.timeout, tt.interval)
			elapsed := time.Since(start)

			assert.Nil(t, cand)
			assert.ErrorIs(t, err, ErrElementNotFound)
			assert.GreaterOrEqual(t, elapsed, tt.timeout)
			assert.LessOrEqual(t, elapsed, tt.timeout+tt.interval+slack)
		})
	}
}

func TestWaitUntil_IntervalLongerThanTimeout(t *testing.T) {
	page := newScriptedPage(nil)

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("absent"), timeout, time.Second)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.GreaterOrEqual(t, elapsed, timeout)
	// The interval is capped at the timeout, so the wait ends well before one second.
	assert.LessOrEqual(t, elapsed, 2*timeout+slack)
	assert.GreaterOrEqual(t, page.evaluations(), 2, "the page is re-evaluated at the deadline")
}

func TestWaitUntil_SlowEvaluationIsBounded(t *testing.T) {
	// Each evaluation blocks until its context expires.
	page := newScriptedPage(func(ctx context.Context, _ int, _ Criteria) (MatchResult, error) {
		<-ctx.Done()
		return MatchResult{}, ctx.Err()
	})

	timeout, interval := 200*time.Millisecond, 50*time.Millisecond
	start := time.Now()
	_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("x"), timeout, interval)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.LessOrEqual(t, elapsed, timeout+interval+slack)
}

func TestWaitUntil_TransientErrorsAreRetried(t *testing.T) {
	page := newScriptedPage(func(_ context.Context, call int, _ Criteria) (MatchResult, error) {
		if call < 3 {
			return MatchResult{}, errors.New("execution context was destroyed")
		}
		return found("after-nav"), nil
	})

	cand, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("ok"), time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, NodeRef("after-nav"), cand.Ref)
}

func TestWaitUntil_InvalidPredicateFailsFast(t *testing.T) {
	page := newScriptedPage(func(context.Context, int, Criteria) (MatchResult, error) {
		return MatchResult{}, fmt.Errorf("%w: bad selector", ErrInvalidPredicate)
	})

	start := time.Now()
	_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, SelectorIndex("div[", 1), 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidPredicate)
	assert.Equal(t, 1, page.evaluations())
	assert.Less(t, time.Since(start), slack)
}

func TestWaitUntil_ParentCancellation(t *testing.T) {
	page := newScriptedPage(nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := WaitUntil(ctx, zaptest.NewLogger(t), page, TextContains("x"), 5*time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitUntil_CheckboxOutcome(t *testing.T) {
	t.Run("text matched without checkbox", func(t *testing.T) {
		page := newScriptedPage(func(_ context.Context, call int, _ Criteria) (MatchResult, error) {
			// The label only shows up once; the timeout still reports the checkbox.
			return MatchResult{TextMatched: call == 2}, nil
		})
		_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContainsCheckbox("agree"), 100*time.Millisecond, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrCheckboxNotFound)
	})

	t.Run("no text at all", func(t *testing.T) {
		page := newScriptedPage(nil)
		_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContainsCheckbox("agree"), 100*time.Millisecond, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrElementNotFound)
	})

	t.Run("text matched on a non-checkbox search", func(t *testing.T) {
		page := newScriptedPage(func(context.Context, int, Criteria) (MatchResult, error) {
			return MatchResult{TextMatched: true}, nil
		})
		_, err := WaitUntil(context.Background(), zaptest.NewLogger(t), page, TextContains("agree"), 50*time.Millisecond, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrElementNotFound)
	})
}

func TestWaitUntil_NonPositiveTimeoutUsesDefault(t *testing.T) {
	page := newScriptedPage(func(_ context.Context, call int, _ Criteria) (MatchResult, error) {
		if call == 1 {
			return MatchResult{}, nil
		}
		return found("r"), nil
	})
	_, err := WaitUntil(context.Background(), nil, page, TextContains("ok"), 0, 10*time.Millisecond)
	require.NoError(t, err, "a zero timeout must not fail on the first miss")
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
