// File: internal/engine/fake_page_test.go
package engine

import (
	"context"
	"sync"
	"time"
)

// scriptedPage is a PageHandle whose behavior is driven by test callbacks.
type scriptedPage struct {
	mu sync.Mutex

	evaluate     func(ctx context.Context, call int, c Criteria) (MatchResult, error)
	scrollErr    error
	nativeErr    error
	syntheticErr error

	calls int
	log   []string
	times map[string]time.Time
}

func newScriptedPage(eval func(ctx context.Context, call int, c Criteria) (MatchResult, error)) *scriptedPage {
	return &scriptedPage{evaluate: eval, times: make(map[string]time.Time)}
}

func (p *scriptedPage) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, event)
	p.times[event] = time.Now()
}

func (p *scriptedPage) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

func (p *scriptedPage) at(event string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.times[event]
}

func (p *scriptedPage) Evaluate(ctx context.Context, c Criteria) (MatchResult, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	if p.evaluate == nil {
		return MatchResult{}, nil
	}
	return p.evaluate(ctx, call, c)
}

func (p *scriptedPage) ScrollIntoView(ctx context.Context, ref NodeRef) error {
	p.record("scroll")
	return p.scrollErr
}

func (p *scriptedPage) NativeClick(ctx context.Context, ref NodeRef) error {
	p.record("native")
	return p.nativeErr
}

func (p *scriptedPage) SyntheticClick(ctx context.Context, ref NodeRef) error {
	p.record("synthetic")
	return p.syntheticErr
}

func (p *scriptedPage) SendKeys(ctx context.Context, text string) error {
	p.record("keys:" + text)
	return nil
}

func (p *scriptedPage) PressKey(ctx context.Context, key string) error {
	p.record("key:" + key)
	return nil
}

func (p *scriptedPage) Release(ctx context.Context, ref NodeRef) error {
	p.record("release:" + string(ref))
	return nil
}

func (p *scriptedPage) evaluations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// found returns a MatchResult holding a single candidate.
func found(ref string) MatchResult {
	return MatchResult{Candidate: &Candidate{Ref: NodeRef(ref), Tag: "BUTTON", Text: "ok", Path: "html>body>button", Interactive: true}}
}
