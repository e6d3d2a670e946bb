// internal/browser/cdp/page.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/xkilldash9x/puppetcore/internal/engine"
	"go.uber.org/zap"
)

const (
	defaultNativeClickTimeout = 5 * time.Second
	releaseTimeout            = 3 * time.Second
)

var (
	// ErrNodeDetached is returned when a resolved element is no longer in the document.
	ErrNodeDetached = errors.New("node is no longer attached to the document")
	// ErrNodeNotRendered is returned when a resolved element has no layout box to click.
	ErrNodeNotRendered = errors.New("node has no rendered box")
)

// Page is an engine.PageHandle backed by a chromedp tab.
type Page struct {
	tabCtx             context.Context
	logger             *zap.Logger
	nativeClickTimeout time.Duration
}

var _ engine.PageHandle = (*Page)(nil)

// PageOption configures a Page.
type PageOption func(*Page)

// WithNativeClickTimeout bounds how long a native click waits for its target.
func WithNativeClickTimeout(d time.Duration) PageOption {
	return func(p *Page) {
		if d > 0 {
			p.nativeClickTimeout = d
		}
	}
}

// NewPage wraps a chromedp tab context, as returned by chromedp.NewContext.
func NewPage(tabCtx context.Context, logger *zap.Logger, opts ...PageOption) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{
		tabCtx:             tabCtx,
		logger:             logger.Named("cdp_page"),
		nativeClickTimeout: defaultNativeClickTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunActions runs chromedp actions on the tab, bounded by ctx.
func (p *Page) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// evalPayload is the meta object returned by evaluateJS.
type evalPayload struct {
	Candidate   *engine.Candidate `json:"candidate"`
	TextMatched bool              `json:"textMatched"`
	Count       int               `json:"count"`
	Error       *scriptError      `json:"error"`
}

type scriptError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// callOn runs fn with the remote object id as this and returns its result by value.
func callOn(ctx context.Context, id runtime.RemoteObjectID, fn string) ([]byte, error) {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(id).
		WithReturnByValue(true).
		WithSilent(true).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	if res == nil {
		return nil, nil
	}
	return []byte(res.Value), nil
}

// Evaluate implements engine.PageHandle. The document is only read: the
// matched element is kept as a remote object whose id becomes the NodeRef,
// and it lives until Release.
func (p *Page) Evaluate(ctx context.Context, c engine.Criteria) (engine.MatchResult, error) {
	group := "puppetcore-" + uuid.NewString()

	var (
		payload evalPayload
		ref     engine.NodeRef
	)
	err := p.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		result, exc, err := runtime.Evaluate(evaluateScript(c)).
			WithObjectGroup(group).
			WithSilent(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if result == nil || result.ObjectID == "" {
			return errors.New("evaluation script returned no object")
		}

		raw, err := callOn(ctx, result.ObjectID, metaFn)
		if err != nil {
			return fmt.Errorf("failed to read evaluation result: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to decode evaluation result: %w (payload: %s)", err, truncateBytes(raw, 256))
		}

		if payload.Candidate != nil {
			// The element inherits the group of the object it is read from.
			node, exc, err := runtime.CallFunctionOn(nodeFn).WithObjectID(result.ObjectID).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return exc
			}
			if node == nil || node.ObjectID == "" {
				return ErrNodeDetached
			}
			ref = engine.NodeRef(node.ObjectID)
		}
		return runtime.ReleaseObject(result.ObjectID).Do(ctx)
	}))
	if err != nil || ref == "" {
		p.releaseGroup(ctx, group)
	}
	if err != nil {
		return engine.MatchResult{}, fmt.Errorf("failed to evaluate %s: %w", c, err)
	}

	if e := payload.Error; e != nil {
		if e.Name == "SyntaxError" {
			return engine.MatchResult{}, fmt.Errorf("%w: %s", engine.ErrInvalidPredicate, e.Message)
		}
		return engine.MatchResult{}, fmt.Errorf("evaluation script raised %s: %s", e.Name, e.Message)
	}
	if payload.Candidate != nil {
		payload.Candidate.Ref = ref
	}
	return engine.MatchResult{
		Candidate:   payload.Candidate,
		TextMatched: payload.TextMatched,
		Count:       payload.Count,
	}, nil
}

// releaseGroup drops every remote object created by one evaluation. It runs
// on a detached context so a canceled evaluation still cleans up.
func (p *Page) releaseGroup(ctx context.Context, group string) {
	cleanupCtx, cancel := context.WithTimeout(Detach(ctx), releaseTimeout)
	defer cancel()
	if err := p.RunActions(cleanupCtx, runtime.ReleaseObjectGroup(group)); err != nil {
		p.logger.Debug("Failed to release evaluation objects.", zap.String("group", group), zap.Error(err))
	}
}

// runOnNode calls fn on the element, which returns false once the element
// has left the document.
func (p *Page) runOnNode(ctx context.Context, ref engine.NodeRef, fn string) error {
	var ok bool
	err := p.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := callOn(ctx, runtime.RemoteObjectID(ref), fn)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &ok)
	}))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNodeDetached
	}
	return nil
}

// ScrollIntoView implements engine.PageHandle.
func (p *Page) ScrollIntoView(ctx context.Context, ref engine.NodeRef) error {
	if err := p.runOnNode(ctx, ref, scrollFn); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	return nil
}

// NativeClick implements engine.PageHandle with a trusted mouse click at the
// center of the element's first content quad.
func (p *Page) NativeClick(ctx context.Context, ref engine.NodeRef) error {
	opCtx, cancel := context.WithTimeout(ctx, p.nativeClickTimeout)
	defer cancel()

	id := runtime.RemoteObjectID(ref)
	err := p.RunActions(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithObjectID(id).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithObjectID(id).Do(ctx)
		if err != nil {
			return err
		}
		x, y, ok := quadCenter(quads)
		if !ok {
			return ErrNodeNotRendered
		}
		return chromedp.MouseClickXY(x, y).Do(ctx)
	}))
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("native click timed out after %v: %w", p.nativeClickTimeout, err)
	}
	if err != nil {
		return fmt.Errorf("native click: %w", err)
	}
	return nil
}

// quadCenter returns the center of the first well formed quad.
func quadCenter(quads []dom.Quad) (float64, float64, bool) {
	for _, q := range quads {
		if len(q) != 8 {
			continue
		}
		var x, y float64
		for i := 0; i < 8; i += 2 {
			x += q[i]
			y += q[i+1]
		}
		return x / 4, y / 4, true
	}
	return 0, 0, false
}

// SyntheticClick implements engine.PageHandle by calling element.click().
func (p *Page) SyntheticClick(ctx context.Context, ref engine.NodeRef) error {
	if err := p.runOnNode(ctx, ref, clickFn); err != nil {
		return fmt.Errorf("synthetic click: %w", err)
	}
	return nil
}

// SendKeys implements engine.PageHandle.
func (p *Page) SendKeys(ctx context.Context, text string) error {
	if err := p.RunActions(ctx, chromedp.KeyEvent(text)); err != nil {
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

// PressKey implements engine.PageHandle.
func (p *Page) PressKey(ctx context.Context, key string) error {
	seq, err := keySequence(key)
	if err != nil {
		return err
	}
	if err := p.RunActions(ctx, chromedp.KeyEvent(seq)); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	return nil
}

// Release implements engine.PageHandle by releasing the remote object. It
// runs even when ctx is already canceled.
func (p *Page) Release(ctx context.Context, ref engine.NodeRef) error {
	cleanupCtx, cancel := context.WithTimeout(Detach(ctx), releaseTimeout)
	defer cancel()

	if err := p.RunActions(cleanupCtx, runtime.ReleaseObject(runtime.RemoteObjectID(ref))); err != nil {
		return fmt.Errorf("release %s: %w", ref, err)
	}
	p.logger.Debug("Released node reference.", zap.String("ref", string(ref)))
	return nil
}

// truncateBytes shortens b for log output without splitting a UTF-8 sequence.
func truncateBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	cut := max
	for cut > 0 && b[cut]&0xC0 == 0x80 {
		cut--
	}
	return string(b[:cut]) + "..."
}
