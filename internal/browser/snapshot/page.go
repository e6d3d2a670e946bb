// File: internal/browser/snapshot/page.go
package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/xkilldash9x/puppetcore/internal/engine"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// EventKind classifies what a Page recorded.
type EventKind string

const (
	EventScroll         EventKind = "scroll"
	EventNativeClick    EventKind = "native_click"
	EventSyntheticClick EventKind = "synthetic_click"
	EventKeys           EventKind = "keys"
	EventKey            EventKind = "key"
	EventRelease        EventKind = "release"
)

// Event is one interaction applied to the page.
type Event struct {
	Kind EventKind
	Ref  engine.NodeRef
	// Path is the element path for node events, the text or key otherwise.
	Detail string
}

// Page is an engine.PageHandle over a parsed HTML document. It evaluates
// visibility from markup alone, which makes it suitable for dry runs against
// saved pages and for exercising the engine without a browser.
type Page struct {
	mu     sync.Mutex
	doc    *goquery.Document
	refs   map[engine.NodeRef]*html.Node
	byNode map[*html.Node]engine.NodeRef
	seq    int

	events      []Event
	evaluations int

	onEvaluate    func(*Page)
	failNative    error
	failSynthetic error

	logger *zap.Logger
}

var _ engine.PageHandle = (*Page)(nil)

// Option configures a Page.
type Option func(*Page)

// WithLogger sets the logger used for page diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) { p.logger = logger.Named("snapshot") }
}

// New parses src into a Page.
func New(src string, opts ...Option) (*Page, error) {
	return FromReader(strings.NewReader(src), opts...)
}

// FromReader parses an HTML document from r.
func FromReader(r io.Reader, opts ...Option) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	p := &Page{
		doc:    doc,
		refs:   make(map[engine.NodeRef]*html.Node),
		byNode: make(map[*html.Node]engine.NodeRef),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetHTML replaces the document. References handed out earlier become stale.
func (p *Page) SetHTML(src string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

// Mutate runs fn against the document under the page lock.
func (p *Page) Mutate(fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// OnEvaluate registers a hook run before every evaluation, outside the page
// lock so it may call SetHTML or Mutate.
func (p *Page) OnEvaluate(fn func(*Page)) {
	p.mu.Lock()
	p.onEvaluate = fn
	p.mu.Unlock()
}

// FailNativeClick makes subsequent native clicks return err. Nil restores them.
func (p *Page) FailNativeClick(err error) {
	p.mu.Lock()
	p.failNative = err
	p.mu.Unlock()
}

// FailSyntheticClick makes subsequent synthetic clicks return err. Nil restores them.
func (p *Page) FailSyntheticClick(err error) {
	p.mu.Lock()
	p.failSynthetic = err
	p.mu.Unlock()
}

// Events returns a copy of the recorded interactions.
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Evaluations returns how many times Evaluate ran.
func (p *Page) Evaluations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evaluations
}

// Checked reports whether the first element matching selector is checked.
func (p *Page) Checked(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.doc.Find(selector).First().Attr("checked")
	return ok
}

// HTML renders the current document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Html()
}

// Evaluate implements engine.PageHandle.
func (p *Page) Evaluate(ctx context.Context, c engine.Criteria) (engine.MatchResult, error) {
	p.mu.Lock()
	hook := p.onEvaluate
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	if err := ctx.Err(); err != nil {
		return engine.MatchResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluations++

	var (
		res engine.MatchResult
		err error
	)
	switch c.Kind {
	case engine.KindTextContains:
		res = p.matchText(c.Needle)
	case engine.KindAttributeEquals:
		res = p.matchAttribute(c.Attribute, c.Value)
	case engine.KindSelectorIndex:
		res, err = p.matchIndex(c.Selector, c.Index)
	case engine.KindTextContainsCheckbox:
		res = p.matchCheckbox(c.Needle)
	default:
		err = fmt.Errorf("%w: unsupported kind %s", engine.ErrInvalidPredicate, c.Kind)
	}
	return res, err
}

func (p *Page) body() *html.Node {
	if n := p.doc.Find("body").Nodes; len(n) > 0 {
		return n[0]
	}
	return p.doc.Get(0)
}

func (p *Page) matchText(needle string) engine.MatchResult {
	for _, n := range p.doc.Find(engine.ClickableSelector).Nodes {
		if isVisible(n) && strings.Contains(engine.Normalize(visibleText(n)), needle) {
			return engine.MatchResult{Candidate: p.candidate(n, true)}
		}
	}

	var res engine.MatchResult
	preorder(p.body(), func(n *html.Node) bool {
		if !isVisible(n) || !strings.Contains(engine.Normalize(visibleText(n)), needle) {
			return true
		}
		if target := clickableAncestor(n); target != nil {
			res.Candidate = p.candidate(target, true)
		} else {
			res.Candidate = p.candidate(n, false)
		}
		return false
	})
	return res
}

func (p *Page) matchAttribute(name, value string) engine.MatchResult {
	var res engine.MatchResult
	preorder(p.doc.Get(0), func(n *html.Node) bool {
		if v, ok := attr(n, name); !ok || v != value || !isVisible(n) {
			return true
		}
		res.Candidate = p.candidate(n, isInteractive(n))
		return false
	})
	return res
}

func (p *Page) matchIndex(selector string, index int) (engine.MatchResult, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return engine.MatchResult{}, fmt.Errorf("%w: %v", engine.ErrInvalidPredicate, err)
	}
	nodes := sel.MatchAll(p.doc.Get(0))
	res := engine.MatchResult{Count: len(nodes)}
	if index >= 1 && len(nodes) >= index {
		n := nodes[index-1]
		res.Candidate = p.candidate(n, isInteractive(n))
	}
	return res, nil
}

func (p *Page) matchCheckbox(needle string) engine.MatchResult {
	var res engine.MatchResult
	preorder(p.body(), func(n *html.Node) bool {
		if !isVisible(n) || !strings.Contains(engine.Normalize(visibleText(n)), needle) {
			return true
		}
		res.TextMatched = true
		var box *html.Node
		if label := closest(n, "label"); label != nil {
			box = firstCheckbox(label)
		}
		if box == nil {
			box = firstCheckbox(n)
		}
		if box == nil {
			return true
		}
		res.Candidate = p.candidate(box, true)
		return false
	})
	return res
}

// candidate registers n and describes it. Callers hold p.mu.
func (p *Page) candidate(n *html.Node, interactive bool) *engine.Candidate {
	ref, ok := p.byNode[n]
	if !ok {
		p.seq++
		ref = engine.NodeRef(fmt.Sprintf("snap-%d", p.seq))
		p.refs[ref] = n
		p.byNode[n] = ref
	}
	return &engine.Candidate{
		Ref:         ref,
		Tag:         strings.ToUpper(n.Data),
		Text:        strings.Join(strings.Fields(visibleText(n)), " "),
		Path:        elementPath(n),
		Interactive: interactive,
	}
}

// resolve returns the attached node behind ref. Callers hold p.mu.
func (p *Page) resolve(ref engine.NodeRef) (*html.Node, error) {
	n, ok := p.refs[ref]
	if !ok {
		return nil, fmt.Errorf("unknown node reference %q", ref)
	}
	root := p.doc.Get(0)
	for a := n; a != nil; a = a.Parent {
		if a == root {
			return n, nil
		}
	}
	return nil, fmt.Errorf("node %q is detached from the document", ref)
}

// ScrollIntoView implements engine.PageHandle.
func (p *Page) ScrollIntoView(ctx context.Context, ref engine.NodeRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.resolve(ref)
	if err != nil {
		return err
	}
	p.events = append(p.events, Event{Kind: EventScroll, Ref: ref, Detail: elementPath(n)})
	return nil
}

// NativeClick implements engine.PageHandle. Like a pointer click it needs a
// visible element.
func (p *Page) NativeClick(ctx context.Context, ref engine.NodeRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNative != nil {
		return p.failNative
	}
	n, err := p.resolve(ref)
	if err != nil {
		return err
	}
	if !isVisible(n) {
		return fmt.Errorf("node %q is not visible or not an element", ref)
	}
	p.activate(n, ref, EventNativeClick)
	return nil
}

// SyntheticClick implements engine.PageHandle.
func (p *Page) SyntheticClick(ctx context.Context, ref engine.NodeRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSynthetic != nil {
		return p.failSynthetic
	}
	n, err := p.resolve(ref)
	if err != nil {
		return err
	}
	p.activate(n, ref, EventSyntheticClick)
	return nil
}

// activate applies the default action of a click. Callers hold p.mu.
func (p *Page) activate(n *html.Node, ref engine.NodeRef, kind EventKind) {
	p.events = append(p.events, Event{Kind: kind, Ref: ref, Detail: elementPath(n)})
	p.logger.Debug("Applied click.", zap.String("kind", string(kind)), zap.String("path", elementPath(n)))
	if n.Data != "input" {
		return
	}
	t, _ := attr(n, "type")
	switch strings.ToLower(t) {
	case "checkbox":
		if _, on := attr(n, "checked"); on {
			removeAttr(n, "checked")
		} else {
			setAttr(n, "checked", "")
		}
	case "radio":
		setAttr(n, "checked", "")
	}
}

// SendKeys implements engine.PageHandle.
func (p *Page) SendKeys(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Kind: EventKeys, Detail: text})
	return nil
}

// PressKey implements engine.PageHandle.
func (p *Page) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Kind: EventKey, Detail: key})
	return nil
}

// Release implements engine.PageHandle.
func (p *Page) Release(ctx context.Context, ref engine.NodeRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.refs[ref]
	if !ok {
		return nil
	}
	delete(p.refs, ref)
	delete(p.byNode, n)
	p.events = append(p.events, Event{Kind: EventRelease, Ref: ref})
	return nil
}
