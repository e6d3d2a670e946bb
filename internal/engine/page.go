// File: internal/engine/page.go
package engine

import "context"

// NodeRef is an opaque reference to an element inside a live document. It is
// only meaningful to the PageHandle that produced it.
type NodeRef string

// Candidate is an element selected by a predicate evaluation, along with the
// diagnostics logged when it is found.
type Candidate struct {
	Ref NodeRef `json:"ref"`
	// Tag is the upper-case tag name.
	Tag string `json:"tag"`
	// Text is the element's whitespace-collapsed visible text.
	Text string `json:"text"`
	// Path is the ancestry of the element, e.g. "html>body>div#main>button".
	Path string `json:"path"`
	// Interactive is false when a text search fell back to a plain node.
	Interactive bool `json:"interactive"`
}

// MatchResult is the outcome of evaluating a predicate once.
type MatchResult struct {
	// Candidate is nil when nothing matched.
	Candidate *Candidate `json:"candidate"`
	// TextMatched is set by checkbox searches when a visible node carried the
	// needle, whether or not a checkbox was associated with it.
	TextMatched bool `json:"textMatched"`
	// Count is the number of elements a selector currently matches.
	Count int `json:"count"`
}

// PageHandle is the capability the engine needs over one live document.
// Implementations evaluate Criteria against the current state of the
// document on every call.
type PageHandle interface {
	// Evaluate runs the predicate once. It returns a MatchResult with a nil
	// Candidate when nothing matches, and an error wrapping
	// ErrInvalidPredicate when the descriptor can never be evaluated.
	Evaluate(ctx context.Context, c Criteria) (MatchResult, error)
	// ScrollIntoView centers the referenced element in the viewport.
	ScrollIntoView(ctx context.Context, ref NodeRef) error
	// NativeClick dispatches a trusted pointer click at the element's position.
	NativeClick(ctx context.Context, ref NodeRef) error
	// SyntheticClick invokes the element's own click() inside the document.
	SyntheticClick(ctx context.Context, ref NodeRef) error
	// SendKeys types text into the focused element.
	SendKeys(ctx context.Context, text string) error
	// PressKey presses a single named key such as "Enter" or "Backspace".
	PressKey(ctx context.Context, key string) error
	// Release drops any bookkeeping held for ref.
	Release(ctx context.Context, ref NodeRef) error
}
