// File: internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoPageBound is returned immediately when an operation runs before a page is bound.
	ErrNoPageBound = errors.New("no page bound to session")
	// ErrElementNotFound is returned when no element satisfied the criteria before the timeout.
	ErrElementNotFound = errors.New("element not found")
	// ErrCheckboxNotFound is returned when text matched but no associated checkbox appeared.
	ErrCheckboxNotFound = errors.New("checkbox not found")
	// ErrInteractionFailed is returned when every click strategy failed on a found element.
	ErrInteractionFailed = errors.New("interaction failed")
	// ErrInvalidPredicate is returned when criteria can never be evaluated, such as a malformed selector.
	ErrInvalidPredicate = errors.New("invalid predicate")
)

// OperationError describes a failed engine operation.
type OperationError struct {
	Op       string
	Criteria Criteria
	Timeout  time.Duration
	// Candidate is set when an element was found before the failure.
	Candidate *Candidate
	Err       error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s)", e.Op, e.Criteria)
	if e.Timeout > 0 && (errors.Is(e.Err, ErrElementNotFound) || errors.Is(e.Err, ErrCheckboxNotFound)) {
		fmt.Fprintf(&b, " after %s", e.Timeout)
	}
	if e.Candidate != nil {
		fmt.Fprintf(&b, " on <%s> at %s", e.Candidate.Tag, e.Candidate.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Err }

// ClickAttempt records one failed click strategy.
type ClickAttempt struct {
	Path ClickPath
	Err  error
}

// ClickError is produced when every click strategy failed. The last attempt
// is the primary failure, earlier ones are attached.
type ClickError struct {
	Attempts []ClickAttempt
}

// Primary returns the error of the last strategy tried.
func (e *ClickError) Primary() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Attempt returns the error recorded for a click path, or nil.
func (e *ClickError) Attempt(path ClickPath) error {
	for _, a := range e.Attempts {
		if a.Path == path {
			return a.Err
		}
	}
	return nil
}

func (e *ClickError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrInteractionFailed.Error()
	}
	last := e.Attempts[len(e.Attempts)-1]
	msg := fmt.Sprintf("%s: %s click: %v", ErrInteractionFailed, last.Path, last.Err)
	for i := len(e.Attempts) - 2; i >= 0; i-- {
		msg += fmt.Sprintf(" (after %s click: %v)", e.Attempts[i].Path, e.Attempts[i].Err)
	}
	return msg
}

func (e *ClickError) Unwrap() []error {
	errs := []error{ErrInteractionFailed}
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		errs = append(errs, e.Attempts[i].Err)
	}
	return errs
}
