// File: internal/engine/criteria.go
package engine

import (
	"fmt"
	"strings"
)

// Kind identifies which search strategy a Criteria describes.
type Kind int

const (
	// KindTextContains matches elements whose visible text contains a needle.
	KindTextContains Kind = iota + 1
	// KindAttributeEquals matches the first visible element with an exact attribute value.
	KindAttributeEquals
	// KindSelectorIndex matches the n-th element returned by a CSS selector.
	KindSelectorIndex
	// KindTextContainsCheckbox matches the checkbox associated with a text match.
	KindTextContainsCheckbox
)

func (k Kind) String() string {
	switch k {
	case KindTextContains:
		return "text"
	case KindAttributeEquals:
		return "attribute"
	case KindSelectorIndex:
		return "index"
	case KindTextContainsCheckbox:
		return "checkbox"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ClickableSelector lists the elements scanned first by a text search.
const ClickableSelector = `a, button, [role="button"], [onclick]`

// InteractiveRoles are the ARIA roles that make an ancestor a click target.
var InteractiveRoles = []string{
	"button",
	"link",
	"menuitem",
	"menuitemcheckbox",
	"menuitemradio",
	"option",
	"tab",
	"switch",
	"checkbox",
	"radio",
	"treeitem",
}

// Criteria is the predicate descriptor handed to a PageHandle. Needles are
// stored normalized, so evaluators compare them against normalized element
// text without further processing.
type Criteria struct {
	Kind Kind `json:"kind"`
	// Needle is the normalized text searched for by the text kinds.
	Needle string `json:"needle,omitempty"`
	// Attribute and Value drive KindAttributeEquals. Value is compared verbatim.
	Attribute string `json:"attribute,omitempty"`
	Value     string `json:"value,omitempty"`
	// Selector and Index drive KindSelectorIndex. Index is 1-based.
	Selector string `json:"selector,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// TextContains builds a text search. The needle is normalized.
func TextContains(needle string) Criteria {
	return Criteria{Kind: KindTextContains, Needle: Normalize(needle)}
}

// AttributeEquals builds an exact attribute match.
func AttributeEquals(name, value string) Criteria {
	return Criteria{Kind: KindAttributeEquals, Attribute: name, Value: value}
}

// SelectorIndex builds a positional selector match. Indexes below 1 are clamped to 1.
func SelectorIndex(selector string, index int) Criteria {
	if index < 1 {
		index = 1
	}
	return Criteria{Kind: KindSelectorIndex, Selector: selector, Index: index}
}

// TextContainsCheckbox builds a search for the checkbox labelled by a text.
func TextContainsCheckbox(needle string) Criteria {
	return Criteria{Kind: KindTextContainsCheckbox, Needle: Normalize(needle)}
}

// NameSelector returns the CSS selector matching elements by their name attribute.
func NameSelector(name string) string {
	return `[name="` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"]`
}

// Validate reports descriptors that no page could evaluate.
func (c Criteria) Validate() error {
	switch c.Kind {
	case KindTextContains, KindTextContainsCheckbox:
		return nil
	case KindAttributeEquals:
		if c.Attribute == "" {
			return fmt.Errorf("%w: attribute name is empty", ErrInvalidPredicate)
		}
	case KindSelectorIndex:
		if strings.TrimSpace(c.Selector) == "" {
			return fmt.Errorf("%w: selector is empty", ErrInvalidPredicate)
		}
		if c.Index < 1 {
			return fmt.Errorf("%w: index %d is below 1", ErrInvalidPredicate, c.Index)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidPredicate, int(c.Kind))
	}
	return nil
}

func (c Criteria) String() string {
	switch c.Kind {
	case KindTextContains, KindTextContainsCheckbox:
		return fmt.Sprintf("%s %q", c.Kind, c.Needle)
	case KindAttributeEquals:
		return fmt.Sprintf("%s [%s=%q]", c.Kind, c.Attribute, c.Value)
	case KindSelectorIndex:
		return fmt.Sprintf("%s %s #%d", c.Kind, c.Selector, c.Index)
	default:
		return c.Kind.String()
	}
}
