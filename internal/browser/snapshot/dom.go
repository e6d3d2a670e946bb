// File: internal/browser/snapshot/dom.go
package snapshot

import (
	"strings"

	"github.com/xkilldash9x/puppetcore/internal/engine"
	"golang.org/x/net/html"
)

// nonRendered lists elements that never produce a box.
var nonRendered = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"meta":     true,
	"link":     true,
	"title":    true,
	"base":     true,
}

// blockTags separate their text from their siblings in innerText.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true, "br": true, "option": true,
}

// attr returns the value of the named attribute and whether it is present.
func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// inlineStyle parses the style attribute into lower-cased declarations.
func inlineStyle(n *html.Node) map[string]string {
	raw, ok := attr(n, "style")
	if !ok {
		return nil
	}
	decls := make(map[string]string)
	for _, d := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(d, ":")
		if !found {
			continue
		}
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		decls[strings.ToLower(strings.TrimSpace(prop))] = strings.ToLower(val)
	}
	return decls
}

// collapsesBox reports whether n or its subtree is removed from layout.
func collapsesBox(n *html.Node) bool {
	if nonRendered[n.Data] {
		return true
	}
	if _, hidden := attr(n, "hidden"); hidden {
		return true
	}
	if n.Data == "input" {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	return inlineStyle(n)["display"] == "none"
}

// isZeroLength matches CSS lengths that produce an empty box.
func isZeroLength(v string) bool {
	switch strings.TrimSpace(v) {
	case "0", "0px", "0em", "0rem", "0%":
		return true
	}
	return false
}

// isVisible approximates the live visibility test from markup alone: an
// element is visible unless an ancestor removes it from layout, the nearest
// declared visibility is hidden, or its own opacity or box size is zero.
func isVisible(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	style := inlineStyle(n)
	if style["opacity"] == "0" || isZeroLength(style["width"]) || isZeroLength(style["height"]) {
		return false
	}

	visibilityDecided := false
	for a := n; a != nil && a.Type == html.ElementNode; a = a.Parent {
		if collapsesBox(a) {
			return false
		}
		if visibilityDecided {
			continue
		}
		switch inlineStyle(a)["visibility"] {
		case "hidden", "collapse":
			return false
		case "visible":
			visibilityDecided = true
		}
	}
	return true
}

// innerText renders the text a user would see inside n.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			return
		case html.ElementNode:
			if c != n && (collapsesBox(c) || !visibleStyle(c)) {
				return
			}
			if blockTags[c.Data] {
				b.WriteByte(' ')
				defer b.WriteByte(' ')
			}
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// visibleStyle is the inline-style part of isVisible for a single node.
func visibleStyle(n *html.Node) bool {
	v := inlineStyle(n)["visibility"]
	return v != "hidden" && v != "collapse"
}

// textContent concatenates every descendant text node.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// visibleText mirrors `el.innerText || el.textContent`.
func visibleText(n *html.Node) string {
	if t := innerText(n); strings.TrimSpace(t) != "" {
		return t
	}
	return textContent(n)
}

// isInteractive reports whether n is a link, a button, carries an onclick
// handler or has an interactive ARIA role.
func isInteractive(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data == "a" || n.Data == "button" {
		return true
	}
	if _, ok := attr(n, "onclick"); ok {
		return true
	}
	role, _ := attr(n, "role")
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range engine.InteractiveRoles {
		if role == r {
			return true
		}
	}
	return false
}

// clickableAncestor returns the nearest interactive element at or above n.
func clickableAncestor(n *html.Node) *html.Node {
	for a := n; a != nil && a.Type == html.ElementNode; a = a.Parent {
		if isInteractive(a) {
			return a
		}
	}
	return nil
}

// closest returns the nearest element at or above n with the given tag.
func closest(n *html.Node, tag string) *html.Node {
	for a := n; a != nil && a.Type == html.ElementNode; a = a.Parent {
		if a.Data == tag {
			return a
		}
	}
	return nil
}

// firstCheckbox returns the first checkbox input strictly inside n.
func firstCheckbox(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if isCheckbox(c) {
			return c
		}
		if found := firstCheckbox(c); found != nil {
			return found
		}
	}
	return nil
}

func isCheckbox(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "input" {
		return false
	}
	t, _ := attr(n, "type")
	return strings.EqualFold(t, "checkbox")
}

// elementPath renders the ancestry of n as "html>body>div#main>button".
func elementPath(n *html.Node) string {
	var parts []string
	for a := n; a != nil && a.Type == html.ElementNode; a = a.Parent {
		part := a.Data
		if id, ok := attr(a, "id"); ok && id != "" {
			part += "#" + id
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ">")
}

// preorder calls fn for every element below root in document order until fn
// returns false. root itself is not visited.
func preorder(root *html.Node, fn func(*html.Node) bool) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !fn(c) {
			return false
		}
		if !preorder(c, fn) {
			return false
		}
	}
	return true
}
