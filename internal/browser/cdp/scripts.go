// internal/browser/cdp/scripts.go
package cdp

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/puppetcore/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// scriptEnv is passed to the evaluation script alongside the criteria.
type scriptEnv struct {
	Clickable string         `json:"clickable"`
	Roles     []string       `json:"roles"`
	Kinds     map[string]int `json:"kinds"`
}

func newScriptEnv() scriptEnv {
	return scriptEnv{
		Clickable: engine.ClickableSelector,
		Roles:     engine.InteractiveRoles,
		Kinds: map[string]int{
			"text":      int(engine.KindTextContains),
			"attribute": int(engine.KindAttributeEquals),
			"index":     int(engine.KindSelectorIndex),
			"checkbox":  int(engine.KindTextContainsCheckbox),
		},
	}
}

// evaluateJS resolves one Criteria against the live document without writing
// to it. It returns {node, meta}: node is the matched element or null, meta is
// {candidate, textMatched, count, error} and is read back by value.
const evaluateJS = `(function(c, env) {
	const out = {candidate: null, textMatched: false, count: 0, error: null};
	let node = null;

	function isVisible(el) {
		if (!el) return false;
		const style = window.getComputedStyle(el);
		if (style && (style.visibility === 'hidden' || style.display === 'none' || style.opacity === '0')) {
			return false;
		}
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}
	function textOf(el) {
		return el.innerText || el.textContent || '';
	}
	function norm(s) {
		return s.replace(/\s+/g, ' ').trim().toLowerCase();
	}
	function interactive(el) {
		if (el.tagName === 'A' || el.tagName === 'BUTTON' || el.hasAttribute('onclick')) return true;
		const role = (el.getAttribute('role') || '').trim().toLowerCase();
		return env.roles.indexOf(role) >= 0;
	}
	function clickableAncestor(el) {
		for (; el; el = el.parentElement) {
			if (interactive(el)) return el;
		}
		return null;
	}
	function path(el) {
		const parts = [];
		for (; el; el = el.parentElement) {
			parts.unshift(el.tagName.toLowerCase() + (el.id ? '#' + el.id : ''));
		}
		return parts.join('>');
	}
	function describe(el, isInteractive) {
		node = el;
		return {
			tag: el.tagName,
			text: textOf(el).replace(/\s+/g, ' ').trim(),
			path: path(el),
			interactive: isInteractive,
		};
	}
	function eachVisibleMatch(fn) {
		if (!document.body) return;
		const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
		let el;
		while ((el = walker.nextNode())) {
			if (!isVisible(el) || !norm(textOf(el)).includes(c.needle || '')) continue;
			if (fn(el)) return;
		}
	}

	try {
		switch (c.kind) {
		case env.kinds.text: {
			for (const el of document.querySelectorAll(env.clickable)) {
				if (isVisible(el) && norm(textOf(el)).includes(c.needle || '')) {
					out.candidate = describe(el, true);
					return out;
				}
			}
			eachVisibleMatch(function(el) {
				const target = clickableAncestor(el);
				out.candidate = target ? describe(target, true) : describe(el, false);
				return true;
			});
			break;
		}
		case env.kinds.attribute: {
			for (const el of document.querySelectorAll('*')) {
				if (el.getAttribute(c.attribute) === c.value && isVisible(el)) {
					out.candidate = describe(el, interactive(el));
					break;
				}
			}
			break;
		}
		case env.kinds.index: {
			const els = document.querySelectorAll(c.selector);
			out.count = els.length;
			if (els.length >= c.index) {
				const el = els[c.index - 1];
				out.candidate = describe(el, interactive(el));
			}
			break;
		}
		case env.kinds.checkbox: {
			eachVisibleMatch(function(el) {
				out.textMatched = true;
				let box = null;
				const label = el.closest('label');
				if (label) box = label.querySelector('input[type="checkbox"]');
				if (!box) box = el.querySelector('input[type="checkbox"]');
				if (!box) return false;
				out.candidate = describe(box, true);
				return true;
			});
			break;
		}
		default:
			out.error = {name: 'TypeError', message: 'unsupported criteria kind ' + c.kind};
		}
	} catch (e) {
		node = null;
		out.candidate = null;
		out.error = {name: e.name || 'Error', message: String(e.message || e)};
	}
	return {node: node, meta: out};
})(%s, %s)`

// metaFn and nodeFn split the object returned by evaluateJS.
const (
	metaFn = `function() { return this.meta; }`
	nodeFn = `function() { return this.node; }`
)

// scrollFn runs with the element as this and centers it in the viewport.
const scrollFn = `function() {
	if (!this.isConnected) return false;
	this.scrollIntoView({block: 'center', inline: 'center'});
	return true;
}`

// clickFn runs with the element as this and invokes its own click().
const clickFn = `function() {
	if (!this.isConnected) return false;
	this.click();
	return true;
}`

func evaluateScript(c engine.Criteria) string {
	return fmt.Sprintf(evaluateJS, jsonEncode(c), jsonEncode(newScriptEnv()))
}
