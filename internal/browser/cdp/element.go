package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/jakopako/extraduty/internal/browser"
)

const (
	jsHitTest = `function() {
	const r = this.getBoundingClientRect();
	const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
	if (hit === null || hit === this || this.contains(hit)) {
		return true;
	}
	return !!(this.labels && Array.from(this.labels).some(l => l.contains(hit)));
}`
	jsClick          = `function() { this.click(); }`
	jsScrollIntoView = `function() { this.scrollIntoView({block: 'center'}); }`
	jsDisplayed      = `function() {
	const s = window.getComputedStyle(this);
	if (s.display === 'none' || s.visibility === 'hidden') {
		return false;
	}
	const r = this.getBoundingClientRect();
	return r.width > 0 || r.height > 0;
}`
	jsSelected = `function() { return !!(this.checked || this.selected); }`
	// boolean properties are reported as "true"/absent like WebDriver does
	jsAttribute = `function(n) {
	const p = this[n];
	if (typeof p === 'boolean') {
		return p ? 'true' : null;
	}
	return this.hasAttribute(n) ? this.getAttribute(n) : null;
}`
	jsText = `function() { return this.innerText || ''; }`
)

type element struct {
	s    *Session
	node *cdp.Node
}

var _ browser.Element = (*element)(nil)

func (e *element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, e.node, fn, res, args...)
	}))
}

func (e *element) Click(ctx context.Context) error {
	var reachable bool
	if err := e.call(ctx, jsHitTest, &reachable); err != nil {
		return err
	}
	if !reachable {
		return browser.ErrClickIntercepted
	}
	return e.s.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) JSClick(ctx context.Context) error {
	return e.call(ctx, jsClick, nil)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.call(ctx, jsScrollIntoView, nil)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *element) PressKey(ctx context.Context, key browser.Key) error {
	var action chromedp.Action
	switch key {
	case browser.KeySelectAll:
		action = chromedp.KeyEventNode(e.node, "a", chromedp.KeyModifiers(input.ModifierCtrl))
	case browser.KeyDelete:
		action = chromedp.KeyEventNode(e.node, kb.Delete)
	case browser.KeyTab:
		action = chromedp.KeyEventNode(e.node, kb.Tab)
	default:
		return fmt.Errorf("key '%s' not supported", key)
	}
	return e.s.run(ctx, action)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var v bool
	err := e.call(ctx, jsDisplayed, &v)
	return v, err
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	var v bool
	err := e.call(ctx, jsSelected, &v)
	return v, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var v *string
	if err := e.call(ctx, jsAttribute, &v, name); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var v string
	err := e.call(ctx, jsText, &v)
	return v, err
}

func (e *element) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if sel.Kind != browser.CSS {
		return nil, fmt.Errorf("element scoped queries only support css selectors, got %s", sel)
	}
	var nodes []*cdp.Node
	err := e.s.run(ctx, chromedp.Nodes(sel.Expr, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0), chromedp.FromNode(e.node)))
	if err != nil {
		return nil, err
	}
	return e.s.wrap(nodes), nil
}
