package htmldoc

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jakopako/extraduty/internal/browser"
	"golang.org/x/net/html"
)

// boolean attributes of form controls are reported as "true" when present,
// the way WebDriver's getAttribute does.
var booleanAttrs = map[string]bool{
	"checked":  true,
	"selected": true,
	"disabled": true,
	"readonly": true,
}

var formControls = map[string]bool{
	"input":    true,
	"option":   true,
	"button":   true,
	"select":   true,
	"textarea": true,
}

func isBooleanAttr(n *html.Node, name string) bool {
	name = strings.ToLower(name)
	return name == "hidden" || (formControls[n.Data] && booleanAttrs[name])
}

type element struct {
	doc  *Document
	node *html.Node
}

var _ browser.Element = (*element)(nil)

func (e *element) live() error {
	if !e.doc.attached(e.node) {
		return browser.ErrStale
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	if !displayed(e.node) {
		return browser.ErrClickIntercepted
	}
	e.activate()
	return nil
}

func (e *element) JSClick(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	e.activate()
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.live()
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := e.live(); err != nil {
		return err
	}
	e.focus()
	value := ""
	if !e.doc.selectAll {
		value, _ = attr(e.node, "value")
	}
	e.doc.selectAll = false
	setAttr(e.node, "value", value+text)
	return nil
}

func (e *element) PressKey(ctx context.Context, key browser.Key) error {
	if err := e.live(); err != nil {
		return err
	}
	e.focus()
	switch key {
	case browser.KeySelectAll:
		e.doc.selectAll = true
	case browser.KeyDelete:
		value, _ := attr(e.node, "value")
		if e.doc.selectAll {
			value = ""
		} else if len(value) > 0 {
			value = value[:len(value)-1]
		}
		e.doc.selectAll = false
		setAttr(e.node, "value", value)
	case browser.KeyTab:
		e.doc.focused = nil
		e.doc.selectAll = false
		for _, h := range e.doc.onCommit {
			h(e.doc, e.node)
		}
	}
	return nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	return displayed(e.node), nil
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	switch e.node.Data {
	case "input":
		t, _ := attr(e.node, "type")
		if t == "checkbox" || t == "radio" {
			_, ok := attr(e.node, "checked")
			return ok, nil
		}
	case "option":
		_, ok := attr(e.node, "selected")
		return ok, nil
	}
	return false, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	v, ok := attr(e.node, name)
	if ok && isBooleanAttr(e.node, name) {
		v = "true"
	}
	return v, ok, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	if !displayed(e.node) {
		return "", nil
	}
	t := goquery.NewDocumentFromNode(e.node).Text()
	return strings.Join(strings.Fields(t), " "), nil
}

func (e *element) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	nodes, err := query(e.node, sel)
	if err != nil {
		return nil, err
	}
	// the context node itself is not a descendant
	filtered := nodes[:0]
	for _, n := range nodes {
		if n != e.node {
			filtered = append(filtered, n)
		}
	}
	return e.doc.wrap(filtered), nil
}

func (e *element) focus() {
	if e.doc.focused != e.node {
		e.doc.selectAll = false
	}
	e.doc.focused = e.node
}

// activate applies the default action of a click on the element and then
// runs the click hooks.
func (e *element) activate() {
	e.focus()
	target := e.node
	if target.Data == "label" {
		if c := labelControl(e.doc, target); c != nil {
			target = c
		}
	}
	toggle(target)
	for _, h := range e.doc.onClick {
		h(e.doc, e.node)
	}
}

func toggle(n *html.Node) {
	if n.Data == "input" {
		switch t, _ := attr(n, "type"); t {
		case "checkbox":
			if _, ok := attr(n, "checked"); ok {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "")
			}
			return
		case "radio":
			setAttr(n, "checked", "")
			return
		}
	}
	for _, a := range []string{"aria-checked", "aria-pressed"} {
		if v, ok := attr(n, a); ok {
			if v == "true" {
				setAttr(n, a, "false")
			} else {
				setAttr(n, a, "true")
			}
			return
		}
	}
	if role, _ := attr(n, "role"); role == "switch" || role == "checkbox" {
		setAttr(n, "aria-checked", "true")
	}
}

// labelControl returns the form control a label is bound to.
func labelControl(d *Document, label *html.Node) *html.Node {
	if id, ok := attr(label, "for"); ok && id != "" {
		if nodes := d.Find("#" + id).Nodes; len(nodes) > 0 {
			return nodes[0]
		}
	}
	if nodes := goquery.NewDocumentFromNode(label).Find("input").Nodes; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// displayed approximates the rendering rules a browser applies: an element
// is hidden if it or one of its ancestors is hidden by attribute or inline
// style.
func displayed(n *html.Node) bool {
	if n.Data == "input" {
		if t, _ := attr(n, "type"); t == "hidden" {
			return false
		}
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		style, _ := attr(p, "style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
