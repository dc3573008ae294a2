// Package htmldoc implements browser.Session on top of an in-memory HTML
// document. It understands enough of the interaction model (clicks on
// checkboxes, labels and switches, typing into inputs, focus changes) to
// replay a saved portal page offline.
//
// A Document is not safe for concurrent use.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/jakopako/extraduty/internal/browser"
	"golang.org/x/net/html"
)

// A Hook is called after an element was clicked or committed (focus moved
// away after editing). Hooks may mutate the document through Find.
type Hook func(d *Document, n *html.Node)

// Document is a mutable HTML document that acts like a browser tab.
type Document struct {
	url        string
	root       *html.Node
	readyState string

	focused   *html.Node
	selectAll bool

	onClick  []Hook
	onCommit []Hook
}

var _ browser.Session = (*Document)(nil)

// New parses the HTML read from r. url is what CurrentURL reports.
func New(url string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error while parsing html: %w", err)
	}
	return &Document{
		url:        url,
		root:       root,
		readyState: "complete",
	}, nil
}

// NewFromString parses s.
func NewFromString(url, s string) (*Document, error) {
	return New(url, strings.NewReader(s))
}

// Open parses the HTML file at path, e.g. a snapshot written during a debug
// run.
func Open(url, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return New(url, f)
}

// OnClick registers a hook that runs after every click.
func (d *Document) OnClick(h Hook) {
	d.onClick = append(d.onClick, h)
}

// OnCommit registers a hook that runs whenever an edited element loses
// focus.
func (d *Document) OnCommit(h Hook) {
	d.onCommit = append(d.onCommit, h)
}

// SetReadyState changes what document.readyState evaluates to.
func (d *Document) SetReadyState(s string) {
	d.readyState = s
}

// Find returns a goquery selection on the whole document. It is meant for
// hooks and tests that need to inspect or rewrite the page.
func (d *Document) Find(css string) *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Find(css)
}

func (d *Document) CurrentURL(ctx context.Context) (string, error) {
	return d.url, nil
}

func (d *Document) ExecuteScript(ctx context.Context, js string, res any) error {
	var v string
	switch strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(js), "return ")) {
	case browser.ScriptReadyState:
		v = d.readyState
	case browser.ScriptOuterHTML:
		h, err := d.HTML(ctx)
		if err != nil {
			return err
		}
		v = h
	default:
		return fmt.Errorf("script not supported by htmldoc: %q", js)
	}
	return assign(res, v)
}

func (d *Document) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	nodes, err := query(d.root, sel)
	if err != nil {
		return nil, err
	}
	return d.wrap(nodes), nil
}

func (d *Document) HTML(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (d *Document) wrap(nodes []*html.Node) []browser.Element {
	els := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{doc: d, node: n})
	}
	return els
}

// attached reports whether n is still part of the document tree.
func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func query(top *html.Node, sel browser.Selector) ([]*html.Node, error) {
	switch sel.Kind {
	case browser.CSS:
		return goquery.NewDocumentFromNode(top).Find(sel.Expr).Nodes, nil
	case browser.XPath:
		nodes, err := htmlquery.QueryAll(top, sel.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", sel.Expr, err)
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("selector kind '%s' not supported", sel.Kind)
	}
}

func assign(res any, v string) error {
	switch r := res.(type) {
	case nil:
		return nil
	case *string:
		*r = v
	case *any:
		*r = v
	default:
		return fmt.Errorf("cannot store script result in %T", res)
	}
	return nil
}
