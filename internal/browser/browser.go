// Package browser defines the capabilities the scraper needs from a live
// browser session and the errors a session reports.
//
// Implementations live in the subpackages cdp (a running Chrome driven over
// the DevTools protocol) and htmldoc (an in-memory document used for replay
// and tests).
package browser

import (
	"context"
	"errors"
)

// SelectorKind tells a session how to interpret a selector expression.
type SelectorKind string

const (
	CSS   SelectorKind = "css"
	XPath SelectorKind = "xpath"
)

// Selector is a selection expression together with the mechanism used to
// apply it.
type Selector struct {
	Kind SelectorKind
	Expr string
}

func (s Selector) String() string {
	return string(s.Kind) + ":" + s.Expr
}

// ByCSS returns a CSS selector.
func ByCSS(expr string) Selector {
	return Selector{Kind: CSS, Expr: expr}
}

// ByXPath returns an XPath selector.
func ByXPath(expr string) Selector {
	return Selector{Kind: XPath, Expr: expr}
}

// Key is a special key that can be pressed on a focused element.
type Key string

const (
	KeySelectAll Key = "select-all" // ctrl+a
	KeyDelete    Key = "delete"
	KeyTab       Key = "tab"
)

// Session is an attached, navigated browser tab.
type Session interface {
	CurrentURL(ctx context.Context) (string, error)
	// ExecuteScript evaluates js in the page and stores the result in res
	// (which may be nil if the result is not needed).
	ExecuteScript(ctx context.Context, js string, res any) error
	FindElements(ctx context.Context, sel Selector) ([]Element, error)
	// HTML returns the outer HTML of the current document.
	HTML(ctx context.Context) (string, error)
}

// Element is a handle to a live element. A handle is only valid until the
// next mutation of the document; operations on a detached element return
// ErrStale.
type Element interface {
	Click(ctx context.Context) error
	// JSClick dispatches a click from script, bypassing hit testing.
	JSClick(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Key) error
	IsDisplayed(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
	// Attribute returns the value of the named attribute and whether it is
	// present at all.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	FindElements(ctx context.Context, sel Selector) ([]Element, error)
}

var (
	// ErrStale is returned when an element handle outlived the document
	// node it pointed to.
	ErrStale = errors.New("stale element reference")
	// ErrNoSuchElement is returned when an element that was expected to
	// exist during an interaction is absent.
	ErrNoSuchElement = errors.New("no such element")
	// ErrClickIntercepted is returned when a click would land on another
	// element overlapping the target.
	ErrClickIntercepted = errors.New("element click intercepted")
	// ErrConnection is returned when the session cannot be attached or
	// confirmed.
	ErrConnection = errors.New("browser connection failed")
)

// IsTransient reports whether err is expected to go away when the
// interaction is repeated.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStale) || errors.Is(err, ErrNoSuchElement)
}
