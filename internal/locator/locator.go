// Package locator resolves logical UI roles ("start date input", "toggle
// named X", "job grid") to live elements.
//
// A role is described by a Strategy: an ordered list of Rules, each a
// selector plus optional ordinal and acceptance predicate. Rules are tried
// strictly in order and the first rule that yields a visible, accepted
// element wins. Matches of different rules are never combined.
package locator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jakopako/extraduty/internal/browser"
)

// A Rule is one candidate way of finding the element of a role.
type Rule struct {
	Selector browser.Selector
	// Ordinal selects among the visible, accepted matches, for roles that
	// are positional ("second date input is the end date"). If there are
	// not enough matches the rule does not match.
	Ordinal int
	// Exclusive rules must produce a single candidate, more than one
	// yields an Ambiguous result.
	Exclusive bool
	// Accept is an optional predicate a visible match has to satisfy.
	Accept func(ctx context.Context, el browser.Element) (bool, error)
}

// Strategy is the ordered list of rules for one role.
type Strategy struct {
	Role  string
	Rules []Rule
}

// Status is the outcome of a resolution.
type Status int

const (
	NotFound Status = iota
	Found
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not found"
	}
}

// Result of resolving a role. Element is only set if Status is Found.
type Result struct {
	Status  Status
	Role    string
	Element browser.Element
	// Rule is the index of the rule that decided the result, -1 if no rule
	// matched.
	Rule int
	// Candidates is the number of competing matches of an Ambiguous result.
	Candidates int
	cause      error
}

// Err converts a result that is not Found into an error.
func (r Result) Err() error {
	if r.cause != nil {
		return r.cause
	}
	switch r.Status {
	case Found:
		return nil
	case Ambiguous:
		return &AmbiguousError{Role: r.Role, Candidates: r.Candidates}
	default:
		return &NotFoundError{Role: r.Role}
	}
}

// NotFoundError means no rule of a role's strategy matched. It unwraps to
// browser.ErrNoSuchElement so that a retried resolve-then-act unit treats it
// as transient.
type NotFoundError struct {
	Role string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s", e.Role)
}

func (e *NotFoundError) Unwrap() error {
	return browser.ErrNoSuchElement
}

// AmbiguousError means an exclusive rule matched several elements.
type AmbiguousError struct {
	Role       string
	Candidates int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s is ambiguous: %d candidates", e.Role, e.Candidates)
}

// Resolver resolves strategies against a session.
type Resolver struct {
	session browser.Session
	logger  *slog.Logger
}

func NewResolver(s browser.Session, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{session: s, logger: logger}
}

// Resolve returns the element of the first rule that has a usable match.
// A rule whose query fails (invalid selector, element detached while being
// inspected) counts as not matching.
func (r *Resolver) Resolve(ctx context.Context, s Strategy) Result {
	for i, rule := range s.Rules {
		if err := ctx.Err(); err != nil {
			return Result{Status: NotFound, Role: s.Role, Rule: -1, cause: err}
		}
		els, err := r.session.FindElements(ctx, rule.Selector)
		if err != nil {
			r.logger.Debug(fmt.Sprintf("rule %d for %s failed: %v", i, s.Role, err))
			continue
		}
		if len(els) == 0 {
			continue
		}
		need := rule.Ordinal + 1
		if rule.Exclusive {
			need = len(els)
		}
		cands := usable(ctx, els, rule.Accept, need)
		if rule.Exclusive && len(cands) > 1 {
			return Result{Status: Ambiguous, Role: s.Role, Rule: i, Candidates: len(cands)}
		}
		if len(cands) > rule.Ordinal {
			r.logger.Debug(fmt.Sprintf("found %s using rule %d: %s", s.Role, i, rule.Selector))
			return Result{Status: Found, Role: s.Role, Element: cands[rule.Ordinal], Rule: i}
		}
	}
	return Result{Status: NotFound, Role: s.Role, Rule: -1}
}

// usable filters els down to visible elements accepted by accept. It stops
// once need candidates are collected.
func usable(ctx context.Context, els []browser.Element, accept func(context.Context, browser.Element) (bool, error), need int) []browser.Element {
	var cands []browser.Element
	for _, el := range els {
		if len(cands) >= need {
			break
		}
		visible, err := el.IsDisplayed(ctx)
		if err != nil || !visible {
			continue
		}
		if accept != nil {
			ok, err := accept(ctx, el)
			if err != nil || !ok {
				continue
			}
		}
		cands = append(cands, el)
	}
	return cands
}
