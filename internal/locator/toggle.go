package locator

import (
	"context"
	"strings"

	"github.com/jakopako/extraduty/internal/browser"
)

// ToggleResult is the resolution of a boolean-state role together with the
// inferred state of the element.
type ToggleResult struct {
	Result
	Checked bool
}

// ResolveToggle resolves s and reads the checked state of the element.
func (r *Resolver) ResolveToggle(ctx context.Context, s Strategy) (ToggleResult, error) {
	res := r.Resolve(ctx, s)
	if res.Status != Found {
		return ToggleResult{Result: res}, res.Err()
	}
	checked, err := InferChecked(ctx, res.Element)
	if err != nil {
		return ToggleResult{Result: res}, err
	}
	return ToggleResult{Result: res, Checked: checked}, nil
}

// InferChecked derives the on/off state of a toggle element. The signals
// are consulted in order and the first one that applies decides:
//
//  1. native checked state of checkbox and radio inputs
//  2. an explicit checked attribute
//  3. aria-checked
//  4. a class containing "checked" (but not "unchecked")
func InferChecked(ctx context.Context, el browser.Element) (bool, error) {
	t, _, err := el.Attribute(ctx, "type")
	if err != nil {
		return false, err
	}
	if t = strings.ToLower(t); t == "checkbox" || t == "radio" {
		return el.IsSelected(ctx)
	}
	v, ok, err := el.Attribute(ctx, "checked")
	if err != nil {
		return false, err
	}
	if ok {
		return !strings.EqualFold(v, "false"), nil
	}
	v, ok, err = el.Attribute(ctx, "aria-checked")
	if err != nil {
		return false, err
	}
	if ok {
		return strings.EqualFold(v, "true"), nil
	}
	class, _, err := el.Attribute(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(strings.ToLower(class)) {
		if strings.Contains(c, "checked") && !strings.Contains(c, "unchecked") {
			return true, nil
		}
	}
	return false, nil
}
