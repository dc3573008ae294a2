package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakopako/extraduty/internal/browser"
)

// The role catalogue of the Extra Duty portal. Different portal versions
// render the same controls with different markup, so every role lists the
// known variants from most to least specific.

var (
	// RowSelector finds the row-like children of a grid container.
	RowSelector = browser.ByCSS("tr, div[role='row']")
	// CellSelector finds the cell-like children of a row.
	CellSelector = browser.ByCSS("td, div[role='cell'], div[role='gridcell']")

	// LoadingIndicators are shown by the portal while the grid refreshes.
	LoadingIndicators = []browser.Selector{
		browser.ByCSS("div.loading"),
		browser.ByCSS("div.spinner"),
		browser.ByCSS("*[class*='loading']"),
		browser.ByCSS("*[class*='spinner']"),
		browser.ByCSS("div[role='progressbar']"),
	}
)

// DateField is one of the two inputs of the date range filter.
type DateField string

const (
	StartDate DateField = "start"
	EndDate   DateField = "end"
)

// DateInput returns the strategy for the start or end date input. Generic
// date inputs are positional: the first one is the start, the second the end.
func DateInput(f DateField) Strategy {
	name := string(f)
	title := strings.ToUpper(name[:1]) + name[1:]
	ordinal := 0
	if f == EndDate {
		ordinal = 1
	}
	return Strategy{
		Role: fmt.Sprintf("%s date input", name),
		Rules: []Rule{
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@placeholder, %s)]", literal(title)))},
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@placeholder, %s)]", literal(name)))},
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@aria-label, %s)]", literal(name)))},
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@aria-label, %s)]", literal(title+" Date")))},
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@name, %s)]", literal(name)))},
			{Selector: browser.ByXPath(fmt.Sprintf("//input[contains(@id, %s)]", literal(name)))},
			{Selector: browser.ByCSS("input[type='date']"), Ordinal: ordinal},
			{Selector: browser.ByCSS("input[type='text'][placeholder*='date' i]"), Ordinal: ordinal},
		},
	}
}

// Toggle returns the strategy for a toggle or checkbox identified by its
// label text.
func Toggle(label string) Strategy {
	l := literal(label)
	xp := func(format string) Rule {
		return Rule{Selector: browser.ByXPath(strings.ReplaceAll(format, "$L", l))}
	}
	return Strategy{
		Role: fmt.Sprintf("toggle '%s'", label),
		Rules: []Rule{
			// material style toggle with label
			xp("//label[contains(text(), $L)]//input"),
			xp("//label[contains(text(), $L)]/preceding-sibling::input"),
			xp("//label[contains(text(), $L)]/following-sibling::input"),
			// span label with adjacent input
			xp("//span[contains(text(), $L)]//ancestor::label//input"),
			xp("//span[contains(text(), $L)]//preceding::input[1]"),
			// checkbox with aria-label
			xp("//input[@aria-label=$L]"),
			xp("//input[contains(@aria-label, $L)]"),
			// button style toggle
			xp("//button[contains(text(), $L)]"),
			xp("//button[contains(@aria-label, $L)]"),
			// switch or slider
			xp("//*[contains(text(), $L)]//ancestor::*[contains(@class, 'switch') or contains(@class, 'toggle')]//input"),
			xp("//*[contains(text(), $L)]//ancestor::*[1]//*[@role='checkbox' or @role='switch']"),
		},
	}
}

// Grid returns the strategy for the job grid. identifier is the header text
// of the first column. Only containers with a header and at least one data
// row qualify.
func Grid(identifier string) Strategy {
	id := literal(identifier)
	return Strategy{
		Role: "job grid",
		Rules: []Rule{
			{Selector: browser.ByCSS("table.job-grid, table.data-grid, table.extra-duty-grid"), Accept: hasRows},
			{Selector: browser.ByXPath(fmt.Sprintf("//th[contains(text(), %s)]//ancestor::table", id)), Accept: hasRows},
			// a bare table is only taken if it is the only one with rows
			{Selector: browser.ByCSS("table"), Accept: hasRows, Exclusive: true},
			// div based grids (react, angular)
			{Selector: browser.ByCSS("div[role='grid']"), Accept: hasRows},
			{Selector: browser.ByCSS("div.ag-body-viewport"), Accept: hasRows},
			{Selector: browser.ByCSS("div[class*='grid'][class*='body']"), Accept: hasRows},
			// by header content
			{Selector: browser.ByXPath(fmt.Sprintf("//*[contains(text(), %s)]//ancestor::*[contains(@class, 'grid') or contains(@role, 'grid')]", id)), Accept: hasRows},
		},
	}
}

// hasRows accepts containers with at least two row-like children.
func hasRows(ctx context.Context, el browser.Element) (bool, error) {
	rows, err := el.FindElements(ctx, RowSelector)
	if err != nil {
		return false, err
	}
	return len(rows) >= 2, nil
}

// literal quotes s as an XPath string literal.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
