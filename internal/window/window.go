// Package window defines the date windows a scrape is split into and the
// names of the files their results are written to.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Layout is the textual form of a date as the portal expects it.
const Layout = "01/02/2006"

// ErrInverted is returned for windows that end before they start.
var ErrInverted = errors.New("window ends before it starts")

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// New returns the window from start to end. Times of day are dropped.
func New(start, end time.Time) (DateWindow, error) {
	w := DateWindow{Start: day(start), End: day(end)}
	if w.End.Before(w.Start) {
		return DateWindow{}, fmt.Errorf("%w: %s to %s", ErrInverted, w.StartText(), w.EndText())
	}
	return w, nil
}

// Parse returns the window between two MM/DD/YYYY dates.
func Parse(start, end string) (DateWindow, error) {
	s, err := time.Parse(Layout, start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid start date '%s': %w", start, err)
	}
	e, err := time.Parse(Layout, end)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid end date '%s': %w", end, err)
	}
	return New(s, e)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w DateWindow) StartText() string { return w.Start.Format(Layout) }

func (w DateWindow) EndText() string { return w.End.Format(Layout) }

func (w DateWindow) String() string {
	return w.StartText() + " to " + w.EndText()
}

var quarters = map[[2]time.Month]int{
	{time.January, time.March}:    1,
	{time.April, time.June}:       2,
	{time.July, time.September}:   3,
	{time.October, time.December}: 4,
}

// Suffix encodes the shape of the window for use in file names: a single
// month gives _{year}M{mm}, a calendar quarter _{year}Q{n}, anything else
// _{year}_{mm}to{mm}. The year is the year of the start date. Windows that
// span a year boundary are never treated as a month or a quarter.
func (w DateWindow) Suffix() string {
	year := w.Start.Year()
	sm, em := w.Start.Month(), w.End.Month()
	if year == w.End.Year() {
		if sm == em {
			return fmt.Sprintf("_%dM%02d", year, sm)
		}
		if q, ok := quarters[[2]time.Month{sm, em}]; ok {
			return fmt.Sprintf("_%dQ%d", year, q)
		}
	}
	return fmt.Sprintf("_%d_%02dto%02d", year, sm, em)
}

// Label is a human readable description of the window in the given locale,
// eg. "1 October 2025 - 31 December 2025" or "1. Oktober 2025 - ...".
func (w DateWindow) Label(locale string) string {
	l := monday.Locale(locale)
	if locale == "" {
		l = monday.LocaleEnUS
	}
	layout := "2 January 2006"
	if strings.HasPrefix(locale, "de_") {
		layout = "2. January 2006"
	}
	return monday.Format(w.Start, layout, l) + " - " + monday.Format(w.End, layout, l)
}

// OutputFilename returns the name of the result file of a window, made
// unique by the time of the run: {prefix}{suffix}_{YYYYmmdd_HHMM}.csv.
func OutputFilename(prefix, suffix string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s.csv", prefix, suffix, now.Format("20060102_1504"))
}
