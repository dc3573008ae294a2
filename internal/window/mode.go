package window

import (
	"fmt"
	"strings"
	"time"
)

// Mode names a set of windows of the target year.
type Mode string

const (
	Q1       Mode = "q1"
	Q2       Mode = "q2"
	Q3       Mode = "q3"
	Q4       Mode = "q4"
	FullYear Mode = "full_year"
	Monthly  Mode = "monthly"
	Month    Mode = "month"
)

// Modes lists all modes in the order they are documented.
var Modes = []Mode{Q1, Q2, Q3, Q4, FullYear, Monthly, Month}

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	names := make([]string, len(Modes))
	for i, known := range Modes {
		names[i] = string(known)
	}
	return "", fmt.Errorf("invalid mode '%s', valid modes: %s", s, strings.Join(names, ", "))
}

// Windows returns the windows of mode in year. month is only used by Month
// and has to be between 1 and 12.
func Windows(mode Mode, year, month int) ([]DateWindow, error) {
	switch mode {
	case Q1, Q2, Q3, Q4:
		q := int(mode[1] - '0')
		return []DateWindow{quarter(year, q)}, nil
	case FullYear:
		ws := make([]DateWindow, 0, 4)
		for q := 1; q <= 4; q++ {
			ws = append(ws, quarter(year, q))
		}
		return ws, nil
	case Monthly:
		ws := make([]DateWindow, 0, 12)
		for m := 1; m <= 12; m++ {
			ws = append(ws, months(year, time.Month(m), time.Month(m)))
		}
		return ws, nil
	case Month:
		if month < 1 || month > 12 {
			return nil, fmt.Errorf("month %d out of range, expected 1 to 12", month)
		}
		return []DateWindow{months(year, time.Month(month), time.Month(month))}, nil
	}
	return nil, fmt.Errorf("unknown mode '%s'", mode)
}

func quarter(year, q int) DateWindow {
	first := time.Month(3*(q-1) + 1)
	return months(year, first, first+2)
}

// months spans from the first day of from to the last day of to.
func months(year int, from, to time.Month) DateWindow {
	return DateWindow{
		Start: time.Date(year, from, 1, 0, 0, 0, 0, time.UTC),
		// day 0 of the following month is the last day of to
		End: time.Date(year, to+1, 0, 0, 0, 0, 0, time.UTC),
	}
}
