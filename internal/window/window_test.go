package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	w, err := Parse("10/01/2025", "12/31/2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, "10/01/2025", w.StartText())
	assert.Equal(t, "12/31/2025", w.EndText())
	assert.Equal(t, "10/01/2025 to 12/31/2025", w.String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("2025-10-01", "12/31/2025")
	assert.Error(t, err)
	_, err = Parse("10/01/2025", "13/01/2025")
	assert.Error(t, err)
	_, err = Parse("12/31/2025", "10/01/2025")
	assert.True(t, errors.Is(err, ErrInverted))
}

func TestSingleDayWindow(t *testing.T) {
	w, err := Parse("03/05/2025", "03/05/2025")
	require.NoError(t, err)
	assert.Equal(t, "_2025M03", w.Suffix())
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		start    string
		end      string
		expected string
	}{
		{"11/01/2025", "11/30/2025", "_2025M11"},
		{"02/01/2024", "02/29/2024", "_2024M02"},
		{"01/01/2025", "03/31/2025", "_2025Q1"},
		{"04/01/2025", "06/30/2025", "_2025Q2"},
		{"07/01/2025", "09/30/2025", "_2025Q3"},
		{"10/01/2025", "12/31/2025", "_2025Q4"},
		// quarter detection only looks at the months
		{"10/15/2025", "12/01/2025", "_2025Q4"},
		{"01/01/2025", "06/30/2025", "_2025_01to06"},
		{"02/01/2025", "04/30/2025", "_2025_02to04"},
		// across a year boundary nothing is a month or a quarter
		{"12/01/2024", "12/31/2025", "_2024_12to12"},
		{"10/01/2024", "12/31/2025", "_2024_10to12"},
		{"11/01/2025", "01/31/2026", "_2025_11to01"},
	}
	for _, tt := range tests {
		w, err := Parse(tt.start, tt.end)
		require.NoError(t, err)
		if got := w.Suffix(); got != tt.expected {
			t.Errorf("Suffix(%s) = %s; want %s", w, got, tt.expected)
		}
	}
}

func TestWindows(t *testing.T) {
	tests := []struct {
		mode     Mode
		month    int
		expected []string
	}{
		{Q1, 0, []string{"01/01/2025 to 03/31/2025"}},
		{Q2, 0, []string{"04/01/2025 to 06/30/2025"}},
		{Q3, 0, []string{"07/01/2025 to 09/30/2025"}},
		{Q4, 0, []string{"10/01/2025 to 12/31/2025"}},
		{FullYear, 0, []string{
			"01/01/2025 to 03/31/2025",
			"04/01/2025 to 06/30/2025",
			"07/01/2025 to 09/30/2025",
			"10/01/2025 to 12/31/2025",
		}},
		{Month, 2, []string{"02/01/2025 to 02/28/2025"}},
		{Month, 11, []string{"11/01/2025 to 11/30/2025"}},
	}
	for _, tt := range tests {
		ws, err := Windows(tt.mode, 2025, tt.month)
		require.NoError(t, err)
		got := make([]string, len(ws))
		for i, w := range ws {
			got[i] = w.String()
		}
		assert.Equal(t, tt.expected, got, "mode %s", tt.mode)
	}
}

func TestMonthlyWindows(t *testing.T) {
	ws, err := Windows(Monthly, 2024, 0)
	require.NoError(t, err)
	require.Len(t, ws, 12)
	assert.Equal(t, "02/01/2024 to 02/29/2024", ws[1].String())
	assert.Equal(t, "12/01/2024 to 12/31/2024", ws[11].String())
	for i, w := range ws {
		assert.Equal(t, time.Month(i+1), w.Start.Month())
		assert.Equal(t, w.Start.Month(), w.End.Month())
		assert.Equal(t, 1, w.End.AddDate(0, 0, 1).Day(), "%s does not end on the last day", w)
	}
}

func TestWindowsErrors(t *testing.T) {
	_, err := Windows(Month, 2025, 0)
	assert.Error(t, err)
	_, err = Windows(Month, 2025, 13)
	assert.Error(t, err)
	_, err = Windows(Mode("q5"), 2025, 0)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Q4 ")
	require.NoError(t, err)
	assert.Equal(t, Q4, m)
	m, err = ParseMode("full_year")
	require.NoError(t, err)
	assert.Equal(t, FullYear, m)
	_, err = ParseMode("yearly")
	assert.ErrorContains(t, err, "valid modes")
}

func TestOutputFilename(t *testing.T) {
	now := time.Date(2025, time.December, 3, 14, 30, 59, 0, time.Local)
	assert.Equal(t, "vcs_extra_duty_jobs_2025Q4_20251203_1430.csv", OutputFilename("vcs_extra_duty_jobs", "_2025Q4", now))
	assert.Equal(t, "jobs_20251203_1430.csv", OutputFilename("jobs", "", now))
}

func TestLabel(t *testing.T) {
	w, err := Parse("10/01/2025", "12/31/2025")
	require.NoError(t, err)
	assert.Equal(t, "1 October 2025 - 31 December 2025", w.Label("en_US"))
	assert.Equal(t, w.Label("en_US"), w.Label(""))
	assert.Equal(t, "1. Oktober 2025 - 31. Dezember 2025", w.Label("de_DE"))
}
