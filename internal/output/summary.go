package output

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/jakopako/extraduty/internal/window"
	"github.com/olekukonko/tablewriter"
)

// WindowSummary is one line of the run summary.
type WindowSummary struct {
	Window string
	Rows   int
	// Status is "ok", "empty" or the kind of error that made the window
	// fail.
	Status string
	File   string
}

// RenderSummary prints a table with one line per window and the totals.
func RenderSummary(w io.Writer, windows []WindowSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Window", "Rows", "Status", "File")
	total, files := 0, 0
	for _, s := range windows {
		file := ""
		if s.File != "" {
			file = filepath.Base(s.File)
			files++
		}
		if err := table.Append([]string{s.Window, strconv.Itoa(s.Rows), s.Status, file}); err != nil {
			return err
		}
		total += s.Rows
	}
	table.Footer("total", strconv.Itoa(total), strconv.Itoa(len(windows))+" windows", strconv.Itoa(files)+" files")
	return table.Render()
}

// RenderWindows prints the windows of a mode together with their labels
// and file suffixes.
func RenderWindows(w io.Writer, windows []window.DateWindow, locale string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Start", "End", "Label", "Suffix")
	for _, win := range windows {
		if err := table.Append([]string{win.StartText(), win.EndText(), win.Label(locale), win.Suffix()}); err != nil {
			return err
		}
	}
	return table.Render()
}
