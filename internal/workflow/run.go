package workflow

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jakopako/extraduty/internal/grid"
	"github.com/jakopako/extraduty/internal/output"
	"github.com/jakopako/extraduty/internal/window"
)

// Outcome is what processing one window produced. A failed window has an
// empty Result and Kind set.
type Outcome struct {
	Window window.DateWindow
	Result grid.ScrapeResult
	Kind   ErrorKind
	Err    error
	// File is where the result was written, empty if nothing was written.
	File string
}

func (o Outcome) status() string {
	switch {
	case o.Kind != KindNone:
		return string(o.Kind)
	case len(o.Result) == 0:
		return "empty"
	default:
		return "ok"
	}
}

// Run records a sequence of windows and what each of them produced. Only
// the Orchestrator adds to it.
type Run struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Windows  []window.DateWindow
	Outcomes []Outcome
}

func newRun(windows []window.DateWindow, now time.Time) *Run {
	return &Run{
		ID:      uuid.New(),
		Started: now,
		Windows: append([]window.DateWindow(nil), windows...),
	}
}

// Processed returns the number of windows that were attempted.
func (r *Run) Processed() int {
	return len(r.Outcomes)
}

// Files returns the paths results were written to.
func (r *Run) Files() []string {
	var files []string
	for _, o := range r.Outcomes {
		if o.File != "" {
			files = append(files, o.File)
		}
	}
	return files
}

// TotalRows returns the number of records over all windows.
func (r *Run) TotalRows() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Result)
	}
	return n
}

// Failed returns the number of windows that ended with an error.
func (r *Run) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind != KindNone {
			n++
		}
	}
	return n
}

// Summaries returns one summary line per processed window.
func (r *Run) Summaries() []output.WindowSummary {
	s := make([]output.WindowSummary, len(r.Outcomes))
	for i, o := range r.Outcomes {
		s[i] = output.WindowSummary{
			Window: o.Window.String(),
			Rows:   len(o.Result),
			Status: o.status(),
			File:   o.File,
		}
	}
	return s
}

// LogSummary logs the totals of the run.
func (r *Run) LogSummary(logger *slog.Logger) {
	logger.Info("scraper complete",
		slog.String("run", r.ID.String()),
		slog.Duration("took", r.Finished.Sub(r.Started).Round(time.Millisecond)))
	logger.Info(fmt.Sprintf("windows processed: %d of %d", r.Processed(), len(r.Windows)))
	logger.Info(fmt.Sprintf("files saved: %d", len(r.Files())))
	logger.Info(fmt.Sprintf("total jobs: %d", r.TotalRows()))
	if n := r.Failed(); n > 0 {
		logger.Warn(fmt.Sprintf("failed windows: %d", n))
	}
	for _, f := range r.Files() {
		logger.Info(fmt.Sprintf("saved file: %s", filepath.Base(f)))
	}
}
