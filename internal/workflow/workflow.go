// Package workflow scrapes a sequence of date windows. Every window goes
// through the same protocol: set the date range, force the toggles on, wait
// for the grid, repair toggles the refresh reset and read the rows. A window
// that fails is logged and yields no records; the run goes on with the next
// window.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/grid"
	"github.com/jakopako/extraduty/internal/output"
	"github.com/jakopako/extraduty/internal/portal"
	"github.com/jakopako/extraduty/internal/window"
)

// Orchestrator drives one browser session through a sequence of windows.
type Orchestrator struct {
	// Toggles are the toggle states every window is scraped with.
	Toggles []portal.ToggleRequirement
	// SnapshotDir, if set, receives the html of the page whenever a window
	// fails.
	SnapshotDir string
	// Now is the clock used for file names.
	Now func() time.Time

	session    browser.Session
	controller *portal.Controller
	extractor  *grid.Extractor
	writer     output.Writer
	prefix     string
	logger     *slog.Logger
}

// New returns an Orchestrator for session. Non-empty results are handed to
// w; w may be nil in which case nothing is written.
func New(s browser.Session, c *config.Config, w output.Writer, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ex, err := grid.NewExtractor(s, &c.Scraper, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid csv columns: %w", err)
	}
	return &Orchestrator{
		Toggles:    portal.RequiredToggles,
		Now:        time.Now,
		session:    s,
		controller: portal.NewController(s, &c.Scraper, logger),
		extractor:  ex,
		writer:     w,
		prefix:     c.Writer.Prefix,
		logger:     logger,
	}, nil
}

// Run processes windows in order. It only returns an error if the session
// cannot be confirmed before the first window; failures of single windows
// are recorded in the returned Run. A cancelled context stops the run after
// the current window.
func (o *Orchestrator) Run(ctx context.Context, windows []window.DateWindow) (*Run, error) {
	run := newRun(windows, o.Now())
	o.logger.Info(fmt.Sprintf("date windows to process: %d", len(windows)), slog.String("run", run.ID.String()))
	if _, err := o.controller.VerifyPortal(ctx); err != nil {
		return nil, err
	}
	for _, w := range windows {
		if ctx.Err() != nil {
			o.logger.Warn(fmt.Sprintf("run cancelled, %d windows left", len(windows)-run.Processed()))
			break
		}
		run.Outcomes = append(run.Outcomes, o.process(ctx, w))
	}
	run.Finished = o.Now()
	return run, nil
}

// process scrapes w and writes its result. Errors and panics stop at this
// boundary.
func (o *Orchestrator) process(ctx context.Context, w window.DateWindow) (out Outcome) {
	out.Window = w
	logger := o.logger.With(slog.String("window", w.Suffix()))
	defer func() {
		if r := recover(); r != nil {
			out.Result = nil
			out.Err = fmt.Errorf("panic: %v", r)
			out.Kind = KindUnexpected
			logger.Error(fmt.Sprintf("unexpected error in window %s: %v", w, r))
		}
	}()

	logger.Info(fmt.Sprintf("scraping window: %s", w))
	res, err := o.ScrapeWindow(ctx, w)
	if err != nil {
		out.Err = err
		out.Kind = Classify(err)
		logger.Error(fmt.Sprintf("failed window %s: %v", w, err), slog.String("kind", string(out.Kind)))
		o.snapshot(ctx, w, logger)
		return out
	}
	out.Result = res
	logger.Info(fmt.Sprintf("extracted %d jobs", len(res)))
	if len(res) == 0 {
		logger.Warn(fmt.Sprintf("no jobs found for %s", w))
		return out
	}
	if o.writer == nil {
		return out
	}
	name := window.OutputFilename(o.prefix, w.Suffix(), o.Now())
	path, err := o.writer.Write(name, o.extractor.Schema(), res)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", errOutput, err)
		out.Kind = KindOutput
		logger.Error(out.Err.Error())
		return out
	}
	out.File = path
	return out
}

// ScrapeWindow runs the scrape protocol for a single window and returns
// its records. Unlike Run it reports every failure to the caller.
func (o *Orchestrator) ScrapeWindow(ctx context.Context, w window.DateWindow) (grid.ScrapeResult, error) {
	if !o.controller.PageReady(ctx) {
		o.logger.Warn("page may not be fully loaded")
	}
	if err := o.controller.SetDateRange(ctx, w); err != nil {
		return nil, err
	}
	o.controller.EnsureAllToggles(ctx, o.Toggles)
	if err := o.extractor.AwaitStable(ctx, 0); err != nil {
		return nil, err
	}
	// refreshing the grid can reset the toggles
	if !o.controller.TogglesStillSet(ctx, o.Toggles) {
		o.logger.Info("re-applying toggles after grid refresh")
		o.controller.EnsureAllToggles(ctx, o.Toggles)
		if err := o.extractor.AwaitStable(ctx, 0); err != nil {
			return nil, err
		}
	}
	return o.extractor.ExtractRows(ctx)
}

// snapshot saves the current page so the failure can be replayed offline.
func (o *Orchestrator) snapshot(ctx context.Context, w window.DateWindow, logger *slog.Logger) {
	if o.SnapshotDir == "" {
		return
	}
	page, err := o.session.HTML(ctx)
	if err != nil {
		logger.Warn(fmt.Sprintf("could not take page snapshot: %v", err))
		return
	}
	if err := os.MkdirAll(o.SnapshotDir, 0755); err != nil {
		logger.Warn(fmt.Sprintf("could not create snapshot folder: %v", err))
		return
	}
	name := fmt.Sprintf("snapshot%s_%s.html", w.Suffix(), o.Now().Format("20060102_150405"))
	path := filepath.Join(o.SnapshotDir, name)
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		logger.Warn(fmt.Sprintf("could not write page snapshot: %v", err))
		return
	}
	logger.Info(fmt.Sprintf("page snapshot: %s", path))
}
