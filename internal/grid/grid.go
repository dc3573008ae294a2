// Package grid waits for the job grid of the portal to settle and reads its
// rows into records of a fixed schema.
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/locator"
	"github.com/jakopako/extraduty/internal/retry"
	"github.com/jakopako/extraduty/internal/wait"
)

// indicatorTimeout is the longest time AwaitStable waits for a single
// loading indicator to go away.
const indicatorTimeout = 2 * time.Second

// headerSelector finds the header cells of a grid.
var headerSelector = browser.ByCSS("th, div[role='columnheader']")

// Extractor reads the job grid of a session.
type Extractor struct {
	*config.ScraperConfig
	schema   Schema
	session  browser.Session
	resolver *locator.Resolver
	logger   *slog.Logger
}

// NewExtractor returns an Extractor mapping rows onto the configured csv
// columns.
func NewExtractor(s browser.Session, c *config.ScraperConfig, logger *slog.Logger) (*Extractor, error) {
	schema, err := NewSchema(c.CSVColumns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		ScraperConfig: c,
		schema:        schema,
		session:       s,
		resolver:      locator.NewResolver(s, logger),
		logger:        logger,
	}, nil
}

// Schema returns the schema records are mapped onto.
func (e *Extractor) Schema() Schema {
	return e.schema
}

// AwaitStable waits for the loading indicators of the portal to disappear
// and then for the fixed grid refresh delay. Each indicator is waited for
// at most two seconds (or timeout if that is shorter). An indicator that
// does not go away is logged, it does not fail the wait. A timeout of zero
// means the configured element wait timeout.
func (e *Extractor) AwaitStable(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.ElementWaitTimeout.Duration()
	}
	e.logger.Debug("waiting for grid refresh")
	perIndicator := min(indicatorTimeout, timeout)
	for _, sel := range locator.LoadingIndicators {
		err := wait.Until(ctx, perIndicator, wait.DefaultInterval, func(ctx context.Context) (bool, error) {
			els, err := e.session.FindElements(ctx, sel)
			if err != nil {
				return false, err
			}
			return len(els) == 0, nil
		})
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, wait.ErrTimeout):
			e.logger.Debug(fmt.Sprintf("loading indicator %s still present after %s", sel, perIndicator))
		default:
			e.logger.Debug(fmt.Sprintf("could not check loading indicator %s: %v", sel, err))
		}
	}
	return wait.Sleep(ctx, e.GridRefreshWait.Duration())
}

// ExtractRows reads all data rows of the grid. The whole read is repeated
// if the grid re-renders while it is being read.
func (e *Extractor) ExtractRows(ctx context.Context) (ScrapeResult, error) {
	e.logger.Info("scraping grid rows")
	return retry.Do(ctx, retry.Spec{MaxRetries: e.MaxRetries, Delay: e.RetryDelay.Duration(), Logger: e.logger}, e.extract)
}

func (e *Extractor) extract(ctx context.Context) (ScrapeResult, error) {
	res := e.resolver.Resolve(ctx, locator.Grid(e.schema.Identifier()))
	if res.Status != locator.Found {
		return nil, res.Err()
	}
	g := res.Element
	rows, err := g.FindElements(ctx, locator.RowSelector)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		e.logger.Warn("no rows found in grid")
		return ScrapeResult{}, nil
	}
	if err := e.checkHeader(ctx, g); err != nil {
		return nil, err
	}

	minCells := len(e.schema) - 1
	var data [][]string
	for _, row := range rows {
		cells, err := row.FindElements(ctx, locator.CellSelector)
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 || len(cells) < minCells {
			continue
		}
		texts := make([]string, len(cells))
		for i, cell := range cells {
			t, err := cell.Text(ctx)
			if err != nil {
				return nil, err
			}
			texts[i] = strings.TrimSpace(t)
		}
		data = append(data, texts)
	}
	e.logger.Debug(fmt.Sprintf("found %d data rows", len(data)))

	result := ScrapeResult{}
	for _, cells := range data {
		rec := e.schema.mapRow(cells)
		if e.schema.isSentinel(rec[e.schema.Identifier()]) {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// checkHeader logs columns whose header in the grid no longer matches the
// configured column. Grids without header cells are not checked.
func (e *Extractor) checkHeader(ctx context.Context, g browser.Element) error {
	cells, err := g.FindElements(ctx, headerSelector)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}
	header := make([]string, len(cells))
	for i, c := range cells {
		t, err := c.Text(ctx)
		if err != nil {
			return err
		}
		header[i] = strings.TrimSpace(t)
	}
	for _, d := range HeaderDrift(e.schema, header) {
		e.logger.Warn(fmt.Sprintf("grid layout changed: %s", d))
	}
	return nil
}
