package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/browser/htmldoc"
	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/grid"
	"github.com/jakopako/extraduty/internal/locator"
	"github.com/jakopako/extraduty/internal/output"
	"github.com/jakopako/extraduty/internal/wait"
	"github.com/jakopako/extraduty/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var columns = []string{"Job #", "Job Date", "Start Time", "End Time", "Hours", "Location", "Job Type", "Rate", "Status"}

const (
	datesHTML = `
		<input id="start" type="text" placeholder="Start Date">
		<input id="end" type="text" placeholder="End Date">`
	togglesHTML = `
		<label>Show Closed Jobs <input id="closed" type="checkbox"></label>
		<label>Show Jobs with Scheduling Conflicts <input id="conflicts" type="checkbox"></label>`
)

func gridHTML(rows int) string {
	var b strings.Builder
	b.WriteString(`<table class="job-grid"><tr>`)
	for _, c := range columns {
		fmt.Fprintf(&b, "<th>%s</th>", c)
	}
	b.WriteString("</tr>")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "<tr><td>%d</td><td>10/%02d/2025</td><td>08:00</td><td>12:00</td><td>4</td><td>Main St</td><td>Traffic</td><td>55.00</td><td>Open</td></tr>", 100+i, i)
	}
	b.WriteString("</table>")
	return b.String()
}

func newDoc(t *testing.T, body string) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.NewFromString("https://vcssoftware.com/extra-duty", "<html><body>"+body+"</body></html>")
	require.NoError(t, err)
	return d
}

func testConfig() *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			MaxRetries: 1,
			PortalURL:  "https://vcssoftware.com/extra-duty",
			CSVColumns: columns,
		},
		Writer: config.WriterConfig{Type: "file", Prefix: "vcs_extra_duty_jobs"},
	}
}

type written struct {
	name    string
	records grid.ScrapeResult
}

type memWriter struct {
	files []written
}

func (m *memWriter) Write(name string, schema grid.Schema, records grid.ScrapeResult) (string, error) {
	m.files = append(m.files, written{name: name, records: records})
	return "/out/" + name, nil
}

type failingWriter struct{}

func (failingWriter) Write(string, grid.Schema, grid.ScrapeResult) (string, error) {
	return "", errors.New("disk full")
}

func fixedClock() time.Time {
	return time.Date(2025, time.December, 3, 14, 30, 0, 0, time.UTC)
}

func newOrchestrator(t *testing.T, s browser.Session, w *memWriter) *Orchestrator {
	t.Helper()
	var writer output.Writer
	if w != nil {
		writer = w
	}
	o, err := New(s, testConfig(), writer, nil)
	require.NoError(t, err)
	o.Now = fixedClock
	return o
}

func windows(t *testing.T, mode window.Mode) []window.DateWindow {
	t.Helper()
	ws, err := window.Windows(mode, 2025, 0)
	require.NoError(t, err)
	return ws
}

func nodeID(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "id" {
			return a.Val
		}
	}
	return ""
}

func TestRunQuarter(t *testing.T) {
	d := newDoc(t, datesHTML+togglesHTML+gridHTML(3))
	w := &memWriter{}
	o := newOrchestrator(t, d, w)

	ws := windows(t, window.Q4)
	require.Equal(t, "10/01/2025 to 12/31/2025", ws[0].String())
	run, err := o.Run(context.Background(), ws)
	require.NoError(t, err)

	require.Len(t, run.Outcomes, 1)
	out := run.Outcomes[0]
	require.NoError(t, out.Err)
	require.Len(t, out.Result, 3)
	for i, rec := range out.Result {
		assert.Equal(t, fmt.Sprint(101+i), rec["Job #"])
	}
	assert.Equal(t, "_2025Q4", out.Window.Suffix())

	require.Len(t, w.files, 1)
	assert.Equal(t, "vcs_extra_duty_jobs_2025Q4_20251203_1430.csv", w.files[0].name)
	assert.Equal(t, []string{"/out/vcs_extra_duty_jobs_2025Q4_20251203_1430.csv"}, run.Files())
	assert.Equal(t, 3, run.TotalRows())
	assert.Equal(t, 0, run.Failed())

	// the ui state the run left behind
	start, _ := d.Find("#start").Attr("value")
	end, _ := d.Find("#end").Attr("value")
	assert.Equal(t, "10/01/2025", start)
	assert.Equal(t, "12/31/2025", end)
	_, closed := d.Find("#closed").Attr("checked")
	_, conflicts := d.Find("#conflicts").Attr("checked")
	assert.True(t, closed)
	assert.True(t, conflicts)
}

func TestRunRepairsToggleDrift(t *testing.T) {
	d := newDoc(t, datesHTML+togglesHTML+gridHTML(3))
	closedClicks := 0
	reset := false
	d.OnClick(func(d *htmldoc.Document, n *html.Node) {
		switch nodeID(n) {
		case "closed":
			closedClicks++
		case "conflicts":
			// the refresh triggered by this toggle resets the other one
			if !reset {
				reset = true
				d.Find("#closed").RemoveAttr("checked")
			}
		}
	})
	o := newOrchestrator(t, d, &memWriter{})
	run, err := o.Run(context.Background(), windows(t, window.Q4))
	require.NoError(t, err)
	require.Len(t, run.Outcomes, 1)
	assert.Len(t, run.Outcomes[0].Result, 3)
	assert.True(t, reset)
	assert.Equal(t, 2, closedClicks, "drifted toggle is re-applied exactly once")
	_, closed := d.Find("#closed").Attr("checked")
	assert.True(t, closed)
}

func TestRunContinuesAfterFailedWindows(t *testing.T) {
	d := newDoc(t, togglesHTML+gridHTML(3))
	w := &memWriter{}
	o := newOrchestrator(t, d, w)
	run, err := o.Run(context.Background(), windows(t, window.FullYear))
	require.NoError(t, err)

	assert.Equal(t, 4, run.Processed())
	assert.Equal(t, 4, run.Failed())
	assert.Equal(t, 0, run.TotalRows())
	assert.Empty(t, w.files)
	for _, out := range run.Outcomes {
		assert.Empty(t, out.Result)
		assert.Equal(t, KindResolution, out.Kind)
		var nf *locator.NotFoundError
		assert.True(t, errors.As(out.Err, &nf))
	}
	summaries := run.Summaries()
	require.Len(t, summaries, 4)
	assert.Equal(t, "resolution", summaries[0].Status)
}

func TestRunEmptyWindow(t *testing.T) {
	d := newDoc(t, datesHTML+togglesHTML+gridHTML(0)+`<table><tr><td>a</td></tr><tr><td>b</td></tr></table>`)
	w := &memWriter{}
	o := newOrchestrator(t, d, w)
	run, err := o.Run(context.Background(), windows(t, window.Q1))
	require.NoError(t, err)
	require.Len(t, run.Outcomes, 1)
	assert.Equal(t, KindNone, run.Outcomes[0].Kind)
	assert.Empty(t, run.Outcomes[0].Result)
	assert.Empty(t, w.files)
	assert.Equal(t, "empty", run.Summaries()[0].Status)
}

func TestRunWriterFailure(t *testing.T) {
	d := newDoc(t, datesHTML+togglesHTML+gridHTML(2))
	o, err := New(d, testConfig(), failingWriter{}, nil)
	require.NoError(t, err)
	run, err := o.Run(context.Background(), windows(t, window.Q2))
	require.NoError(t, err)
	out := run.Outcomes[0]
	assert.Equal(t, KindOutput, out.Kind)
	assert.Len(t, out.Result, 2)
	assert.Empty(t, out.File)
}

func TestRunSnapshotsFailedWindow(t *testing.T) {
	d := newDoc(t, togglesHTML+gridHTML(1))
	o := newOrchestrator(t, d, nil)
	o.SnapshotDir = filepath.Join(t.TempDir(), "snapshots")
	_, err := o.Run(context.Background(), windows(t, window.Q3))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(o.SnapshotDir, "snapshot_2025Q3_20251203_143000.html"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "job-grid")

	// a snapshot can be replayed
	replayed, err := htmldoc.NewFromString("file://snapshot", string(b))
	require.NoError(t, err)
	res, err := newOrchestrator(t, replayed, nil).extractor.ExtractRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

type disconnectedSession struct {
	browser.Session
}

func (disconnectedSession) CurrentURL(context.Context) (string, error) {
	return "", errors.New("websocket closed")
}

func TestRunFailsWithoutSession(t *testing.T) {
	d := newDoc(t, "")
	o := newOrchestrator(t, disconnectedSession{Session: d}, nil)
	run, err := o.Run(context.Background(), windows(t, window.Q4))
	assert.Nil(t, run)
	assert.Equal(t, KindConnection, Classify(err))
}

type panickingSession struct {
	browser.Session
}

func (panickingSession) FindElements(context.Context, browser.Selector) ([]browser.Element, error) {
	panic("driver bug")
}

func TestRunRecoversFromPanics(t *testing.T) {
	d := newDoc(t, "")
	o := newOrchestrator(t, panickingSession{Session: d}, nil)
	run, err := o.Run(context.Background(), windows(t, window.FullYear)[:2])
	require.NoError(t, err)
	require.Len(t, run.Outcomes, 2)
	for _, out := range run.Outcomes {
		assert.Equal(t, KindUnexpected, out.Kind)
		assert.ErrorContains(t, out.Err, "driver bug")
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	d := newDoc(t, datesHTML+togglesHTML+gridHTML(1))
	o := newOrchestrator(t, d, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := o.Run(ctx, windows(t, window.Monthly))
	require.NoError(t, err)
	assert.Equal(t, 0, run.Processed())
	assert.Len(t, run.Windows, 12)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err      error
		expected ErrorKind
	}{
		{nil, KindNone},
		{fmt.Errorf("attach: %w", browser.ErrConnection), KindConnection},
		{fmt.Errorf("failed to set start date: %w", &locator.NotFoundError{Role: "start date input"}), KindResolution},
		{&locator.AmbiguousError{Role: "job grid", Candidates: 2}, KindResolution},
		{browser.ErrStale, KindTransient},
		{browser.ErrNoSuchElement, KindTransient},
		{wait.ErrTimeout, KindTimeout},
		{fmt.Errorf("eval: %w", context.DeadlineExceeded), KindTimeout},
		{context.Canceled, KindCancelled},
		{fmt.Errorf("%w: disk full", errOutput), KindOutput},
		{errors.New("boom"), KindUnexpected},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expected {
			t.Errorf("Classify(%v) = %s; want %s", tt.err, got, tt.expected)
		}
	}
}
