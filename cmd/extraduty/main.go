/*
extraduty scrapes the job grid of the VCS Extra Duty portal into csv files,
one per date window.

Start Chrome with --remote-debugging-port=9222, log into the portal, open the
Extra Duty signup page and run

	extraduty scrape --mode q4
*/
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/browser/cdp"
	"github.com/jakopako/extraduty/internal/browser/htmldoc"
	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/log"
	"github.com/jakopako/extraduty/internal/output"
	"github.com/jakopako/extraduty/internal/window"
	"github.com/jakopako/extraduty/internal/workflow"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type VersionFlag string

func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                       { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

type cli struct {
	Version VersionFlag `short:"v" long:"version" help:"Print the version and exit."`
	Debug   bool        `short:"d" long:"debug" help:"Set log level to 'debug' and store page snapshots of failed windows in the log folder."`

	Scrape  ScrapeCmd  `cmd:"" help:"Scrape the portal open in a running Chrome."`
	Replay  ReplayCmd  `cmd:"" help:"Run the scraper against a saved html page instead of a live browser."`
	Windows WindowsCmd `cmd:"" help:"Print the date windows of a mode."`
}

// WindowFlags select the date windows of a run.
type WindowFlags struct {
	Mode  string `short:"m" default:"q4" enum:"q1,q2,q3,q4,full_year,monthly,month" help:"Which windows to scrape: a single quarter, full_year (four quarters), monthly (twelve months) or month."`
	Month int    `help:"The month (1-12) to scrape. Implies mode 'month'."`
	Year  int    `short:"y" help:"Overrides target_year of the configuration."`
}

// windows applies the flags to c and returns the selected windows.
func (f *WindowFlags) windows(c *config.Config) ([]window.DateWindow, error) {
	mode, err := window.ParseMode(f.Mode)
	if err != nil {
		return nil, err
	}
	if f.Month != 0 && mode != window.Month {
		slog.Info(fmt.Sprintf("--month %d given, switching from mode %s to month", f.Month, mode))
		mode = window.Month
	}
	if f.Year != 0 {
		c.TargetYear = f.Year
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return window.Windows(mode, c.TargetYear, f.Month)
}

type ScrapeCmd struct {
	WindowFlags
	Config string `short:"c" help:"The location of the configuration file. If empty, only environment variables and defaults are used." type:"path"`
	Stdout bool   `short:"o" help:"If set to true the scraped data will be written to stdout instead of csv files."`
}

func (sc *ScrapeCmd) Run() error {
	c, ws, err := prepare(sc.Config, &sc.WindowFlags, sc.Stdout)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	return run(c, ws, func(ctx context.Context) (browser.Session, func(), error) {
		s, err := cdp.Connect(ctx, cdp.Options{
			DebuggerAddress: c.Scraper.ChromeDebuggerAddress,
			URLHints:        urlHints(c.Scraper.PortalURL),
			ActionTimeout:   c.Scraper.PageLoadTimeout.Duration(),
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	})
}

type ReplayCmd struct {
	WindowFlags
	HTML   string `required:"" help:"The html file to replay, eg. a page snapshot from a debug run." type:"existingfile"`
	Config string `short:"c" help:"The location of the configuration file. If empty, only environment variables and defaults are used." type:"path"`
	Stdout bool   `short:"o" help:"If set to true the scraped data will be written to stdout instead of csv files."`
}

func (rc *ReplayCmd) Run() error {
	c, ws, err := prepare(rc.Config, &rc.WindowFlags, rc.Stdout)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	return run(c, ws, func(ctx context.Context) (browser.Session, func(), error) {
		abs, err := filepath.Abs(rc.HTML)
		if err != nil {
			return nil, nil, err
		}
		// the replayed page stands in for the portal
		d, err := htmldoc.Open(c.Scraper.PortalURL, abs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", browser.ErrConnection, err)
		}
		log.LoggerFromContext(ctx).Info(fmt.Sprintf("replaying %s", rc.HTML))
		return d, func() {}, nil
	})
}

type WindowsCmd struct {
	WindowFlags
	Config string `short:"c" help:"The location of the configuration file." type:"path"`
	YAML   bool   `long:"yaml" help:"Print the windows as yaml instead of a table."`
}

type windowEntry struct {
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Label  string `yaml:"label"`
	Suffix string `yaml:"suffix"`
}

func (wc *WindowsCmd) Run() error {
	c, err := config.NewConfig(wc.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	ws, err := wc.windows(c)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	if !wc.YAML {
		return output.RenderWindows(os.Stdout, ws, c.Locale)
	}
	entries := make([]windowEntry, len(ws))
	for i, w := range ws {
		entries[i] = windowEntry{Start: w.StartText(), End: w.EndText(), Label: w.Label(c.Locale), Suffix: w.Suffix()}
	}
	yamlData, err := yaml.Marshal(entries)
	if err != nil {
		slog.Error(fmt.Sprintf("error while marshalling. %v", err))
		return err
	}
	fmt.Print(string(yamlData))
	return nil
}

func prepare(path string, f *WindowFlags, stdout bool) (*config.Config, []window.DateWindow, error) {
	c, err := config.NewConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if stdout {
		c.Writer.Type = string(output.STDOUT_WRITER_TYPE)
	}
	ws, err := f.windows(c)
	if err != nil {
		return nil, nil, err
	}
	return c, ws, nil
}

type opener func(ctx context.Context) (browser.Session, func(), error)

// run scrapes ws with the session returned by open. Interrupting the
// process stops the run after the current window.
func run(c *config.Config, ws []window.DateWindow, open opener) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// with the stdout writer the csv goes to stdout, everything else to stderr
	var console io.Writer = os.Stdout
	if c.Writer.Type == string(output.STDOUT_WRITER_TYPE) {
		console = os.Stderr
	}
	runLog, err := log.NewRunLog(c.Paths.LogFolder, console, time.Now())
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer runLog.Close()
	logger := runLog.Logger
	ctx = log.ContextWithLogger(ctx, logger)

	logger.Info(fmt.Sprintf("vcs extra duty scraper %s", getVersion()))
	logger.Info(fmt.Sprintf("date windows: %d, target year: %d", len(ws), ws[0].Start.Year()))

	writer, err := output.NewWriter(&c.Writer, c.Paths.OutputFolder)
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	session, closeSession, err := open(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("could not connect to chrome: %v", err))
		logger.Info(fmt.Sprintf("make sure chrome runs with --remote-debugging-port and listens on %s", c.Scraper.ChromeDebuggerAddress))
		return err
	}
	defer closeSession()

	o, err := workflow.New(session, c, writer, logger)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	if log.Debug {
		o.SnapshotDir = c.Paths.LogFolder
	}
	result, err := o.Run(ctx, ws)
	if err != nil {
		logger.Error(fmt.Sprintf("%v", err))
		return err
	}
	result.LogSummary(logger)
	if err := output.RenderSummary(console, result.Summaries()); err != nil {
		logger.Warn(fmt.Sprintf("could not print summary: %v", err))
	}
	return ctx.Err()
}

// urlHints are used to find the portal among the open tabs.
func urlHints(portal string) []string {
	hints := []string{"extra-duty", "extraduty"}
	if u, err := url.Parse(portal); err == nil && u.Host != "" {
		hints = append(hints, u.Host)
	}
	return hints
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			return buildInfo.Main.Version
		}
	}
	return version
}

func main() {
	cli := cli{
		Version: VersionFlag(getVersion()),
	}

	ctx := kong.Parse(&cli,
		kong.Name("extraduty"),
		kong.Description("Scrapes the VCS Extra Duty job grid over date windows."),
		kong.Vars{
			"version": string(cli.Version),
		})

	log.Debug = cli.Debug
	log.InitializeDefaultLogger()

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
