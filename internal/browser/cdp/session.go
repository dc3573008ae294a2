// Package cdp implements browser.Session with chromedp, attached to a Chrome
// instance that was started with --remote-debugging-port and already shows
// the portal.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/log"
)

// Options configures the attachment to a running Chrome.
type Options struct {
	// DebuggerAddress is host:port of the remote debugging endpoint.
	DebuggerAddress string
	// URLHints are substrings used to pick the portal tab among all open
	// page targets. The first page target is used if none matches.
	URLHints []string
	// ActionTimeout bounds every single protocol round trip.
	ActionTimeout time.Duration
}

// Session is a chromedp driven tab.
type Session struct {
	ctx           context.Context
	cancelAlloc   context.CancelFunc
	actionTimeout time.Duration
	logger        *slog.Logger
}

var _ browser.Session = (*Session)(nil)

// Connect attaches to the running browser and selects the portal tab. All
// failures are reported as browser.ErrConnection.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("browser", "cdp"))
	if opts.DebuggerAddress == "" {
		return nil, fmt.Errorf("%w: no debugger address configured", browser.ErrConnection)
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = 30 * time.Second // default
	}
	wsURL := opts.DebuggerAddress
	if !strings.Contains(wsURL, "://") {
		wsURL = "ws://" + wsURL
	}
	logger.Info(fmt.Sprintf("connecting to chrome at %s", wsURL))

	// The allocator must not be derived from ctx: cancelling a chromedp
	// context closes the tab it is bound to and the tab belongs to the user.
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	browserCtx, _ := chromedp.NewContext(allocCtx)

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		cancelAlloc()
		return nil, fmt.Errorf("%w: %v", browser.ErrConnection, err)
	}
	t := pickTarget(targets, opts.URLHints)
	if t == nil {
		cancelAlloc()
		return nil, fmt.Errorf("%w: no open page found", browser.ErrConnection)
	}
	logger.Debug(fmt.Sprintf("attaching to target %s (%s)", t.TargetID, t.URL))
	tabCtx, _ := chromedp.NewContext(browserCtx, chromedp.WithTargetID(t.TargetID))

	s := &Session{
		ctx:           tabCtx,
		cancelAlloc:   cancelAlloc,
		actionTimeout: opts.ActionTimeout,
		logger:        logger,
	}
	u, err := s.CurrentURL(ctx)
	if err != nil {
		cancelAlloc()
		return nil, fmt.Errorf("%w: %v", browser.ErrConnection, err)
	}
	logger.Info(fmt.Sprintf("connected to: %s", shorten(u, 60)))
	return s, nil
}

// Close drops the connection. The browser and its tabs stay open.
func (s *Session) Close() {
	s.cancelAlloc()
}

func pickTarget(targets []*target.Info, hints []string) *target.Info {
	var first *target.Info
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if first == nil {
			first = t
		}
		u := strings.ToLower(t.URL)
		for _, h := range hints {
			if h != "" && strings.Contains(u, strings.ToLower(h)) {
				return t
			}
		}
	}
	return first
}

// run executes actions on the tab. ctx only contributes cancellation; the
// chromedp executor comes from the tab context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return classify(err)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (s *Session) ExecuteScript(ctx context.Context, js string, res any) error {
	return s.run(ctx, chromedp.Evaluate(js, res))
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var h string
	if err := s.ExecuteScript(ctx, browser.ScriptOuterHTML, &h); err != nil {
		return "", err
	}
	return h, nil
}

func (s *Session) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch sel.Kind {
	case browser.CSS:
		opts = append(opts, chromedp.ByQueryAll)
	case browser.XPath:
		// DOM.performSearch understands XPath expressions
		opts = append(opts, chromedp.BySearch)
	default:
		return nil, fmt.Errorf("selector kind '%s' not supported", sel.Kind)
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel.Expr, &nodes, opts...)); err != nil {
		return nil, err
	}
	return s.wrap(nodes), nil
}

func (s *Session) wrap(nodes []*cdp.Node) []browser.Element {
	els := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{s: s, node: n})
	}
	return els
}

// staleMessages are protocol error messages that mean the node id we hold
// no longer refers to an attached node.
var staleMessages = []string{
	"could not find node with given id",
	"no node with given id",
	"node is detached",
	"node with given id does not belong to the document",
	"cannot find context with specified id",
	"cannot find object with id",
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", browser.ErrStale, err)
		}
	}
	return err
}

func shorten(s string, l int) string {
	if len(s) > l && l != 0 {
		return fmt.Sprintf("%s...", s[:l])
	}
	return s
}
