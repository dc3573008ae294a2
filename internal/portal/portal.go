// Package portal drives the filter controls of the Extra Duty portal: the
// date range and the boolean toggles that decide which jobs are listed.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/locator"
	"github.com/jakopako/extraduty/internal/retry"
	"github.com/jakopako/extraduty/internal/wait"
	"github.com/jakopako/extraduty/internal/window"
)

// pageReadyTimeout bounds the readiness poll of PageReady.
const pageReadyTimeout = 5 * time.Second

// keystrokePause is the pause between the keystrokes that clear and fill a
// date input. It never exceeds the configured action delay.
const keystrokePause = 200 * time.Millisecond

// ToggleRequirement is a toggle identified by its label and the state it
// has to be in.
type ToggleRequirement struct {
	Name    string
	Desired bool
}

func (t ToggleRequirement) String() string {
	if t.Desired {
		return t.Name + ": ON"
	}
	return t.Name + ": OFF"
}

// RequiredToggles are the toggles that have to be ON for the grid to list
// every job of a window.
var RequiredToggles = []ToggleRequirement{
	{Name: "Show Closed Jobs", Desired: true},
	{Name: "Show Jobs with Scheduling Conflicts", Desired: true},
}

// Controller changes and verifies the filter state of the portal.
type Controller struct {
	*config.ScraperConfig
	session  browser.Session
	resolver *locator.Resolver
	logger   *slog.Logger
}

// NewController returns a Controller for session. If logger is nil the
// default logger is used.
func NewController(s browser.Session, c *config.ScraperConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ScraperConfig: c,
		session:       s,
		resolver:      locator.NewResolver(s, logger),
		logger:        logger,
	}
}

func (c *Controller) retrySpec() retry.Spec {
	return retry.Spec{MaxRetries: c.MaxRetries, Delay: c.RetryDelay.Duration(), Logger: c.logger}
}

func (c *Controller) pause(ctx context.Context) error {
	return wait.Sleep(ctx, min(keystrokePause, c.ActionDelay.Duration()))
}

// SetDateRange enters w into the date filter. The start date is always set
// before the end date so the portal never sees an inverted range. After
// both fields are committed it waits for the grid to begin refreshing.
func (c *Controller) SetDateRange(ctx context.Context, w window.DateWindow) error {
	c.logger.Info(fmt.Sprintf("setting date range: %s to %s", w.StartText(), w.EndText()))
	if err := c.setDate(ctx, locator.StartDate, w.StartText()); err != nil {
		return fmt.Errorf("failed to set start date: %w", err)
	}
	if err := c.setDate(ctx, locator.EndDate, w.EndText()); err != nil {
		return fmt.Errorf("failed to set end date: %w", err)
	}
	if err := wait.Sleep(ctx, c.GridRefreshWait.Duration()); err != nil {
		return err
	}
	c.logger.Info("date range set")
	return nil
}

// setDate replaces the content of one date input. Resolving the input is
// part of the retried unit since typing may re-render the filter bar.
func (c *Controller) setDate(ctx context.Context, f locator.DateField, value string) error {
	return retry.DoErr(ctx, c.retrySpec(), func(ctx context.Context) error {
		res := c.resolver.Resolve(ctx, locator.DateInput(f))
		if res.Status != locator.Found {
			return res.Err()
		}
		el := res.Element
		if err := el.ScrollIntoView(ctx); err != nil {
			return err
		}
		if err := wait.Sleep(ctx, c.ActionDelay.Duration()); err != nil {
			return err
		}
		if err := c.click(ctx, el); err != nil {
			return err
		}
		steps := []func(context.Context) error{
			func(ctx context.Context) error { return el.PressKey(ctx, browser.KeySelectAll) },
			func(ctx context.Context) error { return el.PressKey(ctx, browser.KeyDelete) },
			func(ctx context.Context) error { return el.SendKeys(ctx, value) },
		}
		for _, step := range steps {
			if err := c.pause(ctx); err != nil {
				return err
			}
			if err := step(ctx); err != nil {
				return err
			}
		}
		if err := c.pause(ctx); err != nil {
			return err
		}
		// moving the focus away makes the portal validate and apply the value
		if err := el.PressKey(ctx, browser.KeyTab); err != nil {
			return err
		}
		if err := wait.Sleep(ctx, c.ActionDelay.Duration()); err != nil {
			return err
		}
		c.logger.Debug(fmt.Sprintf("set %s date to: %s", f, value))
		return nil
	})
}

// click clicks el and falls back to a script click if another element
// would receive the click.
func (c *Controller) click(ctx context.Context, el browser.Element) error {
	err := el.Click(ctx)
	if errors.Is(err, browser.ErrClickIntercepted) {
		c.logger.Debug("click intercepted, clicking via script")
		return el.JSClick(ctx)
	}
	return err
}

// EnsureToggle brings the toggle labelled name into the desired state. It
// reports true only if a fresh read after the click shows the desired state.
// A toggle that is already in the desired state is not touched.
func (c *Controller) EnsureToggle(ctx context.Context, name string, desired bool) (bool, error) {
	req := ToggleRequirement{Name: name, Desired: desired}
	c.logger.Debug(fmt.Sprintf("ensuring toggle %s", req))
	strategy := locator.Toggle(name)
	return retry.Do(ctx, c.retrySpec(), func(ctx context.Context) (bool, error) {
		res, err := c.resolver.ResolveToggle(ctx, strategy)
		if err != nil {
			return false, err
		}
		if res.Checked == desired {
			c.logger.Debug(fmt.Sprintf("toggle '%s' already in desired state", name))
			return true, nil
		}
		if err := res.Element.ScrollIntoView(ctx); err != nil {
			return false, err
		}
		if err := wait.Sleep(ctx, c.ActionDelay.Duration()); err != nil {
			return false, err
		}
		if err := c.click(ctx, res.Element); err != nil {
			return false, err
		}
		if err := wait.Sleep(ctx, c.ActionDelay.Duration()); err != nil {
			return false, err
		}
		after, err := c.resolver.ResolveToggle(ctx, strategy)
		if err != nil {
			return false, err
		}
		if after.Checked != desired {
			c.logger.Warn(fmt.Sprintf("toggle click did not change state of '%s'", name))
			return false, nil
		}
		c.logger.Debug(fmt.Sprintf("toggle changed to %s", req))
		return true, nil
	})
}

// EnsureAllToggles applies every requirement in order and reports whether
// all of them were verified. A toggle that cannot be found is logged and
// counts as a failure; the remaining toggles are still applied.
func (c *Controller) EnsureAllToggles(ctx context.Context, reqs []ToggleRequirement) bool {
	c.logger.Info("setting toggles")
	ok := true
	for _, req := range reqs {
		verified, err := c.EnsureToggle(ctx, req.Name, req.Desired)
		var nf *locator.NotFoundError
		switch {
		case errors.As(err, &nf):
			c.logger.Warn(fmt.Sprintf("toggle not found: %s", req.Name))
			ok = false
		case err != nil:
			c.logger.Warn(fmt.Sprintf("could not set toggle '%s': %v", req.Name, err))
			ok = false
		case !verified:
			c.logger.Warn(fmt.Sprintf("could not verify state of toggle %s", req))
			ok = false
		default:
			c.logger.Info(req.String())
		}
	}
	return ok
}

// ToggleStillSet re-reads the toggle of req without changing it. A toggle
// that cannot be found counts as still set, since some portal versions do
// not have it.
func (c *Controller) ToggleStillSet(ctx context.Context, req ToggleRequirement) bool {
	res, err := c.resolver.ResolveToggle(ctx, locator.Toggle(req.Name))
	if err != nil {
		c.logger.Debug(fmt.Sprintf("toggle '%s' not readable: %v", req.Name, err))
		return true
	}
	if res.Checked != req.Desired {
		c.logger.Warn(fmt.Sprintf("toggle reset detected: %s", req.Name))
		return false
	}
	return true
}

// TogglesStillSet reports whether none of reqs has drifted.
func (c *Controller) TogglesStillSet(ctx context.Context, reqs []ToggleRequirement) bool {
	for _, req := range reqs {
		if !c.ToggleStillSet(ctx, req) {
			return false
		}
	}
	return true
}

// PageReady polls the document ready state for a few seconds. It only
// reports; callers decide whether to continue.
func (c *Controller) PageReady(ctx context.Context) bool {
	err := wait.Until(ctx, pageReadyTimeout, wait.DefaultInterval, func(ctx context.Context) (bool, error) {
		var state string
		if err := c.session.ExecuteScript(ctx, browser.ScriptReadyState, &state); err != nil {
			return false, err
		}
		return state == "complete", nil
	})
	return err == nil
}

// VerifyPortal checks that the session shows the configured portal and
// returns the current url. A mismatch is only logged.
func (c *Controller) VerifyPortal(ctx context.Context) (string, error) {
	current, err := c.session.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", browser.ErrConnection, err)
	}
	c.logger.Info(fmt.Sprintf("current page: %s", current))
	if !samePortal(c.PortalURL, current) {
		c.logger.Warn(fmt.Sprintf("page does not look like the extra duty portal (%s), make sure you navigated to the extra duty signup page", c.PortalURL))
	}
	return current, nil
}

// samePortal reports whether current belongs to the host of portal.
func samePortal(portal, current string) bool {
	if portal == "" {
		return true
	}
	p, err := url.Parse(portal)
	if err != nil || p.Host == "" {
		return strings.Contains(current, portal)
	}
	cu, err := url.Parse(current)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(cu.Host, "www."), strings.TrimPrefix(p.Host, "www."))
}
