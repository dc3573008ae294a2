// Package retry re-executes composite UI interactions that failed because
// the document changed underneath them.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jakopako/extraduty/internal/browser"
	"github.com/jakopako/extraduty/internal/log"
)

// Spec bounds a retried unit of work: at most MaxRetries additional
// attempts, Delay apart. A negative MaxRetries counts as 0.
type Spec struct {
	MaxRetries int
	Delay      time.Duration
	// Logger receives the retry lines. If nil the logger of the context is
	// used.
	Logger *slog.Logger
}

func (s Spec) backOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.Delay), uint64(s.MaxRetries)),
		ctx)
}

// Do executes fn and repeats it while it fails with a transient error (see
// browser.IsTransient). Once the retries are used up the last transient
// error is returned unchanged. Other errors are returned immediately.
//
// fn should cover the whole resolve-then-act sequence. Retrying only the
// action would reuse the handle that just went stale.
func Do[T any](ctx context.Context, spec Spec, fn func(ctx context.Context) (T, error)) (T, error) {
	spec.MaxRetries = max(spec.MaxRetries, 0)
	logger := spec.Logger
	if logger == nil {
		logger = log.LoggerFromContext(ctx)
	}

	attempt := 0
	op := func() (T, error) {
		res, err := fn(ctx)
		if err != nil && !browser.IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, next time.Duration) {
		attempt++
		logger.Debug(fmt.Sprintf("retry %d/%d in %v after: %v", attempt, spec.MaxRetries, next, err))
	}

	res, err := backoff.RetryNotifyWithData(op, spec.backOff(ctx), notify)
	if err != nil {
		var zero T
		if browser.IsTransient(err) {
			logger.Error(fmt.Sprintf("failed after %d retries: %v", attempt, err), slog.Int("attempts", attempt+1))
		}
		return zero, err
	}
	return res, nil
}

// DoErr is Do for units of work that produce no value.
func DoErr(ctx context.Context, spec Spec, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, spec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
