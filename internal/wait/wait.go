// Package wait provides the blocking waits used to synchronise with the
// portal. The portal exposes no completion events, so every wait is either a
// fixed settle delay or a bounded poll.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Until when the condition did not become true in
// time.
var ErrTimeout = errors.New("timed out waiting for condition")

// DefaultInterval is the pause between two checks of a poll.
const DefaultInterval = 250 * time.Millisecond

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Until checks cond every interval until it returns true, returns an error,
// or timeout elapses. The condition is always checked at least once.
func Until(ctx context.Context, timeout, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if err := Sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
	}
}
