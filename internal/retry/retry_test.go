package retry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/jakopako/extraduty/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoAttemptsOnPersistentTransientFailure(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("max_retries=%d", n), func(t *testing.T) {
			calls := 0
			stale := fmt.Errorf("reading row: %w", browser.ErrStale)
			_, err := Do(context.Background(), Spec{MaxRetries: n, Delay: time.Millisecond}, func(ctx context.Context) (int, error) {
				calls++
				return 0, stale
			})
			assert.Equal(t, n+1, calls)
			// the last failure is handed back unchanged
			assert.Same(t, stale, err)
		})
	}
}

func TestDoRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), Spec{MaxRetries: 3}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", browser.ErrNoSuchElement
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := DoErr(context.Background(), Spec{MaxRetries: 3}, func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, boom, err)
}

func TestDoStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := DoErr(ctx, Spec{MaxRetries: 3, Delay: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return browser.ErrStale
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWallClockBound(t *testing.T) {
	spec := Spec{MaxRetries: 2, Delay: 5 * time.Millisecond}
	start := time.Now()
	_ = DoErr(context.Background(), spec, func(ctx context.Context) error {
		return browser.ErrStale
	})
	elapsed := time.Since(start)
	if elapsed < 2*spec.Delay {
		t.Fatalf("expected at least %v of delay, got %v", 2*spec.Delay, elapsed)
	}
}

func TestDoNegativeRetriesRunsOnce(t *testing.T) {
	calls := 0
	err := DoErr(context.Background(), Spec{MaxRetries: -1}, func(ctx context.Context) error {
		calls++
		return browser.ErrStale
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, browser.ErrStale)
}

func TestDoLogsToSpecLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_ = DoErr(context.Background(), Spec{MaxRetries: 2, Logger: logger}, func(ctx context.Context) error {
		return browser.ErrStale
	})
	logged := buf.String()
	assert.Contains(t, logged, "retry 1/2")
	assert.Contains(t, logged, "retry 2/2")
	assert.Contains(t, logged, "failed after 2 retries")
	assert.Contains(t, logged, "attempts=3")
}
