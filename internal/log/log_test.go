package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLogWritesConsoleAndFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	dir := t.TempDir()
	var console bytes.Buffer
	now := time.Date(2025, 12, 3, 11, 0, 0, 0, time.UTC)

	rl, err := NewRunLog(dir, &console, now)
	require.NoError(t, err)
	rl.Logger.Debug("only in file")
	rl.Logger.Info("everywhere", slog.Int("rows", 3))
	require.NoError(t, rl.Close())

	assert.True(t, strings.HasSuffix(rl.Path, "scraper_20251203_110000.log"))
	b, err := os.ReadFile(rl.Path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "only in file")
	assert.Contains(t, string(b), "rows=3")
	assert.Contains(t, console.String(), "everywhere")
	assert.NotContains(t, console.String(), "only in file")
}

func TestLoggerFromContext(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), l)
	if LoggerFromContext(ctx) != l {
		t.Fatalf("expected the logger stored in the context")
	}
	if LoggerFromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected the default logger for an empty context")
	}
}
