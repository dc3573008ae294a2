package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const loggerCtxKey ctxKey = "logger"

// Debug enables debug output on the console and additional debugging
// artifacts such as DOM snapshots of failed windows.
var Debug bool

func level() slog.Level {
	if Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// InitializeDefaultLogger sets a console-only default logger.
func InitializeDefaultLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level()}))
	slog.SetDefault(logger)
}

// RunLog is the logger of one scraper run. Console output is at info level
// (debug with Debug set), the log file always receives debug output.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	file   io.Closer
}

// NewRunLog creates the log file scraper_YYYYmmdd_HHMMSS.log in folder and
// returns a logger writing to both the console and that file. It also
// becomes the slog default.
func NewRunLog(folder string, console io.Writer, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", folder, err)
	}
	path := filepath.Join(folder, fmt.Sprintf("scraper_%s.log", now.Format("20060102_150405")))
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
	}
	handler := fanout{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level()}),
		slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Info(fmt.Sprintf("log file: %s", path))
	return &RunLog{Logger: logger, Path: path, file: file}, nil
}

// Close flushes and closes the log file.
func (r *RunLog) Close() error {
	return r.file.Close()
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
