package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jakopako/extraduty/internal/grid"
)

// StdoutWriter represents a writer that writes to stdout
type StdoutWriter struct {
	out    io.Writer
	logger *slog.Logger
}

// NewStdoutWriter returns a new StdoutWriter
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{
		out:    os.Stdout,
		logger: slog.With(slog.String("writer", string(STDOUT_WRITER_TYPE))),
	}
}

// Write prints the csv of a window, preceded by a comment line with the
// file name it would have been saved as.
func (w *StdoutWriter) Write(name string, schema grid.Schema, records grid.ScrapeResult) (string, error) {
	if _, err := fmt.Fprintf(w.out, "# %s\n", name); err != nil {
		return "", err
	}
	if err := writeCSV(w.out, schema, records); err != nil {
		return "", fmt.Errorf("error while writing csv for %s: %w", name, err)
	}
	w.logger.Debug(fmt.Sprintf("printed %d rows of %s", len(records), name))
	return "stdout", nil
}
