package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jakopako/extraduty/internal/grid"
)

// FileWriter represents a writer that writes one csv file per window
type FileWriter struct {
	dir    string
	logger *slog.Logger
}

// NewFileWriter returns a new FileWriter
func NewFileWriter(dir string) (*FileWriter, error) {
	if dir == "" {
		return nil, errors.New("output_folder needs to be specified for the FileWriter")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return &FileWriter{
		dir:    dir,
		logger: slog.With(slog.String("writer", string(FILE_WRITER_TYPE))),
	}, nil
}

func (w *FileWriter) Write(name string, schema grid.Schema, records grid.ScrapeResult) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error while trying to open file: %w", err)
	}
	if err := writeCSV(f, schema, records); err != nil {
		f.Close()
		return "", fmt.Errorf("error while writing csv file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	w.logger.Info(fmt.Sprintf("saved: %s (%d rows)", name, len(records)))
	return path, nil
}
