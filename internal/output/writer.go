// Package output provides the writers results are handed to and the run
// summary.
package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jakopako/extraduty/internal/config"
	"github.com/jakopako/extraduty/internal/grid"
)

// Writer defines the interface for all writers that are responsible
// for writing the records of one window to a specific output.
type Writer interface {
	// Write writes records under the given file name and returns where
	// they ended up.
	Write(name string, schema grid.Schema, records grid.ScrapeResult) (string, error)
}

// WriterType encapsulates the type of a writer
// See below constants for possible types
type WriterType string

const (
	STDOUT_WRITER_TYPE WriterType = "stdout"
	FILE_WRITER_TYPE   WriterType = "file"
)

// NewWriter returns a new writer depending on the writer type. dir is the
// folder file writers write to.
func NewWriter(wc *config.WriterConfig, dir string) (Writer, error) {
	switch WriterType(wc.Type) {
	case STDOUT_WRITER_TYPE:
		return NewStdoutWriter(), nil
	case FILE_WRITER_TYPE:
		return NewFileWriter(dir)
	default:
		return nil, fmt.Errorf("writer of type '%s' not implemented", wc.Type)
	}
}

// writeCSV writes the schema as header and one line per record.
func writeCSV(w io.Writer, schema grid.Schema, records grid.ScrapeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Values(schema)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
