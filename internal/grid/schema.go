package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Schema is the ordered list of column names rows are mapped onto. The
// first column identifies a job.
type Schema []string

// NewSchema validates columns and returns them as a Schema.
func NewSchema(columns []string) (Schema, error) {
	if len(columns) == 0 {
		return nil, errors.New("schema needs at least one column")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, errors.New("schema columns cannot be empty")
		}
		if seen[c] {
			return nil, fmt.Errorf("column '%s' defined more than once", c)
		}
		seen[c] = true
	}
	return append(Schema(nil), columns...), nil
}

// Identifier returns the name of the first column.
func (s Schema) Identifier() string {
	return s[0]
}

// isSentinel reports whether v is a value of the identifier column that
// only appears in header rows.
func (s Schema) isSentinel(v string) bool {
	switch strings.ToLower(v) {
	case "", strings.ToLower(s.Identifier()), "job #", "job":
		return true
	}
	return false
}

// JobRecord maps every column of a schema to a cell value.
type JobRecord map[string]string

// Values returns the cells of r in schema order.
func (r JobRecord) Values(s Schema) []string {
	vals := make([]string, len(s))
	for i, c := range s {
		vals[i] = r[c]
	}
	return vals
}

// ScrapeResult holds the records of one window in grid order.
type ScrapeResult []JobRecord

// mapRow maps cells positionally onto s. Columns without a cell are empty.
func (s Schema) mapRow(cells []string) JobRecord {
	rec := make(JobRecord, len(s))
	for i, c := range s {
		if i < len(cells) {
			rec[c] = cells[i]
		} else {
			rec[c] = ""
		}
	}
	return rec
}

// Drift is a header cell of the live grid that does not match the column
// configured at its position.
type Drift struct {
	Position int
	Column   string
	Header   string
}

func (d Drift) String() string {
	if d.Header == "" {
		return fmt.Sprintf("column %d '%s' has no header", d.Position+1, d.Column)
	}
	if d.Column == "" {
		return fmt.Sprintf("header %d '%s' is not configured", d.Position+1, d.Header)
	}
	return fmt.Sprintf("column %d is '%s' in the grid but configured as '%s'", d.Position+1, d.Header, d.Column)
}

// HeaderDrift compares header texts with the schema. Small differences in
// spelling or case are tolerated.
func HeaderDrift(s Schema, header []string) []Drift {
	var drift []Drift
	for i := 0; i < max(len(s), len(header)); i++ {
		var col, h string
		if i < len(s) {
			col = s[i]
		}
		if i < len(header) {
			h = header[i]
		}
		if !similar(col, h) {
			drift = append(drift, Drift{Position: i, Column: col, Header: h})
		}
	}
	return drift
}

func similar(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	threshold := max(1, min(len(a), len(b))/4)
	return levenshtein.ComputeDistance(a, b) <= threshold
}
