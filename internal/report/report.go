package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Run is everything the HTML summary shows about one pipeline execution.
// The pipeline fills it in as stages complete; rendering never reaches back
// into pipeline state.
type Run struct {
	Job         string
	GeneratedAt time.Time
	Duration    time.Duration
	StoreKind   string

	Sources    []Source
	JoinedRows int

	Views []View
	Audit Audit

	// Notes carries run diagnostics worth surfacing, e.g. skipped sources or
	// a missing campaign_id column.
	Notes []string
}

// Source describes one input file load result.
type Source struct {
	Channel string
	Path    string
	Rows    int
	Err     string // empty when the load succeeded
}

// View describes one computed view and, when it was written, its snapshot.
type View struct {
	Name        string
	Rows        int
	Persisted   bool
	Fingerprint string // hex content hash, empty when not computed
	Preview     Grid
}

// Audit summarizes the data quality checks.
type Audit struct {
	MissingByColumn  Grid
	OutlierThreshold float64
	OutlierCount     int
	OutlierPreview   Grid
}

// Grid is a pre-formatted table: every cell already a display string.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// NewGrid formats up to limit rows into a Grid using FormatCell.
// limit <= 0 keeps every row.
func NewGrid(columns []string, rows [][]any, limit int) Grid {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	g := Grid{Columns: columns, Rows: make([][]string, len(rows))}
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j := range columns {
			if j < len(row) {
				cells[j] = FormatCell(row[j])
			}
		}
		g.Rows[i] = cells
	}
	return g
}

// reportHTML is the embedded run summary page, vanilla styling only.
//
//go:embed report.tmpl.html
var reportHTML string

var reportTmpl = template.Must(template.New("report").Parse(reportHTML))

// WriteHTML renders the run summary page to w.
func WriteHTML(w io.Writer, run Run) error {
	if err := reportTmpl.Execute(w, run); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

// SaveHTML renders the run summary to path, creating parent directories.
func SaveHTML(path string, run Run) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if err := WriteHTML(f, run); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	return nil
}
