// Package csvsource loads CSV files into frames.
//
// Every cell loads as text; empty cells (after trimming) load as null. Type
// is a downstream concern: the pipeline casts the columns it needs after the
// join. Header names are normalized to lowercase ASCII snake_case so the
// three channel files can disagree on spelling ("Customer ID", "customer_id",
// "Customér_Id") and still reconcile by name.
package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"txnalytics/internal/config"
)

// Load reads one CSV file into a Frame using the parser options:
//
//	has_header (bool, default true)   first record carries column names
//	comma      (string, default ",")  field delimiter, first rune used
//	trim_space (bool, default true)   trim cells before the empty-as-null check
//	lazy_quotes (bool, default false) tolerate bare quotes mid-field
//	header_map (object)               source header -> column name overrides
func Load(path string, opt config.Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := LoadReader(f, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Table is the loaded form of one CSV file. It mirrors the frame shape so
// the caller can hand it straight to frame.New without re-walking the rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// LoadReader parses CSV bytes from r per the options. See Load.
func LoadReader(r io.Reader, opt config.Options) (*Table, error) {
	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)
	headerMap := opt.StringMap("header_map")

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // short rows pad with null, long rows drop extras

	var columns []string
	if hasHeader {
		hdr, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("missing header row")
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		columns, err = resolveColumns(hdr, headerMap)
		if err != nil {
			return nil, err
		}
	}

	var rows [][]any
	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if columns == nil {
			// Headerless files take synthesized names from the first record.
			columns = make([]string, len(rec))
			for i := range rec {
				columns[i] = fmt.Sprintf("col%d", i)
			}
		}

		row := make([]any, len(columns))
		for i := range columns {
			if i >= len(rec) {
				continue
			}
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	if columns == nil {
		return nil, fmt.Errorf("empty input: no header and no rows")
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// resolveColumns normalizes a header record into unique column names.
//
// Per header cell: trim, strip a BOM on the first cell, then either take the
// header_map override verbatim or normalize (see NormalizeHeader). Duplicate
// or empty resolved names are errors; a join or cast against an ambiguous
// column would silently read the wrong data.
func resolveColumns(hdr []string, headerMap map[string]string) ([]string, error) {
	columns := make([]string, len(hdr))
	seen := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "﻿")
		}
		name, ok := headerMap[h]
		if !ok {
			name = NormalizeHeader(h)
		}
		if name == "" {
			return nil, fmt.Errorf("header cell %d (%q) resolves to an empty column name", i, hdr[i])
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("header cells %d and %d both resolve to column %q", prev, i, name)
		}
		seen[name] = i
		columns[i] = name
	}
	return columns, nil
}
