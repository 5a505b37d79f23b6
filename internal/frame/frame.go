// Package frame implements the in-memory columnar record sets the pipeline
// stages operate on.
//
// A Frame is an immutable snapshot: every operation (union, rename, join,
// cast, group-by, order, filter) returns a new Frame and leaves its inputs
// untouched. Cell values are limited to string, float64, int64, bool and nil
// (null); CSV ingestion produces only string and nil, numeric values appear
// after an explicit cast.
//
// Frames are plain slices rather than column vectors. The pipeline is a
// whole-file batch job; row counts are bounded by input size and every stage
// reads its input exactly once, so the simple representation wins over a
// columnar layout here.
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Frame is an ordered set of columns plus the rows that carry their values.
//
// Invariant: len(row) == len(Columns) for every row. Constructors and
// operations in this package maintain it; New enforces it.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// New constructs a Frame and validates row widths against the column set.
//
// Errors:
//   - a row whose length differs from len(columns) is rejected with its index.
//   - duplicate column names are rejected (joins and casts would be ambiguous).
func New(columns []string, rows [][]any) (*Frame, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("frame: duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("frame: row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// MustNew is New for fixtures where the shape is statically correct.
// It panics on error and has no place on production paths.
func MustNew(columns []string, rows [][]any) *Frame {
	f, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the row count. A nil Frame has zero rows.
func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// ColumnIndex returns the position of a column and whether it exists.
func (f *Frame) ColumnIndex(name string) (int, bool) {
	if f == nil {
		return -1, false
	}
	for i, c := range f.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// ColumnSet is the resolved schema descriptor for a Frame. It is built once
// after reconciliation and consulted for capability checks (for example
// whether the campaign view can be computed) instead of re-probing columns
// per stage.
type ColumnSet map[string]bool

// Has reports whether the named column exists in the descriptor.
func (s ColumnSet) Has(name string) bool { return s[name] }

// ColumnSet returns the schema descriptor for this Frame.
func (f *Frame) ColumnSet() ColumnSet {
	if f == nil {
		return ColumnSet{}
	}
	out := make(ColumnSet, len(f.Columns))
	for _, c := range f.Columns {
		out[c] = true
	}
	return out
}

// Head returns a Frame with at most n leading rows. The column set is shared,
// the row slice is a fresh header over the same immutable rows.
func (f *Frame) Head(n int) *Frame {
	if f == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n:n]}
}

// Filter returns the rows for which keep returns true. Rows are shared with
// the receiver, not copied; callers must not mutate them.
func (f *Frame) Filter(keep func(row []any) bool) *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{Columns: f.Columns}
	for _, r := range f.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// MissingCounts returns, aligned with Columns, the number of rows whose value
// is null or, for float columns, NaN.
func (f *Frame) MissingCounts() []int64 {
	if f == nil {
		return nil
	}
	out := make([]int64, len(f.Columns))
	for _, r := range f.Rows {
		for i, v := range r {
			if isMissing(v) {
				out[i]++
			}
		}
	}
	return out
}

// isMissing reports whether a cell counts as absent for quality purposes.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	fv, ok := v.(float64)
	return ok && math.IsNaN(fv)
}

// keyString reduces a cell value to a canonical string for hash-join and
// group-by lookups. Null maps to the empty string; CSV ingestion never
// produces empty strings (they load as null), so the mapping is unambiguous
// in practice.
func keyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// compositeKey joins per-column key strings with an unprintable separator so
// multi-column group keys cannot collide with single-column ones.
func compositeKey(parts []string) string {
	return strings.Join(parts, "\x1f")
}

// compareValues orders two cell values: null first, then numerics by value,
// then everything else by canonical string. Mixed int64/float64 compare
// numerically. The ordering is total, which OrderBy relies on for
// deterministic output.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	af, aNum := numericValue(a)
	bf, bNum := numericValue(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(keyString(a), keyString(b))
}

// numericValue extracts a float64 view of numeric cell types.
func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
