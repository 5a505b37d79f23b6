package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CastReport tallies the outcomes of one column cast. The external contract
// collapses every failure to null; the report keeps the split visible so the
// coercion failure rate stays independently observable.
type CastReport struct {
	Column      string
	Parsed      int // finite numeric result
	AlreadyNull int // input was null before the cast
	BadSyntax   int // text that does not parse as a number
	NonFinite   int // text that parses to Inf or NaN
}

// Nulled returns the number of values the cast turned into null.
func (r CastReport) Nulled() int { return r.BadSyntax + r.NonFinite }

// CastFloat returns a Frame whose named column holds float64 or null.
//
// Policy: the cast is a total function. Text that parses to a finite float
// becomes that value; unparseable text and non-finite parses (Inf, NaN)
// become null; null stays null. Nothing is dropped and nothing panics, so a
// bad cell surfaces as an excluded value in downstream averages rather than
// as a run failure.
//
// Errors: only an absent column fails the cast.
func (f *Frame) CastFloat(column string) (*Frame, CastReport, error) {
	report := CastReport{Column: column}
	if f == nil {
		return nil, report, fmt.Errorf("cast float: frame is nil")
	}
	idx, ok := f.ColumnIndex(column)
	if !ok {
		return nil, report, fmt.Errorf("cast float: column %q not found", column)
	}

	rows := make([][]any, len(f.Rows))
	for i, r := range f.Rows {
		out := make([]any, len(r))
		copy(out, r)
		out[idx] = castCell(r[idx], &report)
		rows[i] = out
	}
	return &Frame{Columns: f.Columns, Rows: rows}, report, nil
}

// castCell applies the cast policy to one value and updates the report.
func castCell(v any, report *CastReport) any {
	switch t := v.(type) {
	case nil:
		report.AlreadyNull++
		return nil
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			report.NonFinite++
			return nil
		}
		report.Parsed++
		return t
	case int64:
		report.Parsed++
		return float64(t)
	case int:
		report.Parsed++
		return float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			report.BadSyntax++
			return nil
		}
		if math.IsInf(parsed, 0) || math.IsNaN(parsed) {
			report.NonFinite++
			return nil
		}
		report.Parsed++
		return parsed
	default:
		report.BadSyntax++
		return nil
	}
}
