package frame

import (
	"fmt"
	"sort"
)

// AggKind selects a reducer for one output statistic.
type AggKind string

const (
	// AggCount counts every row in the group, null values included.
	AggCount AggKind = "count"
	// AggAvg averages the numeric values of Source, excluding nulls. A group
	// with no numeric values yields null.
	AggAvg AggKind = "avg"
)

// AggSpec names one reduced output column. Source is the column the reducer
// reads and is ignored for AggCount.
type AggSpec struct {
	Kind   AggKind
	Source string
	As     string
}

// SortKey orders output by one column; Desc flips the direction.
type SortKey struct {
	Column string
	Desc   bool
}

// groupPlan is the index-resolved form of a group-by request. Resolving
// names once keeps the row loop free of map lookups.
type groupPlan struct {
	keyIdx []int
	aggs   []aggSlot
}

type aggSlot struct {
	kind AggKind
	src  int // -1 for count
}

// groupAcc accumulates one group. keyVals keeps the first-seen original
// values so null keys stay null in the output instead of decaying to their
// canonical lookup string.
type groupAcc struct {
	keyVals []any
	count   int64
	sums    []float64
	ns      []int64
}

// GroupBy partitions rows by the key columns and reduces every partition per
// the agg specs. Output columns are the keys followed by the agg As names;
// groups appear in first-seen row order (callers needing a contract order
// chain OrderBy).
//
// A row whose key values are all null still lands in a group, keyed by null.
// Grouping is a partition: the counts across all groups always sum to the
// input row count.
func (f *Frame) GroupBy(keys []string, aggs []AggSpec) (*Frame, error) {
	if f == nil {
		return nil, fmt.Errorf("group by: frame is nil")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by: no key columns")
	}
	if len(aggs) == 0 {
		return nil, fmt.Errorf("group by: no aggregations")
	}

	plan, err := f.buildGroupPlan(keys, aggs)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*groupAcc)
	order := make([]string, 0, 64)
	keyParts := make([]string, len(plan.keyIdx))

	for _, r := range f.Rows {
		for i, idx := range plan.keyIdx {
			keyParts[i] = keyString(r[idx])
		}
		k := compositeKey(keyParts)

		acc, ok := groups[k]
		if !ok {
			keyVals := make([]any, len(plan.keyIdx))
			for i, idx := range plan.keyIdx {
				keyVals[i] = r[idx]
			}
			acc = &groupAcc{
				keyVals: keyVals,
				sums:    make([]float64, len(plan.aggs)),
				ns:      make([]int64, len(plan.aggs)),
			}
			groups[k] = acc
			order = append(order, k)
		}

		acc.count++
		for i, slot := range plan.aggs {
			if slot.kind != AggAvg {
				continue
			}
			if v, ok := numericValue(r[slot.src]); ok {
				acc.sums[i] += v
				acc.ns[i]++
			}
		}
	}

	columns := make([]string, 0, len(keys)+len(aggs))
	columns = append(columns, keys...)
	for _, a := range aggs {
		columns = append(columns, a.As)
	}

	rows := make([][]any, 0, len(order))
	for _, k := range order {
		acc := groups[k]
		row := make([]any, 0, len(columns))
		row = append(row, acc.keyVals...)
		for i, slot := range plan.aggs {
			switch slot.kind {
			case AggCount:
				row = append(row, acc.count)
			case AggAvg:
				if acc.ns[i] == 0 {
					row = append(row, nil)
				} else {
					row = append(row, acc.sums[i]/float64(acc.ns[i]))
				}
			}
		}
		rows = append(rows, row)
	}

	return &Frame{Columns: columns, Rows: rows}, nil
}

// buildGroupPlan resolves key and agg column names to indices.
func (f *Frame) buildGroupPlan(keys []string, aggs []AggSpec) (groupPlan, error) {
	plan := groupPlan{
		keyIdx: make([]int, len(keys)),
		aggs:   make([]aggSlot, len(aggs)),
	}
	for i, k := range keys {
		idx, ok := f.ColumnIndex(k)
		if !ok {
			return plan, fmt.Errorf("group by: key column %q not found", k)
		}
		plan.keyIdx[i] = idx
	}
	for i, a := range aggs {
		switch a.Kind {
		case AggCount:
			plan.aggs[i] = aggSlot{kind: AggCount, src: -1}
		case AggAvg:
			idx, ok := f.ColumnIndex(a.Source)
			if !ok {
				return plan, fmt.Errorf("group by: avg source column %q not found", a.Source)
			}
			plan.aggs[i] = aggSlot{kind: AggAvg, src: idx}
		default:
			return plan, fmt.Errorf("group by: unsupported aggregation %q", a.Kind)
		}
		if a.As == "" {
			return plan, fmt.Errorf("group by: aggregation %d has no output name", i)
		}
	}
	return plan, nil
}

// OrderBy returns the rows sorted by the given keys in order of precedence.
// The sort is stable and compareValues gives a total order, so equal inputs
// always produce identical output (overwrite-mode reruns depend on that).
func (f *Frame) OrderBy(keys ...SortKey) (*Frame, error) {
	if f == nil {
		return nil, fmt.Errorf("order by: frame is nil")
	}
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos, ok := f.ColumnIndex(k.Column)
		if !ok {
			return nil, fmt.Errorf("order by: column %q not found", k.Column)
		}
		idx[i] = pos
	}

	rows := append([][]any(nil), f.Rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for i, k := range keys {
			c := compareValues(rows[a][idx[i]], rows[b][idx[i]])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	return &Frame{Columns: f.Columns, Rows: rows}, nil
}
