package frame

import "fmt"

// LeftJoin joins f (left) against right on equality of the named key column,
// keeping every left row. Output columns are the left columns in place
// followed by the right columns minus the key. For each left row:
//
//   - one output row per matching right row (duplicate right keys fan out),
//   - exactly one output row with null right fields when nothing matches.
//
// A null key never matches anything, on either side; the left row still
// survives with null right fields. The guarantee callers rely on:
// output row count >= left row count.
//
// Errors: the key column must exist on both sides.
func (f *Frame) LeftJoin(right *Frame, key string) (*Frame, error) {
	if f == nil {
		return nil, fmt.Errorf("left join: left frame is nil")
	}
	if right == nil {
		return nil, fmt.Errorf("left join: right frame is nil")
	}
	leftKey, ok := f.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("left join: column %q missing on left side", key)
	}
	rightKey, ok := right.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("left join: column %q missing on right side", key)
	}

	// Right-side columns carried into the output, key excluded.
	carried := make([]int, 0, len(right.Columns)-1)
	columns := append([]string(nil), f.Columns...)
	for i, c := range right.Columns {
		if i == rightKey {
			continue
		}
		carried = append(carried, i)
		columns = append(columns, c)
	}

	index := make(map[string][]int, len(right.Rows))
	for i, r := range right.Rows {
		if r[rightKey] == nil {
			continue
		}
		k := keyString(r[rightKey])
		index[k] = append(index[k], i)
	}

	rows := make([][]any, 0, len(f.Rows))
	for _, lr := range f.Rows {
		var matches []int
		if lr[leftKey] != nil {
			matches = index[keyString(lr[leftKey])]
		}
		if len(matches) == 0 {
			out := make([]any, len(columns))
			copy(out, lr)
			rows = append(rows, out)
			continue
		}
		for _, ri := range matches {
			out := make([]any, len(columns))
			copy(out, lr)
			rr := right.Rows[ri]
			for j, src := range carried {
				out[len(f.Columns)+j] = rr[src]
			}
			rows = append(rows, out)
		}
	}

	return &Frame{Columns: columns, Rows: rows}, nil
}

// DistinctCount returns the number of distinct non-null values in a column.
// Callers compare it against NumRows to detect duplicate join keys in a
// dimension snapshot.
func (f *Frame) DistinctCount(column string) (int, error) {
	if f == nil {
		return 0, nil
	}
	idx, ok := f.ColumnIndex(column)
	if !ok {
		return 0, fmt.Errorf("distinct count: column %q not found", column)
	}
	seen := make(map[string]bool, len(f.Rows))
	for _, r := range f.Rows {
		if r[idx] == nil {
			continue
		}
		seen[keyString(r[idx])] = true
	}
	return len(seen), nil
}
