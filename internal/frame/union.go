package frame

// AppendByName appends other's rows to f, reconciling the two column sets by
// name. The result's columns are f's columns followed by other's unseen
// columns in their first-seen order; rows from either side receive null for
// columns the side lacked.
//
// Either receiver or argument may be nil; the other side is returned as-is
// (shared, not copied), which lets callers fold a sequence of frames without
// a seed value.
func (f *Frame) AppendByName(other *Frame) *Frame {
	if f == nil {
		return other
	}
	if other == nil {
		return f
	}

	columns := append([]string(nil), f.Columns...)
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	for _, c := range other.Columns {
		if _, ok := pos[c]; !ok {
			pos[c] = len(columns)
			columns = append(columns, c)
		}
	}

	// Remap plan for other's rows: source index per output column, -1 = null.
	remap := make([]int, len(columns))
	for i := range remap {
		remap[i] = -1
	}
	for srcIdx, c := range other.Columns {
		remap[pos[c]] = srcIdx
	}

	rows := make([][]any, 0, len(f.Rows)+len(other.Rows))
	if len(columns) == len(f.Columns) {
		rows = append(rows, f.Rows...)
	} else {
		for _, r := range f.Rows {
			padded := make([]any, len(columns))
			copy(padded, r)
			rows = append(rows, padded)
		}
	}
	for _, r := range other.Rows {
		mapped := make([]any, len(columns))
		for i, src := range remap {
			if src >= 0 {
				mapped[i] = r[src]
			}
		}
		rows = append(rows, mapped)
	}

	return &Frame{Columns: columns, Rows: rows}
}

// Rename returns a Frame with column old renamed to new. When old does not
// exist the receiver is returned unchanged; renaming is tolerant the same way
// the rest of the column surface is (absent columns read as null, they do not
// fail the run).
func (f *Frame) Rename(old, new string) *Frame {
	if f == nil {
		return nil
	}
	idx, ok := f.ColumnIndex(old)
	if !ok {
		return f
	}
	columns := append([]string(nil), f.Columns...)
	columns[idx] = new
	return &Frame{Columns: columns, Rows: f.Rows}
}
