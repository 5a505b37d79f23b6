package frame

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the Frame's full content (column names, row order, cell
// values with their types) into 64 bits. Two frames fingerprint equal iff
// their persisted snapshots would be identical, which makes rerun
// idempotence checkable from a log line without diffing tables.
//
// The encoding is canonical: strings are length-prefixed and every value
// carries a type tag, so no concatenation of values can alias another.
func (f *Frame) Fingerprint() uint64 {
	var columns []string
	var rows [][]any
	if f != nil {
		columns, rows = f.Columns, f.Rows
	}

	h := xxh3.New()
	_, _ = h.WriteString("cols:")
	_, _ = h.WriteString(strconv.Itoa(len(columns)))
	for _, c := range columns {
		writeCanonical(h, c)
	}
	_, _ = h.WriteString("rows:")
	_, _ = h.WriteString(strconv.Itoa(len(rows)))
	for _, r := range rows {
		for _, v := range r {
			writeCanonicalValue(h, v)
		}
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

// writeCanonical appends one length-prefixed string.
func writeCanonical(h *xxh3.Hasher, s string) {
	_, _ = h.WriteString("s")
	_, _ = h.WriteString(strconv.Itoa(len(s)))
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(s)
	_, _ = h.WriteString(";")
}

// writeCanonicalValue appends one type-tagged cell value.
func writeCanonicalValue(h *xxh3.Hasher, v any) {
	switch t := v.(type) {
	case nil:
		_, _ = h.WriteString("n;")
	case string:
		writeCanonical(h, t)
	case float64:
		_, _ = h.WriteString("f")
		_, _ = h.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		_, _ = h.WriteString(";")
	case int64:
		_, _ = h.WriteString("i")
		_, _ = h.WriteString(strconv.FormatInt(t, 10))
		_, _ = h.WriteString(";")
	case int:
		_, _ = h.WriteString("i")
		_, _ = h.WriteString(strconv.Itoa(t))
		_, _ = h.WriteString(";")
	case bool:
		if t {
			_, _ = h.WriteString("b1;")
		} else {
			_, _ = h.WriteString("b0;")
		}
	default:
		writeCanonical(h, keyString(t))
	}
}
