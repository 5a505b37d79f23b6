// Package report renders run results for humans: fixed-width text previews
// for the log, and a standalone HTML summary for sharing.
package report

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCell renders a single cell value for display.
// nil prints as "null" so absent data stays visible in previews.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// RenderTable renders a bordered fixed-width table with right-aligned cells:
//
//	+-----------+-----+
//	|customer_id|price|
//	+-----------+-----+
//	|         C1| 10.5|
//	+-----------+-----+
//
// Rows wider or narrower than the header are rendered as-is; missing cells
// print empty. An empty column list renders an empty string.
func RenderTable(columns []string, rows [][]any) string {
	if len(columns) == 0 {
		return ""
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}

	formatted := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j := range columns {
			if j < len(row) {
				cells[j] = FormatCell(row[j])
			}
			if len(cells[j]) > widths[j] {
				widths[j] = len(cells[j])
			}
		}
		formatted[i] = cells
	}

	var b strings.Builder
	writeBorder := func() {
		for _, w := range widths {
			b.WriteString("+")
			b.WriteString(strings.Repeat("-", w))
		}
		b.WriteString("+\n")
	}

	writeBorder()
	for i, c := range columns {
		b.WriteString("|")
		b.WriteString(pad(c, widths[i]))
	}
	b.WriteString("|\n")
	writeBorder()
	for _, cells := range formatted {
		for j, cell := range cells {
			b.WriteString("|")
			b.WriteString(pad(cell, widths[j]))
		}
		b.WriteString("|\n")
	}
	writeBorder()

	return b.String()
}

// Preview renders the first limit rows as a table, with a footer line when
// rows were omitted. limit <= 0 renders every row.
func Preview(columns []string, rows [][]any, limit int) string {
	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	out := RenderTable(columns, shown)
	if len(shown) < len(rows) {
		out += fmt.Sprintf("showing %d of %d rows\n", len(shown), len(rows))
	}
	return out
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
