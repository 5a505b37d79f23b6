package frame

import (
	"reflect"
	"testing"
)

func TestAppendByName_SameColumns(t *testing.T) {
	t.Parallel()

	a := MustNew([]string{"customer_id", "price"}, [][]any{{"C1", "10"}})
	b := MustNew([]string{"customer_id", "price"}, [][]any{{"C2", "30"}})

	got := a.AppendByName(b)
	if !reflect.DeepEqual(got.Columns, []string{"customer_id", "price"}) {
		t.Fatalf("Columns=%v", got.Columns)
	}
	if got.NumRows() != 2 || got.Rows[1][0] != "C2" {
		t.Fatalf("Rows=%v, want appended C2 row", got.Rows)
	}
}

func TestAppendByName_MissingColumnsFillNull(t *testing.T) {
	t.Parallel()

	web := MustNew(
		[]string{"customer_id", "price", "session_id"},
		[][]any{{"C1", "10", "s-9"}},
	)
	instore := MustNew(
		[]string{"customer_id", "store_id", "price"},
		[][]any{{"C2", "st-4", "30"}},
	)

	got := web.AppendByName(instore)

	// First-seen column order: all of web's, then instore's unseen ones.
	wantCols := []string{"customer_id", "price", "session_id", "store_id"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Fatalf("Columns=%v, want %v", got.Columns, wantCols)
	}

	wantRows := [][]any{
		{"C1", "10", "s-9", nil},
		{"C2", "30", nil, "st-4"},
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Fatalf("Rows=%v, want %v", got.Rows, wantRows)
	}

	// Inputs stay untouched.
	if len(web.Columns) != 3 || len(instore.Columns) != 3 {
		t.Fatalf("AppendByName mutated an input column set")
	}
	if len(web.Rows[0]) != 3 {
		t.Fatalf("AppendByName mutated an input row: %v", web.Rows[0])
	}
}

func TestAppendByName_NilSides(t *testing.T) {
	t.Parallel()

	f := MustNew([]string{"a"}, [][]any{{"1"}})

	var empty *Frame
	if got := empty.AppendByName(f); got != f {
		t.Fatalf("nil.AppendByName(f) should return f unchanged")
	}
	if got := f.AppendByName(nil); got != f {
		t.Fatalf("f.AppendByName(nil) should return f unchanged")
	}
}

func TestAppendByName_FoldsAcrossThreeSources(t *testing.T) {
	t.Parallel()

	var merged *Frame
	sources := []*Frame{
		MustNew([]string{"customer_id", "price"}, [][]any{{"C1", "10"}}),
		MustNew([]string{"customer_id", "price", "campaign_id"}, [][]any{{"C2", "20", "X"}}),
		MustNew([]string{"price", "customer_id"}, [][]any{{"30", "C3"}}),
	}
	for _, s := range sources {
		merged = merged.AppendByName(s)
	}

	if merged.NumRows() != 3 {
		t.Fatalf("NumRows()=%d, want 3", merged.NumRows())
	}
	wantCols := []string{"customer_id", "price", "campaign_id"}
	if !reflect.DeepEqual(merged.Columns, wantCols) {
		t.Fatalf("Columns=%v, want %v", merged.Columns, wantCols)
	}
	// Third source had swapped column order; values must land by name.
	if merged.Rows[2][0] != "C3" || merged.Rows[2][1] != "30" || merged.Rows[2][2] != nil {
		t.Fatalf("row 2 = %v, want [C3 30 <nil>]", merged.Rows[2])
	}
}

func TestRename(t *testing.T) {
	t.Parallel()

	products := MustNew([]string{"product_id", "price"}, [][]any{{"P1", "9.99"}})

	got := products.Rename("price", "product_price")
	if !reflect.DeepEqual(got.Columns, []string{"product_id", "product_price"}) {
		t.Fatalf("Columns=%v", got.Columns)
	}
	if products.Columns[1] != "price" {
		t.Fatalf("Rename mutated input columns: %v", products.Columns)
	}

	// Absent column: no-op, same frame back.
	if same := products.Rename("absent", "x"); same != products {
		t.Fatalf("Rename(absent) should return the receiver unchanged")
	}
}
