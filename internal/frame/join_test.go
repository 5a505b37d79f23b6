package frame

import (
	"reflect"
	"testing"
)

func testTransactions(t *testing.T) *Frame {
	t.Helper()
	return MustNew(
		[]string{"customer_id", "product_id", "price"},
		[][]any{
			{"C1", "P1", "10"},
			{"C1", "P1", "30"},
			{"C2", "P9", "5"},
			{"C3", nil, "7"},
		},
	)
}

func testProducts(t *testing.T) *Frame {
	t.Helper()
	return MustNew(
		[]string{"product_id", "description", "category", "product_price"},
		[][]any{
			{"P1", "Widget", "Tools", "9.99"},
		},
	)
}

func TestLeftJoin_Basic(t *testing.T) {
	t.Parallel()

	joined, err := testTransactions(t).LeftJoin(testProducts(t), "product_id")
	if err != nil {
		t.Fatalf("LeftJoin() err=%v", err)
	}

	wantCols := []string{"customer_id", "product_id", "price", "description", "category", "product_price"}
	if !reflect.DeepEqual(joined.Columns, wantCols) {
		t.Fatalf("Columns=%v, want %v", joined.Columns, wantCols)
	}
	if joined.NumRows() != 4 {
		t.Fatalf("NumRows()=%d, want 4", joined.NumRows())
	}

	// Matched rows carry product fields.
	if joined.Rows[0][3] != "Widget" || joined.Rows[0][4] != "Tools" {
		t.Fatalf("row 0 missing product fields: %v", joined.Rows[0])
	}
	// Unmatched key keeps the transaction with null product fields.
	if joined.Rows[2][3] != nil || joined.Rows[2][4] != nil || joined.Rows[2][5] != nil {
		t.Fatalf("unmatched row gained product fields: %v", joined.Rows[2])
	}
	// Null key never matches but the row survives.
	if joined.Rows[3][0] != "C3" || joined.Rows[3][3] != nil {
		t.Fatalf("null-key row = %v, want preserved with null product fields", joined.Rows[3])
	}
}

func TestLeftJoin_DuplicateKeysFanOut(t *testing.T) {
	t.Parallel()

	left := MustNew([]string{"customer_id", "product_id"}, [][]any{{"C1", "P1"}})
	right := MustNew(
		[]string{"product_id", "description"},
		[][]any{
			{"P1", "Widget v1"},
			{"P1", "Widget v2"},
		},
	)

	joined, err := left.LeftJoin(right, "product_id")
	if err != nil {
		t.Fatalf("LeftJoin() err=%v", err)
	}
	if joined.NumRows() != 2 {
		t.Fatalf("NumRows()=%d, want 2 (duplicate catalog keys fan out)", joined.NumRows())
	}
	if joined.Rows[0][2] != "Widget v1" || joined.Rows[1][2] != "Widget v2" {
		t.Fatalf("fan-out rows = %v", joined.Rows)
	}
}

func TestLeftJoin_OutputNeverSmallerThanLeft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		right *Frame
	}{
		{name: "empty_catalog", right: MustNew([]string{"product_id", "description"}, nil)},
		{name: "partial_catalog", right: testProducts(t)},
		{
			name: "duplicated_catalog",
			right: MustNew([]string{"product_id", "description", "category", "product_price"}, [][]any{
				{"P1", "Widget", "Tools", "9.99"},
				{"P1", "Widget", "Tools", "9.99"},
			}),
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			left := testTransactions(t)
			joined, err := left.LeftJoin(tc.right, "product_id")
			if err != nil {
				t.Fatalf("LeftJoin() err=%v", err)
			}
			if joined.NumRows() < left.NumRows() {
				t.Fatalf("joined rows=%d < left rows=%d", joined.NumRows(), left.NumRows())
			}
		})
	}
}

func TestLeftJoin_MissingKeyColumn(t *testing.T) {
	t.Parallel()

	noKey := MustNew([]string{"customer_id"}, nil)
	withKey := MustNew([]string{"product_id"}, nil)

	if _, err := noKey.LeftJoin(withKey, "product_id"); err == nil {
		t.Fatalf("LeftJoin with key missing on left: err=nil, want error")
	}
	if _, err := withKey.LeftJoin(noKey, "product_id"); err == nil {
		t.Fatalf("LeftJoin with key missing on right: err=nil, want error")
	}
}

func TestDistinctCount(t *testing.T) {
	t.Parallel()

	f := MustNew([]string{"product_id"}, [][]any{{"P1"}, {"P1"}, {"P2"}, {nil}})
	got, err := f.DistinctCount("product_id")
	if err != nil {
		t.Fatalf("DistinctCount() err=%v", err)
	}
	if got != 2 {
		t.Fatalf("DistinctCount()=%d, want 2 (nulls excluded)", got)
	}
	if _, err := f.DistinctCount("absent"); err == nil {
		t.Fatalf("DistinctCount(absent) err=nil, want error")
	}
}
