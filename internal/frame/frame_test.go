package frame

import (
	"math"
	"reflect"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		rows    [][]any
		wantErr bool
	}{
		{
			name:    "ok",
			columns: []string{"a", "b"},
			rows:    [][]any{{"1", "2"}, {nil, "3"}},
		},
		{
			name:    "empty_rows_ok",
			columns: []string{"a"},
			rows:    nil,
		},
		{
			name:    "duplicate_column",
			columns: []string{"a", "a"},
			wantErr: true,
		},
		{
			name:    "row_width_mismatch",
			columns: []string{"a", "b"},
			rows:    [][]any{{"1"}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.columns, tc.rows)
			if (err != nil) != tc.wantErr {
				t.Fatalf("New() err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestColumnIndexAndSet(t *testing.T) {
	t.Parallel()

	f := MustNew([]string{"customer_id", "price"}, nil)

	if idx, ok := f.ColumnIndex("price"); !ok || idx != 1 {
		t.Fatalf("ColumnIndex(price)=(%d,%v), want (1,true)", idx, ok)
	}
	if _, ok := f.ColumnIndex("absent"); ok {
		t.Fatalf("ColumnIndex(absent) ok=true, want false")
	}

	set := f.ColumnSet()
	if !set.Has("customer_id") || set.Has("campaign_id") {
		t.Fatalf("ColumnSet()=%v, want customer_id present and campaign_id absent", set)
	}

	var nilFrame *Frame
	if got := nilFrame.ColumnSet(); len(got) != 0 {
		t.Fatalf("nil frame ColumnSet()=%v, want empty", got)
	}
}

func TestHead(t *testing.T) {
	t.Parallel()

	f := MustNew([]string{"a"}, [][]any{{"1"}, {"2"}, {"3"}})

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "zero", n: 0, want: 0},
		{name: "partial", n: 2, want: 2},
		{name: "beyond_len", n: 9, want: 3},
		{name: "negative_clamps", n: -1, want: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := f.Head(tc.n).NumRows(); got != tc.want {
				t.Fatalf("Head(%d).NumRows()=%d, want %d", tc.n, got, tc.want)
			}
		})
	}

	// Head must not widen back into the parent when appended to.
	h := f.Head(1)
	h.Rows = append(h.Rows, []any{"x"})
	if f.Rows[1][0] != "2" {
		t.Fatalf("Head aliased parent rows: %v", f.Rows)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	f := MustNew([]string{"price"}, [][]any{{float64(5)}, {nil}, {float64(20)}})
	got := f.Filter(func(row []any) bool {
		v, ok := row[0].(float64)
		return ok && v > 10
	})
	if got.NumRows() != 1 || got.Rows[0][0] != float64(20) {
		t.Fatalf("Filter kept %v, want single row [20]", got.Rows)
	}
	if f.NumRows() != 3 {
		t.Fatalf("Filter mutated input: %d rows", f.NumRows())
	}
}

func TestMissingCounts(t *testing.T) {
	t.Parallel()

	f := MustNew(
		[]string{"id", "price", "category"},
		[][]any{
			{"t1", float64(10), "tools"},
			{"t2", nil, nil},
			{"t3", math.NaN(), "toys"},
			{nil, float64(3), "toys"},
		},
	)

	got := f.MissingCounts()
	want := []int64{1, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingCounts()=%v, want %v", got, want)
	}
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "P1", want: "P1"},
		{name: "float_trims_trailing_zero", in: float64(10), want: "10"},
		{name: "float_fraction", in: 9.99, want: "9.99"},
		{name: "int64", in: int64(42), want: "42"},
		{name: "bool", in: true, want: "true"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := keyString(tc.in); got != tc.want {
				t.Fatalf("keyString(%v)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "nil_first", a: nil, b: "x", want: -1},
		{name: "nil_equal", a: nil, b: nil, want: 0},
		{name: "numeric", a: float64(2), b: float64(10), want: -1},
		{name: "mixed_numeric_types", a: int64(3), b: float64(3), want: 0},
		{name: "strings", a: "P1", b: "P2", want: -1},
		{name: "string_after_nil", a: "a", b: nil, want: 1},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := compareValues(tc.a, tc.b); got != tc.want {
				t.Fatalf("compareValues(%v,%v)=%d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
