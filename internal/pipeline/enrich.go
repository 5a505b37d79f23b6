package pipeline

import (
	"fmt"

	"txnalytics/internal/frame"
)

// priceColumns are cast to float64 after the join, in this order.
var priceColumns = [2]string{"price", "product_price"}

// enrich joins transactions with the product catalog and coerces the price
// columns to float64.
//
// The catalog price is renamed product_price before the join so the
// transaction price keeps its name. The join is left-outer on product_id:
// transactions with no catalog match keep null product fields, duplicate
// catalog keys fan out, and the output never has fewer rows than the input.
// Coercion is total: a cell that does not parse as a finite float becomes
// null and is counted in the returned reports.
func enrich(sess *Session, txns, products *frame.Frame) (*frame.Frame, []frame.CastReport, error) {
	logf := sess.logger()
	catalog := products.Rename("price", "product_price")

	if keys, err := catalog.DistinctCount("product_id"); err == nil && keys != catalog.NumRows() {
		logf("stage=join catalog rows=%d product_id keys=%d; duplicate keys fan out", catalog.NumRows(), keys)
	}

	joined, err := txns.LeftJoin(catalog, "product_id")
	if err != nil {
		return nil, nil, fmt.Errorf("join transactions with catalog: %w", err)
	}
	logf("stage=join rows_in=%d rows_out=%d", txns.NumRows(), joined.NumRows())

	reports := make([]frame.CastReport, 0, len(priceColumns))
	for _, col := range priceColumns {
		var rep frame.CastReport
		joined, rep, err = joined.CastFloat(col)
		if err != nil {
			return nil, nil, fmt.Errorf("coerce %s: %w", col, err)
		}
		logf("stage=coerce column=%s parsed=%d already_null=%d bad_syntax=%d non_finite=%d",
			col, rep.Parsed, rep.AlreadyNull, rep.BadSyntax, rep.NonFinite)
		reports = append(reports, rep)
	}
	return joined, reports, nil
}
