package pipeline

import (
	"context"
	"fmt"

	"txnalytics/internal/config"
	"txnalytics/internal/frame"
)

// ViewSpec declares one aggregate view over the joined frame.
type ViewSpec struct {
	Name    string
	GroupBy []string
	Aggs    []frame.AggSpec
	OrderBy []frame.SortKey

	// Requires names a column the view needs. When it is absent from every
	// transaction source the view is skipped with a diagnostic instead of
	// failing the run.
	Requires string

	// Persist marks the view for snapshot storage.
	Persist bool
}

// View pairs a spec with its computed frame.
type View struct {
	Spec  ViewSpec
	Frame *frame.Frame
}

// viewSpecs returns the standard views. Slice order fixes display and
// persistence order.
//
// campaign_impact is computed and displayed but not persisted unless the
// config knob says otherwise; the other three always persist.
func viewSpecs(cfg config.Views) []ViewSpec {
	return []ViewSpec{
		{
			Name:    "avg_order_value",
			GroupBy: []string{"customer_id"},
			Aggs:    []frame.AggSpec{{Kind: frame.AggAvg, Source: "price", As: "avg_order_value"}},
			Persist: true,
		},
		{
			Name:    "popular_products",
			GroupBy: []string{"product_id", "description"},
			Aggs:    []frame.AggSpec{{Kind: frame.AggCount, As: "num_orders"}},
			OrderBy: []frame.SortKey{
				{Column: "num_orders", Desc: true},
				{Column: "product_id"},
				{Column: "description"},
			},
			Persist: true,
		},
		{
			Name:    "popular_categories",
			GroupBy: []string{"category"},
			Aggs:    []frame.AggSpec{{Kind: frame.AggCount, As: "num_orders"}},
			OrderBy: []frame.SortKey{
				{Column: "num_orders", Desc: true},
				{Column: "category"},
			},
			Persist: true,
		},
		{
			Name:    "campaign_impact",
			GroupBy: []string{"campaign_id"},
			Aggs: []frame.AggSpec{
				{Kind: frame.AggCount, As: "num_orders"},
				{Kind: frame.AggAvg, Source: "price", As: "avg_order_value"},
			},
			Requires: "campaign_id",
			Persist:  cfg.PersistCampaignImpact,
		},
	}
}

// buildViews computes every applicable view over the joined frame. schema is
// the reconciled transaction column set consulted for Requires checks.
func buildViews(ctx context.Context, sess *Session, joined *frame.Frame, schema frame.ColumnSet, specs []ViewSpec) ([]View, error) {
	logf := sess.logger()
	views := make([]View, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if spec.Requires != "" && !schema.Has(spec.Requires) {
			logf("stage=aggregate view=%s skipped: no %s column found in transactions", spec.Name, spec.Requires)
			continue
		}
		f, err := joined.GroupBy(spec.GroupBy, spec.Aggs)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", spec.Name, err)
		}
		if len(spec.OrderBy) > 0 {
			f, err = f.OrderBy(spec.OrderBy...)
			if err != nil {
				return nil, fmt.Errorf("order %s: %w", spec.Name, err)
			}
		}
		views = append(views, View{Spec: spec, Frame: f})
	}
	return views, nil
}
