package pipeline

import (
	"context"
	"reflect"
	"testing"

	"txnalytics/internal/config"
	"txnalytics/internal/frame"
)

func TestViewSpecs_OrderAndPersistence(t *testing.T) {
	t.Parallel()

	specs := viewSpecs(config.Views{})
	var names []string
	persist := map[string]bool{}
	for _, s := range specs {
		names = append(names, s.Name)
		persist[s.Name] = s.Persist
	}
	wantNames := []string{"avg_order_value", "popular_products", "popular_categories", "campaign_impact"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("view order=%v, want %v", names, wantNames)
	}
	if persist["campaign_impact"] {
		t.Fatal("campaign_impact persists by default")
	}
	for _, name := range wantNames[:3] {
		if !persist[name] {
			t.Fatalf("%s does not persist", name)
		}
	}

	specs = viewSpecs(config.Views{PersistCampaignImpact: true})
	if !specs[3].Persist {
		t.Fatal("knob does not enable campaign_impact persistence")
	}
}

func TestBuildViews_SkipsWhenRequiredColumnAbsent(t *testing.T) {
	t.Parallel()

	joined := frame.MustNew(
		[]string{"customer_id", "product_id", "description", "category", "price", "product_price"},
		[][]any{{"C1", "P1", "Widget", "Tools", float64(10), float64(9.99)}},
	)
	schema := frame.ColumnSet{"customer_id": true, "product_id": true, "price": true}

	views, err := buildViews(context.Background(), &Session{}, joined, schema, viewSpecs(config.Views{}))
	if err != nil {
		t.Fatalf("buildViews() err=%v", err)
	}
	if len(views) != 3 {
		t.Fatalf("views=%d, want 3 with campaign_impact skipped", len(views))
	}
	for _, v := range views {
		if v.Spec.Name == "campaign_impact" {
			t.Fatal("campaign_impact computed without its column")
		}
	}
}

func TestBuildViews_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	joined := frame.MustNew([]string{"customer_id", "price"}, nil)
	_, err := buildViews(ctx, &Session{}, joined, joined.ColumnSet(), viewSpecs(config.Views{}))
	if err == nil {
		t.Fatal("buildViews() err=nil with canceled context")
	}
}
