package pipeline

import (
	"context"
	"fmt"

	"txnalytics/internal/config"
	"txnalytics/internal/frame"
	"txnalytics/internal/report"
)

// AuditResult holds the data quality findings over the joined frame.
type AuditResult struct {
	// Columns and Missing are parallel: Missing[i] counts the null cells in
	// Columns[i].
	Columns []string
	Missing []int64

	Threshold      float64
	OutlierCount   int
	OutlierPreview *frame.Frame
}

// runAudit counts missing values per column and flags rows whose price
// strictly exceeds the configured threshold. A row priced exactly at the
// threshold is not an outlier.
func runAudit(ctx context.Context, joined *frame.Frame, cfg config.Audit) (AuditResult, error) {
	if err := ctx.Err(); err != nil {
		return AuditResult{}, err
	}
	idx, ok := joined.ColumnIndex("price")
	if !ok {
		return AuditResult{}, fmt.Errorf("audit: joined frame has no price column")
	}
	outliers := joined.Filter(func(row []any) bool {
		v, ok := row[idx].(float64)
		return ok && v > cfg.PriceOutlierThreshold
	})
	return AuditResult{
		Columns:        append([]string(nil), joined.Columns...),
		Missing:        joined.MissingCounts(),
		Threshold:      cfg.PriceOutlierThreshold,
		OutlierCount:   outliers.NumRows(),
		OutlierPreview: outliers.Head(cfg.OutlierPreviewRows),
	}, nil
}

// logAudit prints the audit findings: one summary row of per-column missing
// counts, then the outlier count and preview.
func logAudit(sess *Session, a AuditResult) {
	logf := sess.logger()
	row := make([]any, len(a.Missing))
	for i, n := range a.Missing {
		row[i] = n
	}
	logf("stage=audit missing values per column\n%s", report.RenderTable(a.Columns, [][]any{row}))
	logf("stage=audit outliers price_gt=%v count=%d", a.Threshold, a.OutlierCount)
	if a.OutlierCount > 0 {
		logf("stage=audit outlier preview\n%s",
			report.Preview(a.OutlierPreview.Columns, a.OutlierPreview.Rows, 0))
	}
}
