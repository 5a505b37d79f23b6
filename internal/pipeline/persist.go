package pipeline

import (
	"context"
	"fmt"
	"time"

	"txnalytics/internal/frame"
	"txnalytics/internal/metrics"
	"txnalytics/internal/storage"
)

// PersistedView records one snapshot write.
type PersistedView struct {
	Table       string
	Rows        int64
	Fingerprint uint64
}

// snapshotColumns derives the storage schema from a view spec: group keys
// store as text, averages as double, counts as bigint.
func snapshotColumns(spec ViewSpec) []storage.Column {
	cols := make([]storage.Column, 0, len(spec.GroupBy)+len(spec.Aggs))
	for _, k := range spec.GroupBy {
		cols = append(cols, storage.Column{Name: k, Type: storage.TypeText})
	}
	for _, a := range spec.Aggs {
		t := storage.TypeDouble
		if a.Kind == frame.AggCount {
			t = storage.TypeBigint
		}
		cols = append(cols, storage.Column{Name: a.As, Type: t})
	}
	return cols
}

// persistViews overwrites one store table per persistable view, the table
// named after the view. Display-only views are logged and skipped. Any
// write error aborts the run.
func persistViews(ctx context.Context, sess *Session, views []View) ([]PersistedView, error) {
	logf := sess.logger()
	var out []PersistedView
	for _, v := range views {
		if !v.Spec.Persist {
			logf("stage=persist table=%s skipped: display-only view", v.Spec.Name)
			continue
		}
		start := time.Now()
		n, err := sess.Store.WriteSnapshot(ctx, v.Spec.Name, snapshotColumns(v.Spec), v.Frame.Rows)
		if err != nil {
			return out, fmt.Errorf("write %s: %w", v.Spec.Name, err)
		}
		fp := v.Frame.Fingerprint()
		logf("stage=persist table=%s rows=%d fingerprint=%016x duration=%s",
			v.Spec.Name, n, fp, durMS(start))
		metrics.RecordSnapshot(sess.Job, v.Spec.Name)
		metrics.RecordRows(sess.Job, "persisted", n)
		out = append(out, PersistedView{Table: v.Spec.Name, Rows: n, Fingerprint: fp})
	}
	return out, nil
}

// optimizeTables runs post-write maintenance on every persisted table.
// Failures are logged per table and the remaining tables still run; the
// first error comes back for metrics only.
func optimizeTables(ctx context.Context, sess *Session, persisted []PersistedView) error {
	logf := sess.logger()
	var firstErr error
	for _, p := range persisted {
		start := time.Now()
		if err := sess.Store.Optimize(ctx, p.Table); err != nil {
			logf("stage=optimize table=%s err=%v", p.Table, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logf("stage=optimize table=%s ok duration=%s", p.Table, durMS(start))
	}
	return firstErr
}
