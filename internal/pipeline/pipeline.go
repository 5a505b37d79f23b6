// Package pipeline orchestrates the transaction analytics batch: load the
// channel transaction files and the product catalog, reconcile their
// schemas, enrich transactions with catalog attributes, aggregate the
// standard views, audit data quality and persist the results as snapshot
// tables.
//
// The entry point is Runner.Run. Stages communicate through immutable
// frame.Frame values and share a Session carrying the per-run dependencies:
// the job label for metrics, the logger and the open store.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"txnalytics/internal/config"
	"txnalytics/internal/csvsource"
	"txnalytics/internal/metrics"
	"txnalytics/internal/report"
	"txnalytics/internal/storage"
)

// Logger is the minimal logging interface used by the pipeline.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }

// Session carries the per-run dependencies every stage needs.
type Session struct {
	Job    string
	Logger Logger
	Store  storage.Store
}

func (s *Session) logger() func(format string, v ...any) {
	if s.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return s.Logger.Printf
}

// Close releases the store and flushes any buffered metrics. Call once, after
// the run.
func (s *Session) Close() {
	if s.Store != nil {
		s.Store.Close()
	}
	if err := metrics.Flush(); err != nil {
		logf := s.logger()
		logf("stage=shutdown metrics flush err=%v", err)
	}
}

// Runner executes one analytics run over a Pipeline config.
type Runner struct {
	Config config.Pipeline
	Logger Logger

	// LoadTable is an optional seam for table ingestion.
	// When nil, csvsource.Load is used.
	LoadTable func(path string, opt config.Options) (*csvsource.Table, error)

	// OpenStore is an optional seam for the snapshot store factory.
	// When nil, storage.Open is used.
	OpenStore func(ctx context.Context, cfg storage.Config) (storage.Store, error)

	now func() time.Time
}

// NewRunner returns a Runner over cfg with the production seams installed.
func NewRunner(cfg config.Pipeline, logger Logger) *Runner {
	return &Runner{
		Config:    cfg,
		Logger:    logger,
		LoadTable: csvsource.Load,
		OpenStore: storage.Open,
		now:       time.Now,
	}
}

func (r *Runner) logger() func(format string, v ...any) {
	if r.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return r.Logger.Printf
}

func (r *Runner) loadTable(path string, opt config.Options) (*csvsource.Table, error) {
	if r.LoadTable != nil {
		return r.LoadTable(path, opt)
	}
	return csvsource.Load(path, opt)
}

func (r *Runner) openStore(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	if r.OpenStore != nil {
		return r.OpenStore(ctx, cfg)
	}
	return storage.Open(ctx, cfg)
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

// Summary is the run outcome handed back to the caller.
type Summary struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration

	// Sources lists every input file in config order, the product catalog
	// last. Err is empty for files that loaded.
	Sources []SourceStatus

	TransactionRows int
	ProductRows     int
	JoinedRows      int

	// NulledPrices counts, per cast column, the cells that text-to-float
	// coercion turned into nulls.
	NulledPrices map[string]int

	// ViewRows maps each computed view to its row count. campaign_impact is
	// present only when a transaction source carried its column.
	ViewRows map[string]int

	// CampaignSkipped is set when no transaction source carried campaign_id.
	CampaignSkipped bool

	// OutlierRows counts joined rows priced strictly above the audit
	// threshold.
	OutlierRows int

	// Persisted lists the snapshot writes in table order.
	Persisted []PersistedView
}

// Run executes the batch: validate config, open the store, load, enrich,
// aggregate and audit concurrently, persist, optimize.
//
// Per-file load failures are skipped with a log line. The run fails only
// when every transaction source fails, when the product catalog fails, or
// when a core stage (join, coercion, aggregation, persistence) fails.
// Post-write optimization failures are logged, never fatal.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cfg := r.Config
	cfg.Normalize()
	logf := r.logger()

	issues := config.Validate(cfg)
	var confErrs []string
	for _, issue := range issues {
		if issue.Severity == "error" {
			confErrs = append(confErrs, issue.Message)
			continue
		}
		logf("stage=config %s: %s", issue.Severity, issue.Message)
	}
	if len(confErrs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(confErrs, "; "))
	}

	store, err := r.openStore(ctx, storage.Config{
		Kind: cfg.Storage.Kind,
		DSN:  os.ExpandEnv(cfg.Storage.DSN),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Kind, err)
	}
	sess := &Session{Job: cfg.Job, Logger: r.Logger, Store: store}
	defer sess.Close()

	start := r.clock()
	sum := &Summary{
		Job:          cfg.Job,
		StartedAt:    start,
		NulledPrices: map[string]int{},
		ViewRows:     map[string]int{},
	}
	logf("stage=start job=%s sources=%d store=%s", cfg.Job, len(cfg.Sources.Transactions), cfg.Storage.Kind)

	loadStart := time.Now()
	txns, products, statuses, err := r.load(sess, cfg)
	metrics.RecordStep(cfg.Job, "load", err, time.Since(loadStart))
	sum.Sources = statuses
	if err != nil {
		return nil, err
	}
	sum.TransactionRows = txns.NumRows()
	sum.ProductRows = products.NumRows()
	metrics.RecordRows(cfg.Job, "transactions", int64(txns.NumRows()))
	metrics.RecordRows(cfg.Job, "products", int64(products.NumRows()))

	// Capability snapshot of the reconciled transaction schema, taken once
	// before product columns join in.
	schema := txns.ColumnSet()
	sum.CampaignSkipped = !schema.Has("campaign_id")

	enrichStart := time.Now()
	joined, casts, err := enrich(sess, txns, products)
	metrics.RecordStep(cfg.Job, "enrich", err, time.Since(enrichStart))
	if err != nil {
		return nil, err
	}
	sum.JoinedRows = joined.NumRows()
	metrics.RecordRows(cfg.Job, "joined", int64(joined.NumRows()))
	for _, rep := range casts {
		sum.NulledPrices[rep.Column] = rep.Nulled()
		metrics.RecordRows(cfg.Job, "nulled_prices", int64(rep.Nulled()))
	}

	var (
		views    []View
		auditRes AuditResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		viewStart := time.Now()
		vs, verr := buildViews(gctx, sess, joined, schema, viewSpecs(cfg.Views))
		metrics.RecordStep(cfg.Job, "views", verr, time.Since(viewStart))
		if verr != nil {
			return verr
		}
		views = vs
		return nil
	})
	g.Go(func() error {
		auditStart := time.Now()
		a, aerr := runAudit(gctx, joined, cfg.Audit)
		metrics.RecordStep(cfg.Job, "audit", aerr, time.Since(auditStart))
		if aerr != nil {
			return aerr
		}
		auditRes = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, v := range views {
		sum.ViewRows[v.Spec.Name] = v.Frame.NumRows()
		logf("stage=aggregate view=%s rows=%d\n%s", v.Spec.Name, v.Frame.NumRows(),
			report.Preview(v.Frame.Columns, v.Frame.Rows, cfg.Views.PreviewRows))
	}
	logAudit(sess, auditRes)
	sum.OutlierRows = auditRes.OutlierCount
	metrics.RecordRows(cfg.Job, "outliers", int64(auditRes.OutlierCount))

	persistStart := time.Now()
	persisted, err := persistViews(ctx, sess, views)
	metrics.RecordStep(cfg.Job, "persist", err, time.Since(persistStart))
	sum.Persisted = persisted
	if err != nil {
		return nil, err
	}

	// Optimization is storage maintenance; a failure leaves the snapshots
	// intact, so it is logged without failing the run.
	optStart := time.Now()
	optErr := optimizeTables(ctx, sess, persisted)
	metrics.RecordStep(cfg.Job, "optimize", optErr, time.Since(optStart))

	sum.Duration = r.clock().Sub(start)
	if cfg.Report.HTMLPath != "" {
		run := buildRunReport(cfg, sum, views, auditRes)
		if rerr := report.SaveHTML(cfg.Report.HTMLPath, run); rerr != nil {
			logf("stage=report path=%s err=%v", cfg.Report.HTMLPath, rerr)
		} else {
			logf("stage=report path=%s ok", cfg.Report.HTMLPath)
		}
	}
	logf("stage=done job=%s joined=%d views=%d persisted=%d duration=%s",
		cfg.Job, sum.JoinedRows, len(views), len(persisted), sum.Duration.Truncate(time.Millisecond))
	return sum, nil
}

// buildRunReport assembles the HTML report model from the run artifacts.
func buildRunReport(cfg config.Pipeline, sum *Summary, views []View, audit AuditResult) report.Run {
	run := report.Run{
		Job:         sum.Job,
		GeneratedAt: sum.StartedAt.Add(sum.Duration),
		Duration:    sum.Duration,
		StoreKind:   cfg.Storage.Kind,
		JoinedRows:  sum.JoinedRows,
	}
	for _, st := range sum.Sources {
		run.Sources = append(run.Sources, report.Source{
			Channel: st.Channel, Path: st.Path, Rows: st.Rows, Err: st.Err,
		})
		if st.Err != "" {
			run.Notes = append(run.Notes, fmt.Sprintf("source %s (%s) skipped: %s", st.Channel, st.Path, st.Err))
		}
	}
	if sum.CampaignSkipped {
		run.Notes = append(run.Notes, "no campaign_id column found in transactions; campaign_impact was not computed")
	}
	for _, v := range views {
		rv := report.View{
			Name:      v.Spec.Name,
			Rows:      v.Frame.NumRows(),
			Persisted: v.Spec.Persist,
			Preview:   report.NewGrid(v.Frame.Columns, v.Frame.Rows, cfg.Views.PreviewRows),
		}
		if v.Spec.Persist {
			rv.Fingerprint = fmt.Sprintf("%016x", v.Frame.Fingerprint())
		}
		run.Views = append(run.Views, rv)
	}
	missing := make([]any, len(audit.Missing))
	for i, n := range audit.Missing {
		missing[i] = n
	}
	run.Audit = report.Audit{
		MissingByColumn:  report.NewGrid(audit.Columns, [][]any{missing}, 0),
		OutlierThreshold: audit.Threshold,
		OutlierCount:     audit.OutlierCount,
	}
	if audit.OutlierPreview != nil && audit.OutlierPreview.NumRows() > 0 {
		run.Audit.OutlierPreview = report.NewGrid(audit.OutlierPreview.Columns, audit.OutlierPreview.Rows, 0)
	}
	return run
}
