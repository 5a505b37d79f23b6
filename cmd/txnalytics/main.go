// Command txnalytics runs the transaction analytics batch: it unions the
// channel transaction files, enriches them with the product catalog,
// aggregates the standard views, audits data quality and persists the view
// snapshots to the configured store.
//
// With no -config it runs the built-in default layout (channel files under
// data/, a sqlite store under output/). Metrics are off unless a backend is
// selected via -metrics-backend or METRICS_BACKEND.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"txnalytics/internal/config"
	"txnalytics/internal/metrics"
	"txnalytics/internal/metrics/datadog"
	"txnalytics/internal/metrics/prompush"
	"txnalytics/internal/pipeline"

	// Register every storage backend with the factory; the config picks one
	// at run time.
	_ "txnalytics/internal/storage/all"
)

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

// runner abstracts pipeline execution for CLI tests.
type runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
}

// appDeps carries the side-effecting seams runMain needs, so CLI tests run
// without touching the filesystem, the network or a real pipeline.
type appDeps struct {
	readFile    func(path string) ([]byte, error)
	unmarshal   func(data []byte, v any) error
	newRunner   func(cfg config.Pipeline, logger pipeline.Logger) runner
	initMetrics func(ctx context.Context, jobName, backendName string) (func(), error)
}

func defaultDeps() appDeps {
	return appDeps{
		readFile:  os.ReadFile,
		unmarshal: json.Unmarshal,
		newRunner: func(cfg config.Pipeline, logger pipeline.Logger) runner {
			return pipeline.NewRunner(cfg, logger)
		},
		initMetrics: initMetrics,
	}
}

// runMain is the testable CLI entry point.
//
// Exit codes: 0 on success, 1 when the run (or its setup) fails, 2 on usage
// errors.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("txnalytics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath        = fs.String("config", "", "pipeline config JSON path (empty runs the built-in default)")
		metricsBackend = fs.String("metrics-backend", "", "metrics backend: none, pushgateway or datadog (default $METRICS_BACKEND)")
		validate       = fs.Bool("validate", false, "validate the configuration and exit")
		quiet          = fs.Bool("q", false, "suppress progress logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: txnalytics [-config file] [-metrics-backend name] [-validate]; unexpected argument %q\n", fs.Arg(0))
		return 2
	}

	var cfg config.Pipeline
	if path := strings.TrimSpace(*cfgPath); path != "" {
		data, err := deps.readFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "read config: %v\n", err)
			return 1
		}
		if err := deps.unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(stderr, "parse config: %v\n", err)
			return 1
		}
		cfg.Normalize()
	} else {
		cfg = config.Default()
	}

	if *validate {
		issues := config.Validate(cfg)
		for _, issue := range issues {
			fmt.Fprintf(stderr, "%s: %s\n", issue.Severity, issue.Message)
		}
		if config.HasErrors(issues) {
			fmt.Fprintln(stderr, "configuration is invalid")
			return 1
		}
		fmt.Fprintln(stdout, "configuration is valid")
		return 0
	}

	backendName := *metricsBackend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	cleanup, err := deps.initMetrics(ctx, cfg.Job, backendName)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	var logw io.Writer = stderr
	if *quiet {
		logw = io.Discard
	}
	logger := log.New(logw, "", log.LstdFlags)

	sum, err := deps.newRunner(cfg, logger).Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "ok job=%s joined=%d persisted=%d duration=%s\n",
		sum.Job, sum.JoinedRows, len(sum.Persisted), sum.Duration.Truncate(time.Millisecond))
	return 0
}

// closableBackend is a buffered metrics backend needing a shutdown flush.
type closableBackend interface {
	metrics.Backend
	Close() error
}

// Seams for initMetrics tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (closableBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	newPushBackend = func(jobName, gatewayURL string) (metrics.Backend, error) {
		return prompush.NewBackend(jobName, gatewayURL)
	}
	setMetricsBackend = func(b metrics.Backend) { metrics.SetBackend(b) }
	logPrintf         = log.Printf
)

// initMetrics wires the selected metrics backend into the process and
// returns its cleanup. The cleanup is always non-nil and safe to call once.
// An unknown backend name disables metrics with a log line rather than
// failing the run.
func initMetrics(ctx context.Context, jobName, backendName string) (func(), error) {
	switch backendName {
	case "", "none":
		return func() {}, nil

	case "pushgateway":
		gwURL := os.Getenv("PUSHGATEWAY_URL")
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := newPushBackend(jobName, gwURL)
		if err != nil {
			return func() {}, fmt.Errorf("pushgateway: %w", err)
		}
		setMetricsBackend(b)
		logPrintf("metrics: backend=pushgateway job=%s url=%s", jobName, gwURL)
		return func() {
			if err := metrics.Flush(); err != nil {
				logPrintf("metrics: flush error: %v", err)
			}
		}, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName: jobName,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			return func() {}, fmt.Errorf("datadog: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		logPrintf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}, nil
	}
}
