package config

import "fmt"

// Issue is one validation finding. Severity is "error" for conditions the
// run cannot start under and "warning" for conditions it can.
type Issue struct {
	Severity string
	Message  string
}

func errorf(format string, args ...any) Issue {
	return Issue{Severity: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) Issue {
	return Issue{Severity: "warning", Message: fmt.Sprintf(format, args...)}
}

// Validate checks a normalized Pipeline and returns its findings, errors
// first. An empty result means the config is runnable.
func Validate(p Pipeline) []Issue {
	var errs, warns []Issue

	if len(p.Sources.Transactions) == 0 {
		errs = append(errs, errorf("sources.transactions is empty; at least one channel file is required"))
	}
	seen := map[string]int{}
	for i, s := range p.Sources.Transactions {
		if s.Path == "" {
			errs = append(errs, errorf("sources.transactions[%d] has no path", i))
		}
		seen[s.Channel]++
	}
	for ch, n := range seen {
		if n > 1 && ch != "" {
			warns = append(warns, warnf("channel %q appears %d times; log lines will be ambiguous", ch, n))
		}
	}
	if p.Sources.Products.Path == "" {
		errs = append(errs, errorf("sources.products.path is empty"))
	}

	if p.Storage.Kind == "" {
		errs = append(errs, errorf("storage.kind is empty"))
	}
	if p.Storage.DSN == "" {
		errs = append(errs, errorf("storage.dsn is empty for kind %q", p.Storage.Kind))
	}

	if p.Audit.PriceOutlierThreshold < 0 {
		warns = append(warns, warnf("audit.price_outlier_threshold is negative (%v); every priced row will be flagged", p.Audit.PriceOutlierThreshold))
	}
	if p.Views.PreviewRows > 100 {
		warns = append(warns, warnf("views.preview_rows=%d; previews this large drown the log", p.Views.PreviewRows))
	}

	return append(errs, warns...)
}

// HasErrors reports whether any finding is severity error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == "error" {
			return true
		}
	}
	return false
}
