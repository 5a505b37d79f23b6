// Package config defines the JSON-serializable configuration model for the
// transaction analytics pipeline. It is intentionally small and decoded with
// the standard library; free-form knobs ride in an Options map with typed
// accessors.
//
// Example (trimmed):
//
//	{
//	  "job": "transaction_analysis",
//	  "sources": {
//	    "transactions": [
//	      {"channel": "web", "path": "data/transactions_web.csv"}
//	    ],
//	    "products": {"path": "data/products.csv"}
//	  },
//	  "storage": {"kind": "sqlite", "dsn": "output/txnalytics.db"},
//	  "views":   {"preview_rows": 5}
//	}
package config

import "encoding/json"

// Pipeline is the top-level object decoded from a pipeline file. Zero values
// are legal everywhere; Normalize fills in the stock single-machine layout so
// an empty file (or no file at all) runs the default analysis.
type Pipeline struct {
	// Job labels the run in logs and metrics.
	Job string `json:"job"`

	// Sources names the transaction channels and the product catalog.
	Sources Sources `json:"sources"`

	// Parser carries CSV reading knobs (has_header, comma, trim_space,
	// header_map) interpreted by the csvsource package.
	Parser Parser `json:"parser"`

	// Views controls preview size and the campaign-impact persistence knob.
	Views Views `json:"views"`

	// Audit controls the data-quality thresholds.
	Audit Audit `json:"audit"`

	// Storage selects the table store the aggregate views are written to.
	Storage Storage `json:"storage"`

	// Report optionally emits an HTML run report.
	Report Report `json:"report"`
}

// Sources lists the input files. Transactions come from N channel files with
// possibly different column sets; Products is the single dimension snapshot.
type Sources struct {
	Transactions []SourceFile `json:"transactions"`
	Products     SourceFile   `json:"products"`
}

// SourceFile is one input file plus the channel label used in logs.
type SourceFile struct {
	Channel string `json:"channel"`
	Path    string `json:"path"`
}

// Parser configures how CSV bytes become records.
type Parser struct {
	Options Options `json:"options"`
}

// Views configures the aggregate view surface.
type Views struct {
	// PreviewRows caps the rows printed per view. Zero means the default (5).
	PreviewRows int `json:"preview_rows"`

	// PersistCampaignImpact also writes the campaign view to storage. The
	// stock behavior computes and displays it without persisting, unlike the
	// other three views; the knob exists so that asymmetry is a visible
	// decision rather than a silent one.
	PersistCampaignImpact bool `json:"persist_campaign_impact"`
}

// Audit configures the data-quality checks.
type Audit struct {
	// PriceOutlierThreshold flags joined rows whose price strictly exceeds
	// it. Zero means the default (10000).
	PriceOutlierThreshold float64 `json:"price_outlier_threshold"`

	// OutlierPreviewRows caps the outlier preview. Zero means the default (5).
	OutlierPreviewRows int `json:"outlier_preview_rows"`
}

// Storage selects the table store backend.
type Storage struct {
	// Kind is a registered backend name: "sqlite", "postgres" or "mssql".
	Kind string `json:"kind"`

	// DSN is the backend connection string. For sqlite it is a file path;
	// the backend creates its parent directory on open.
	DSN string `json:"dsn"`

	// Options carries backend-specific knobs.
	Options Options `json:"options"`
}

// Report configures the optional HTML run report.
type Report struct {
	// HTMLPath is the output file; empty disables the report.
	HTMLPath string `json:"html_path"`
}

// Default returns the stock pipeline: three channel files and the product
// catalog under data/, a sqlite store under output/, five-row previews and
// the 10000 price outlier threshold.
func Default() Pipeline {
	p := Pipeline{
		Job: "transaction_analysis",
		Sources: Sources{
			Transactions: []SourceFile{
				{Channel: "web", Path: "data/transactions_web.csv"},
				{Channel: "mobile", Path: "data/transactions_mobile.csv"},
				{Channel: "instore", Path: "data/transactions_instore.csv"},
			},
			Products: SourceFile{Channel: "catalog", Path: "data/products.csv"},
		},
		Storage: Storage{Kind: "sqlite", DSN: "output/txnalytics.db"},
	}
	p.Normalize()
	return p
}

// Normalize fills unset fields with their defaults. It is idempotent and
// safe on a fully populated Pipeline.
func (p *Pipeline) Normalize() {
	if p.Job == "" {
		p.Job = "transaction_analysis"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	if p.Storage.Options == nil {
		p.Storage.Options = Options{}
	}
	if p.Storage.Kind == "" {
		p.Storage.Kind = "sqlite"
	}
	if p.Storage.Kind == "sqlite" && p.Storage.DSN == "" {
		p.Storage.DSN = "output/txnalytics.db"
	}
	if p.Views.PreviewRows <= 0 {
		p.Views.PreviewRows = 5
	}
	if p.Audit.PriceOutlierThreshold == 0 {
		p.Audit.PriceOutlierThreshold = 10000
	}
	if p.Audit.OutlierPreviewRows <= 0 {
		p.Audit.OutlierPreviewRows = 5
	}
	for i := range p.Sources.Transactions {
		if p.Sources.Transactions[i].Channel == "" {
			p.Sources.Transactions[i].Channel = p.Sources.Transactions[i].Path
		}
	}
	if p.Sources.Products.Channel == "" {
		p.Sources.Products.Channel = "catalog"
	}
}

// Options fetches typed values from arbitrary JSON maps. It performs only
// minimal coercion and returns the provided default when a key is absent or
// of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def. Used for
// single-character parser settings such as the CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// with string values. Non-string values are ignored; a missing key yields an
// empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null options object to a non-nil empty
// map so call sites never nil-check.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
