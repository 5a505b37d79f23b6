package pipeline

import (
	"errors"
	"fmt"
	"time"

	"txnalytics/internal/config"
	"txnalytics/internal/frame"
)

var (
	// ErrNoTransactions means every configured transaction file failed to
	// load, leaving nothing to analyze.
	ErrNoTransactions = errors.New("all transaction sources failed")

	// ErrNoProducts means the product catalog failed to load, leaving the
	// join without a right side.
	ErrNoProducts = errors.New("product catalog failed")
)

// SourceStatus is one input file load outcome.
type SourceStatus struct {
	Channel string
	Path    string
	Rows    int
	Err     string // empty on success
}

// load reads every configured source. Transaction files are folded into one
// frame under the union of their columns; a file missing a column
// contributes nulls for it. Individual transaction failures are logged and
// skipped. The returned error is ErrNoTransactions when none loads and
// wraps ErrNoProducts when the catalog fails.
func (r *Runner) load(sess *Session, cfg config.Pipeline) (txns, products *frame.Frame, statuses []SourceStatus, err error) {
	logf := sess.logger()

	for _, src := range cfg.Sources.Transactions {
		start := time.Now()
		part, lerr := r.loadFrame(src.Path, cfg.Parser.Options)
		st := SourceStatus{Channel: src.Channel, Path: src.Path}
		if lerr != nil {
			st.Err = lerr.Error()
			statuses = append(statuses, st)
			logf("stage=load source=%s path=%s err=%v", src.Channel, src.Path, lerr)
			continue
		}
		st.Rows = part.NumRows()
		statuses = append(statuses, st)
		logf("stage=load source=%s path=%s rows=%d columns=%d duration=%s",
			src.Channel, src.Path, part.NumRows(), len(part.Columns), durMS(start))
		txns = txns.AppendByName(part)
	}
	if txns == nil {
		return nil, nil, statuses, ErrNoTransactions
	}

	start := time.Now()
	src := cfg.Sources.Products
	st := SourceStatus{Channel: src.Channel, Path: src.Path}
	products, perr := r.loadFrame(src.Path, cfg.Parser.Options)
	if perr != nil {
		st.Err = perr.Error()
		statuses = append(statuses, st)
		logf("stage=load source=%s path=%s err=%v", src.Channel, src.Path, perr)
		return nil, nil, statuses, fmt.Errorf("%w: %v", ErrNoProducts, perr)
	}
	st.Rows = products.NumRows()
	statuses = append(statuses, st)
	logf("stage=load source=%s path=%s rows=%d columns=%d duration=%s",
		src.Channel, src.Path, products.NumRows(), len(products.Columns), durMS(start))

	return txns, products, statuses, nil
}

func (r *Runner) loadFrame(path string, opt config.Options) (*frame.Frame, error) {
	tbl, err := r.loadTable(path, opt)
	if err != nil {
		return nil, err
	}
	return frame.New(tbl.Columns, tbl.Rows)
}
