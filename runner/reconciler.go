package runner

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/model"
	"github.com/ethereum-optimism/infra/cppunit-explorer/report"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

// Reconciler merges parsed reports into a model store. It is not safe for
// concurrent use; callers serialize passes over the same store.
type Reconciler struct {
	store  *model.Store
	loader *report.Loader
	log    log.Logger
}

func NewReconciler(store *model.Store, loader *report.Loader, logger log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Root()
	}
	return &Reconciler{store: store, loader: loader, log: logger}
}

// Store returns the store this reconciler writes to.
func (r *Reconciler) Store() *model.Store {
	return r.store
}

// Apply merges every record of rep into the store, failures first, and
// returns one update per merged case in call order. When a case appears more
// than once in the report only its last occurrence is merged.
func (r *Reconciler) Apply(rep *report.Report, source int) []types.Update {
	records := rep.Records()

	last := make(map[[2]string]int, len(records))
	for i, rec := range records {
		key := [2]string{rec.Suite, rec.Case}
		if prev, seen := last[key]; seen {
			r.log.Warn("Duplicate test name in report, keeping the last entry",
				"name", rec.FullName, "id", rec.ID, "previous_id", records[prev].ID)
			metrics.RecordDuplicateName()
		}
		last[key] = i
	}

	updates := make([]types.Update, 0, len(last))
	for i, rec := range records {
		if last[[2]string{rec.Suite, rec.Case}] != i {
			continue
		}
		kind, idx := r.store.AddOrUpdateFrom(source, rec.Suite, rec.Case, rec.Result)
		metrics.RecordReconciliation(kind)
		updates = append(updates, types.Update{
			Kind:   kind,
			Index:  idx,
			Name:   rec.FullName,
			Result: rec.Result,
		})
	}

	for _, rej := range rep.Rejected {
		r.log.Warn("Ignoring test with malformed name", "name", rej.Name, "err", rej.Err)
	}
	if n := len(rep.Rejected); n > 0 {
		metrics.RecordRejectedNames(n)
	}
	if rep.StatsMismatch() {
		r.log.Warn("Report statistics disagree with its entries",
			"statistics", rep.Stats.Tests, "entries", rep.Len()+len(rep.Rejected))
	}

	stats := r.store.Stats()
	metrics.RecordModelSize(stats.Suites, stats.Cases)
	r.log.Debug("Report reconciled", "updates", len(updates), "suites", stats.Suites, "cases", stats.Cases)
	return updates
}

// Load reads the report at path and applies it. On error the store is left
// untouched.
func (r *Reconciler) Load(ctx context.Context, path string, source int) ([]types.Update, error) {
	rep, err := r.loader.Load(ctx, path)
	metrics.RecordReportLoad(err)
	if err != nil {
		r.log.Error("Failed to load report", "path", path, "err", err)
		return nil, err
	}
	return r.Apply(rep, source), nil
}
