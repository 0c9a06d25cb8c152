package runner

import (
	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

// Evaluate reports the outcome of every requested case. Cases observed as
// ChangedResult or Unchanged are reported passed or failed in update order
// and removed from requested; whatever is left did not appear in the report
// and is reported skipped in insertion order.
func Evaluate(runID string, updates []types.Update, requested *types.IndexSet, sink events.Sink) {
	for _, u := range updates {
		if !u.Kind.IsKnown() || !requested.Remove(u.Index) {
			continue
		}
		state := u.Result.State()
		msg := ""
		if state == types.TestStateFailed {
			msg = u.Result.Message
		}
		emitOutcome(sink, runID, u.Index, state, msg)
	}
	for _, idx := range requested.Items() {
		emitOutcome(sink, runID, idx, types.TestStateSkipped, "")
	}
}

func emitOutcome(sink events.Sink, runID string, idx types.Index, state types.TestState, msg string) {
	sink.Emit(types.NewTestEvent(runID, idx.String(), state, msg))
	metrics.RecordOutcome(state)
}
