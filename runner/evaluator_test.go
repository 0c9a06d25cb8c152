package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

type testOutcome struct {
	id    string
	state types.TestState
	msg   string
}

func testOutcomes(c *events.Collector) []testOutcome {
	var out []testOutcome
	for _, ev := range c.Filter(types.EventTest) {
		if ev.TestState == types.TestStateRunning {
			continue
		}
		out = append(out, testOutcome{id: ev.Test, state: ev.TestState, msg: ev.Message})
	}
	return out
}

func idx(s, c int) types.Index {
	return types.Index{Suite: s, Case: c}
}

func TestEvaluate(t *testing.T) {
	failed := types.Result{Message: "expected 4 got 5", FilePath: "math.cpp", Line: 12}
	passed := types.Result{Passed: true}

	tests := []struct {
		name      string
		updates   []types.Update
		requested []types.Index
		want      []testOutcome
	}{
		{
			name: "changed and unchanged results are reported",
			updates: []types.Update{
				{Kind: types.ChangedResult, Index: idx(0, 0), Result: failed},
				{Kind: types.Unchanged, Index: idx(0, 1), Result: passed},
			},
			requested: []types.Index{idx(0, 0), idx(0, 1)},
			want: []testOutcome{
				{id: "0.0", state: types.TestStateFailed, msg: "expected 4 got 5"},
				{id: "0.1", state: types.TestStatePassed},
			},
		},
		{
			name: "missing cases are skipped in request order",
			updates: []types.Update{
				{Kind: types.Unchanged, Index: idx(0, 1), Result: passed},
			},
			requested: []types.Index{idx(0, 2), idx(0, 0), idx(0, 1)},
			want: []testOutcome{
				{id: "0.1", state: types.TestStatePassed},
				{id: "0.2", state: types.TestStateSkipped},
				{id: "0.0", state: types.TestStateSkipped},
			},
		},
		{
			name: "new cases and unrequested ids are not reported",
			updates: []types.Update{
				{Kind: types.NewCase, Index: idx(0, 3), Result: passed},
				{Kind: types.NewSuite, Index: idx(1, 0), Result: passed},
				{Kind: types.Unchanged, Index: idx(2, 0), Result: passed},
			},
			requested: []types.Index{idx(0, 0)},
			want: []testOutcome{
				{id: "0.0", state: types.TestStateSkipped},
			},
		},
		{
			name: "a case is reported once",
			updates: []types.Update{
				{Kind: types.Unchanged, Index: idx(0, 0), Result: passed},
				{Kind: types.ChangedResult, Index: idx(0, 0), Result: failed},
			},
			requested: []types.Index{idx(0, 0)},
			want: []testOutcome{
				{id: "0.0", state: types.TestStatePassed},
			},
		},
		{
			name:      "nothing requested",
			updates:   []types.Update{{Kind: types.Unchanged, Index: idx(0, 0), Result: passed}},
			requested: nil,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := events.NewCollector()
			requested := types.NewIndexSet(tt.requested...)
			Evaluate("run", tt.updates, requested, c)

			assert.Equal(t, tt.want, testOutcomes(c))
			assert.Zero(t, requested.Len())
			for _, ev := range c.Events() {
				assert.Equal(t, "run", ev.RunID)
			}
		})
	}
}

func TestEvaluateDisappearance(t *testing.T) {
	rec := newTestReconciler(t)
	rec.Apply(parseFixture(t, "basic_math.xml"), 0)

	updates := rec.Apply(parseFixture(t, "basic_math_partial.xml"), 0)
	cases, err := rec.Store().CaseIndexes(0)
	require.NoError(t, err)

	c := events.NewCollector()
	Evaluate("run", updates, types.NewIndexSet(cases...), c)
	assert.Equal(t, []testOutcome{
		{id: "0.0", state: types.TestStatePassed},
		{id: "0.1", state: types.TestStateSkipped},
	}, testOutcomes(c))
}

// A name listed as both failed and successful in one report is reported with
// its last occurrence, the success.
func TestEvaluateDuplicateNameReportsLastOccurrence(t *testing.T) {
	rec := newTestReconciler(t)
	rec.Apply(parseFixture(t, "basic_math_failed.xml"), 0)

	updates := rec.Apply(parseFixture(t, "duplicate.xml"), 0)
	require.Len(t, updates, 1)
	assert.Equal(t, types.ChangedResult, updates[0].Kind)
	assert.Equal(t, idx(0, 0), updates[0].Index)

	c := events.NewCollector()
	requested := types.NewIndexSet(idx(0, 0))
	Evaluate("run", updates, requested, c)
	assert.Equal(t, []testOutcome{{id: "0.0", state: types.TestStatePassed}}, testOutcomes(c))
	assert.Zero(t, requested.Len())
}
