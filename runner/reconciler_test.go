package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/model"
	"github.com/ethereum-optimism/infra/cppunit-explorer/report"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

func TestApplyBasicMath(t *testing.T) {
	rec := newTestReconciler(t)

	updates := rec.Apply(parseFixture(t, "basic_math.xml"), 0)
	require.Len(t, updates, 2)
	assert.Equal(t, types.NewSuite, updates[0].Kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, updates[0].Index)
	assert.Equal(t, types.NewCase, updates[1].Kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 1}, updates[1].Index)

	updates = rec.Apply(parseFixture(t, "basic_math_failed.xml"), 0)
	require.Len(t, updates, 2)
	assert.Equal(t, types.ChangedResult, updates[0].Kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, updates[0].Index)
	assert.False(t, updates[0].Result.Passed)
	assert.Equal(t, "expected 4 got 5", updates[0].Result.Message)
	assert.Equal(t, types.Unchanged, updates[1].Kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 1}, updates[1].Index)

	c, err := rec.Store().Case(types.Index{Suite: 0, Case: 0})
	require.NoError(t, err)
	require.NotNil(t, c.Result)
	assert.False(t, c.Result.Passed)
	assert.Equal(t, "math.cpp", c.Result.FilePath)
	assert.Equal(t, 12, c.Result.Line)
}

func TestApplyIsIdempotent(t *testing.T) {
	rec := newTestReconciler(t)
	rep := parseFixture(t, "two_suites.xml")

	rec.Apply(rep, 0)
	before := rec.Store().Suites()

	updates := rec.Apply(rep, 0)
	for _, u := range updates {
		assert.Equal(t, types.Unchanged, u.Kind, u.Name)
	}
	assert.Equal(t, before, rec.Store().Suites())
}

func TestApplyIsDeterministic(t *testing.T) {
	sequence := []string{"basic_math.xml", "two_suites.xml", "basic_math_failed.xml", "basic_math_partial.xml"}

	run := func() ([]types.Suite, [][]types.Update) {
		rec := newTestReconciler(t)
		var all [][]types.Update
		for _, name := range sequence {
			all = append(all, rec.Apply(parseFixture(t, name), 0))
		}
		return rec.Store().Suites(), all
	}

	suitesA, updatesA := run()
	suitesB, updatesB := run()
	assert.Equal(t, suitesA, suitesB)
	assert.Equal(t, updatesA, updatesB)
}

func TestApplyFailuresFirst(t *testing.T) {
	rec := newTestReconciler(t)
	updates := rec.Apply(parseFixture(t, "two_suites.xml"), 0)

	require.Len(t, updates, 3)
	assert.Equal(t, "TestStrings::testConcat", updates[0].Name)
	assert.Equal(t, types.NewSuite, updates[0].Kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, updates[0].Index)
	assert.Equal(t, types.Index{Suite: 1, Case: 0}, updates[1].Index)
	assert.Equal(t, types.Index{Suite: 1, Case: 1}, updates[2].Index)
}

func TestApplyIgnoresRejectedNames(t *testing.T) {
	rec := newTestReconciler(t)
	rec.Apply(parseFixture(t, "two_suites.xml"), 0)

	assert.Equal(t, []string{"TestStrings", "TestBasicMath"}, rec.Store().SuiteNames())
	_, err := rec.Store().SuiteByName("noseparator")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestApplyDuplicateNameLastWriterWins(t *testing.T) {
	rec := newTestReconciler(t)
	updates := rec.Apply(parseFixture(t, "duplicate.xml"), 0)

	require.Len(t, updates, 1)
	assert.Equal(t, types.NewSuite, updates[0].Kind)
	assert.True(t, updates[0].Result.Passed)

	c, err := rec.Store().Case(types.Index{Suite: 0, Case: 0})
	require.NoError(t, err)
	assert.True(t, c.Result.Passed)
}

func TestApplyDuplicateNameLogsEntryIDs(t *testing.T) {
	var buf bytes.Buffer
	loader, err := report.NewLoader(0)
	require.NoError(t, err)
	rec := NewReconciler(model.New(), loader, log.NewLogger(log.NewTerminalHandler(&buf, false)))

	rec.Apply(parseFixture(t, "duplicate.xml"), 0)
	out := buf.String()
	assert.Contains(t, out, "Duplicate test name in report")
	assert.Contains(t, out, "id=2")
	assert.Contains(t, out, "previous_id=1")
}

func TestApplyRecordsSource(t *testing.T) {
	rec := newTestReconciler(t)
	rec.Apply(parseFixture(t, "basic_math.xml"), 2)
	rec.Apply(parseFixture(t, "two_suites.xml"), 1)

	math, err := rec.Store().SuiteByName("TestBasicMath")
	require.NoError(t, err)
	assert.Equal(t, 2, math.Source)

	strs, err := rec.Store().SuiteByName("TestStrings")
	require.NoError(t, err)
	assert.Equal(t, 1, strs.Source)
}

func TestLoadMalformedReportLeavesStoreUntouched(t *testing.T) {
	rec := newTestReconciler(t)
	rec.Apply(parseFixture(t, "basic_math.xml"), 0)
	before := rec.Store().Suites()

	path := filepath.Join(t.TempDir(), "broken.xml")
	require.NoError(t, os.WriteFile(path, []byte("<TestRun><FailedTests>"), 0644))

	updates, err := rec.Load(context.Background(), path, 0)
	assert.ErrorIs(t, err, report.ErrMalformedReport)
	assert.Nil(t, updates)
	assert.Equal(t, before, rec.Store().Suites())

	_, err = rec.Load(context.Background(), filepath.Join(t.TempDir(), "missing.xml"), 0)
	assert.Error(t, err)
	assert.Equal(t, before, rec.Store().Suites())
}
