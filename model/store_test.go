package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

var (
	pass = types.Result{Passed: true}
	fail = types.Result{Passed: false, Message: "expected 4 got 5", FilePath: "math.cpp", Line: 12}
)

func TestStore_AddOrUpdate(t *testing.T) {
	s := New()

	kind, idx := s.AddOrUpdate("TestBasicMath", "testAddition", pass)
	assert.Equal(t, types.NewSuite, kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, idx)

	kind, idx = s.AddOrUpdate("TestBasicMath", "testMultiply", pass)
	assert.Equal(t, types.NewCase, kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 1}, idx)

	kind, idx = s.AddOrUpdate("TestStrings", "testConcat", pass)
	assert.Equal(t, types.NewSuite, kind)
	assert.Equal(t, types.Index{Suite: 1, Case: 0}, idx)

	kind, idx = s.AddOrUpdate("TestBasicMath", "testAddition", pass)
	assert.Equal(t, types.Unchanged, kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, idx)

	kind, idx = s.AddOrUpdate("TestBasicMath", "testAddition", fail)
	assert.Equal(t, types.ChangedResult, kind)
	assert.Equal(t, types.Index{Suite: 0, Case: 0}, idx)

	c, err := s.Case(idx)
	require.NoError(t, err)
	require.NotNil(t, c.Result)
	assert.Equal(t, fail, *c.Result, "changed result must be stored")

	// Same outcome with a different message is not a change.
	other := fail
	other.Message = "a different message"
	kind, _ = s.AddOrUpdate("TestBasicMath", "testAddition", other)
	assert.Equal(t, types.Unchanged, kind)
	c, err = s.Case(idx)
	require.NoError(t, err)
	assert.Equal(t, fail.Message, c.Result.Message)

	// A different line is a change.
	moved := fail
	moved.Line = 13
	kind, _ = s.AddOrUpdate("TestBasicMath", "testAddition", moved)
	assert.Equal(t, types.ChangedResult, kind)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"TestBasicMath", "TestStrings"}, s.SuiteNames())
}

func TestStore_OrderingIsDiscoveryNotAlphabetical(t *testing.T) {
	calls := []struct{ suite, test string }{
		{"Zeta", "z2"}, {"Alpha", "a1"}, {"Zeta", "z1"}, {"Mid", "m"}, {"Alpha", "a0"},
	}

	run := func() []types.Index {
		s := New()
		var out []types.Index
		for _, c := range calls {
			_, idx := s.AddOrUpdate(c.suite, c.test, pass)
			out = append(out, idx)
		}
		return out
	}

	first := run()
	assert.Equal(t, []types.Index{
		{Suite: 0, Case: 0}, {Suite: 1, Case: 0}, {Suite: 0, Case: 1}, {Suite: 2, Case: 0}, {Suite: 1, Case: 1},
	}, first)
	assert.Equal(t, first, run(), "ids must be identical across runs")
}

func TestStore_SourceRecordedOnFirstSighting(t *testing.T) {
	s := New()
	s.AddOrUpdateFrom(1, "Suite", "a", pass)
	s.AddOrUpdateFrom(0, "Suite", "b", pass)

	suite, err := s.SuiteByName("Suite")
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Source)
	assert.Len(t, suite.Cases, 2)

	_, err = s.SuiteByName("Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_NotFound(t *testing.T) {
	s := New()
	s.AddOrUpdate("Suite", "a", pass)

	_, err := s.Suite(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Suite(-1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Case(types.Index{Suite: 0, Case: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Case(types.Index{Suite: 5, Case: 0})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CaseIndexes(3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Lookup(t *testing.T) {
	s := New()
	s.AddOrUpdate("Suite", "a", pass)
	s.AddOrUpdate("Suite", "b", pass)

	tests := []struct {
		id       string
		wantKind types.IDKind
		wantErr  error
	}{
		{id: "root", wantKind: types.IDRoot},
		{id: "0", wantKind: types.IDSuite},
		{id: "0.1", wantKind: types.IDCase},
		{id: "1", wantErr: ErrNotFound},
		{id: "0.2", wantErr: ErrNotFound},
		{id: "zero", wantErr: types.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			id, err := s.Lookup(tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, id.Kind)
		})
	}
}

func TestStore_CopiesAreDetached(t *testing.T) {
	s := New()
	s.AddOrUpdate("Suite", "a", fail)

	suite, err := s.Suite(0)
	require.NoError(t, err)
	suite.Cases[0].Result.Passed = true
	suite.Cases[0].Name = "renamed"

	c, err := s.Case(types.Index{})
	require.NoError(t, err)
	assert.False(t, c.Result.Passed)
	assert.Equal(t, "a", c.Name)
}

func TestStore_CaseIndexes(t *testing.T) {
	s := New()
	s.AddOrUpdate("A", "x", pass)
	s.AddOrUpdate("B", "y", pass)
	s.AddOrUpdate("B", "z", pass)

	idx, err := s.CaseIndexes(1)
	require.NoError(t, err)
	assert.Equal(t, []types.Index{{Suite: 1, Case: 0}, {Suite: 1, Case: 1}}, idx)
}
