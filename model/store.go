// Package model holds the append-only tree of suites and cases discovered
// across report loads, and assigns their positional identifiers.
package model

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

var ErrNotFound = errors.New("test not found")

// Store is the ordered, append-only collection of suites and cases.
//
// Suite and case positions are assigned on first sighting and never change,
// which makes "<suite>.<case>" a stable identifier for the life of the store.
// Suites are never removed and cases are never reordered.
//
// Store is not safe for concurrent use; callers serialize reconciliation passes.
type Store struct {
	suites []*suiteEntry
	byName *linkedhashmap.Map // suite name -> *suiteEntry, in discovery order
}

type suiteEntry struct {
	suite *types.Suite
	cases map[string]int // case name -> position
}

// New creates an empty store.
func New() *Store {
	return &Store{byName: linkedhashmap.New()}
}

// AddOrUpdate merges one observed case into the store. New suites are
// attributed to executable 0.
func (s *Store) AddOrUpdate(suiteName, caseName string, result types.Result) (types.UpdateKind, types.Index) {
	return s.AddOrUpdateFrom(0, suiteName, caseName, result)
}

// AddOrUpdateFrom merges one observed case into the store and classifies the
// change. source identifies the executable that produced the report; it is
// only recorded when the suite is first seen.
func (s *Store) AddOrUpdateFrom(source int, suiteName, caseName string, result types.Result) (types.UpdateKind, types.Index) {
	if v, found := s.byName.Get(suiteName); found {
		entry := v.(*suiteEntry)
		if pos, ok := entry.cases[caseName]; ok {
			idx := types.Index{Suite: entry.suite.Index, Case: pos}
			c := entry.suite.Cases[pos]
			if c.Result != nil && c.Result.SameOutcome(result) {
				return types.Unchanged, idx
			}
			stored := result
			c.Result = &stored
			return types.ChangedResult, idx
		}

		stored := result
		entry.suite.Cases = append(entry.suite.Cases, &types.Case{Name: caseName, Result: &stored})
		pos := len(entry.suite.Cases) - 1
		entry.cases[caseName] = pos
		return types.NewCase, types.Index{Suite: entry.suite.Index, Case: pos}
	}

	stored := result
	suite := &types.Suite{
		Name:   suiteName,
		Index:  len(s.suites),
		Source: source,
		Cases:  []*types.Case{{Name: caseName, Result: &stored}},
	}
	entry := &suiteEntry{
		suite: suite,
		cases: map[string]int{caseName: 0},
	}
	s.suites = append(s.suites, entry)
	s.byName.Put(suiteName, entry)
	return types.NewSuite, types.Index{Suite: suite.Index, Case: 0}
}

// Len returns the number of suites.
func (s *Store) Len() int {
	return len(s.suites)
}

// SuiteNames returns suite names in discovery order.
func (s *Store) SuiteNames() []string {
	keys := s.byName.Keys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.(string))
	}
	return names
}

// Suite returns a copy of the suite at position i.
func (s *Store) Suite(i int) (types.Suite, error) {
	if i < 0 || i >= len(s.suites) {
		return types.Suite{}, fmt.Errorf("%w: suite %d", ErrNotFound, i)
	}
	return copySuite(s.suites[i].suite), nil
}

// SuiteByName returns a copy of the named suite.
func (s *Store) SuiteByName(name string) (types.Suite, error) {
	v, found := s.byName.Get(name)
	if !found {
		return types.Suite{}, fmt.Errorf("%w: suite %q", ErrNotFound, name)
	}
	return copySuite(v.(*suiteEntry).suite), nil
}

// Case returns a copy of the case at idx.
func (s *Store) Case(idx types.Index) (types.Case, error) {
	if idx.Suite < 0 || idx.Suite >= len(s.suites) {
		return types.Case{}, fmt.Errorf("%w: %s", ErrNotFound, idx)
	}
	cases := s.suites[idx.Suite].suite.Cases
	if idx.Case < 0 || idx.Case >= len(cases) {
		return types.Case{}, fmt.Errorf("%w: %s", ErrNotFound, idx)
	}
	return copyCase(cases[idx.Case]), nil
}

// CaseIndexes returns the identifiers of every case in a suite, in declared order.
func (s *Store) CaseIndexes(suite int) ([]types.Index, error) {
	if suite < 0 || suite >= len(s.suites) {
		return nil, fmt.Errorf("%w: suite %d", ErrNotFound, suite)
	}
	n := len(s.suites[suite].suite.Cases)
	out := make([]types.Index, n)
	for i := range n {
		out[i] = types.Index{Suite: suite, Case: i}
	}
	return out, nil
}

// Lookup parses an identifier and checks that it refers to an existing node.
func (s *Store) Lookup(id string) (types.ID, error) {
	parsed, err := types.ParseID(id)
	if err != nil {
		return types.ID{}, err
	}
	switch parsed.Kind {
	case types.IDSuite:
		if _, err := s.Suite(parsed.Index.Suite); err != nil {
			return types.ID{}, err
		}
	case types.IDCase:
		if _, err := s.Case(parsed.Index); err != nil {
			return types.ID{}, err
		}
	}
	return parsed, nil
}

// Suites returns copies of all suites in positional order.
func (s *Store) Suites() []types.Suite {
	out := make([]types.Suite, 0, len(s.suites))
	for _, e := range s.suites {
		out = append(out, copySuite(e.suite))
	}
	return out
}

func copySuite(src *types.Suite) types.Suite {
	dst := *src
	dst.Cases = make([]*types.Case, len(src.Cases))
	for i, c := range src.Cases {
		cp := copyCase(c)
		dst.Cases[i] = &cp
	}
	return dst
}

func copyCase(src *types.Case) types.Case {
	dst := types.Case{Name: src.Name}
	if src.Result != nil {
		r := *src.Result
		dst.Result = &r
	}
	return dst
}
