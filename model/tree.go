package model

import (
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

// Stats summarizes the last known results held by the store.
type Stats struct {
	Suites  int
	Cases   int
	Passed  int
	Failed  int
	Unknown int
}

// Stats counts suites, cases and their last known results.
func (s *Store) Stats() Stats {
	st := Stats{Suites: len(s.suites)}
	for _, e := range s.suites {
		for _, c := range e.suite.Cases {
			st.Cases++
			switch {
			case c.Result == nil:
				st.Unknown++
			case c.Result.Passed:
				st.Passed++
			default:
				st.Failed++
			}
		}
	}
	return st
}

// Tree builds the host-facing test tree. File and line are only attached to
// failed cases.
func (s *Store) Tree() types.TestSuiteInfo {
	root := types.TestSuiteInfo{
		Type:   types.NodeTypeSuite,
		ID:     types.RootID,
		Label:  types.RootID,
		Suites: make([]types.TestSuiteInfo, 0, len(s.suites)),
	}
	for _, e := range s.suites {
		suite := e.suite
		node := types.TestSuiteInfo{
			Type:     types.NodeTypeSuite,
			ID:       types.SuiteID(suite.Index),
			Label:    suite.Name,
			Children: make([]types.TestInfo, 0, len(suite.Cases)),
		}
		for i, c := range suite.Cases {
			info := types.TestInfo{
				Type:  types.NodeTypeTest,
				ID:    types.Index{Suite: suite.Index, Case: i}.String(),
				Label: c.Name,
			}
			if c.Result != nil && !c.Result.Passed {
				info.File = c.Result.FilePath
				info.Line = c.Result.Line
			}
			node.Children = append(node.Children, info)
		}
		root.Suites = append(root.Suites, node)
	}
	return root
}
