package types

// TestTreeNodeType defines the type of node in the test tree
type TestTreeNodeType string

const (
	NodeTypeSuite TestTreeNodeType = "suite" // Root or fixture container
	NodeTypeTest  TestTreeNodeType = "test"  // Individual test case
)

// TestInfo describes a single case in the tree handed to the host.
type TestInfo struct {
	Type  TestTreeNodeType `json:"type"`
	ID    string           `json:"id"`
	Label string           `json:"label"`
	File  string           `json:"file,omitempty"` // Only set for failed cases
	Line  int              `json:"line,omitempty"` // Only set for failed cases
}

// TestSuiteInfo describes a suite (or the root) and its children.
type TestSuiteInfo struct {
	Type     TestTreeNodeType `json:"type"`
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Suites   []TestSuiteInfo  `json:"suites,omitempty"`
	Children []TestInfo       `json:"children,omitempty"`
}

// CountTests returns the number of test cases below this node.
func (s TestSuiteInfo) CountTests() int {
	n := len(s.Children)
	for _, child := range s.Suites {
		n += child.CountTests()
	}
	return n
}

// FindTest returns the case with the given identifier, if present.
func (s TestSuiteInfo) FindTest(id string) (TestInfo, bool) {
	for _, child := range s.Children {
		if child.ID == id {
			return child, true
		}
	}
	for _, child := range s.Suites {
		if t, ok := child.FindTest(id); ok {
			return t, true
		}
	}
	return TestInfo{}, false
}
