package types

import "fmt"

// Result captures the last known outcome of a single test case.
type Result struct {
	Passed      bool
	Message     string // Failure message, empty for passing cases
	FailureType string // CppUnit failure type ("Assertion" or "Error")
	FilePath    string // Source file of the failing assertion
	Line        int    // Line of the failing assertion
}

// SameOutcome reports whether two results agree on the fields that matter for
// change detection. The message text is deliberately not compared.
func (r Result) SameOutcome(other Result) bool {
	return r.Passed == other.Passed &&
		r.FilePath == other.FilePath &&
		r.Line == other.Line
}

// State returns the terminal test state matching this result.
func (r Result) State() TestState {
	if r.Passed {
		return TestStatePassed
	}
	return TestStateFailed
}

// Status is "passed" or "failed", the latter qualified by the failure type
// when the report carried one.
func (r Result) Status() string {
	switch {
	case r.Passed:
		return "passed"
	case r.FailureType != "":
		return fmt.Sprintf("failed (%s)", r.FailureType)
	default:
		return "failed"
	}
}

func (r Result) String() string {
	if r.Passed {
		return r.Status()
	}
	if r.FilePath != "" {
		return fmt.Sprintf("%s at %s:%d: %s", r.Status(), r.FilePath, r.Line, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Status(), r.Message)
}

// Case is a single named test within a suite.
type Case struct {
	Name   string
	Result *Result // nil until a result has been observed
}

// Suite is a named grouping of test cases, the equivalent of a CppUnit fixture.
type Suite struct {
	Name   string
	Index  int     // Positional index, assigned on first sighting
	Source int     // Index of the executable whose report introduced the suite
	Cases  []*Case // Discovery order, append-only
}

// UpdateKind classifies what a reconciliation call changed for one case.
type UpdateKind int

const (
	NewCase UpdateKind = iota
	NewSuite
	ChangedResult
	Unchanged
)

func (k UpdateKind) String() string {
	switch k {
	case NewCase:
		return "new_case"
	case NewSuite:
		return "new_suite"
	case ChangedResult:
		return "changed_result"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// IsKnown reports whether the update refers to a case that existed before the call.
func (k UpdateKind) IsKnown() bool {
	return k == ChangedResult || k == Unchanged
}

// Update is the transient classification of one observed case.
type Update struct {
	Kind   UpdateKind
	Index  Index
	Name   string // Fully qualified case name
	Result Result
}
