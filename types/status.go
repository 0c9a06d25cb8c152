package types

// TestState is the state of a single case as reported to the host.
type TestState string

const (
	TestStateRunning TestState = "running"
	TestStatePassed  TestState = "passed"
	TestStateFailed  TestState = "failed"
	TestStateSkipped TestState = "skipped"
	TestStateErrored TestState = "errored"
)

// IsTerminal reports whether the state ends a case's participation in a run.
func (s TestState) IsTerminal() bool {
	return s != TestStateRunning
}

// SuiteState is the state of a suite as reported to the host.
type SuiteState string

const (
	SuiteStateRunning   SuiteState = "running"
	SuiteStateCompleted SuiteState = "completed"
)
