package types

import "time"

// EventType identifies the kind of event sent to the host.
type EventType string

const (
	EventLoadStarted  EventType = "load-started"
	EventLoadFinished EventType = "load-finished"
	EventRunStarted   EventType = "run-started"
	EventRunFinished  EventType = "run-finished"
	EventSuite        EventType = "suite"
	EventTest         EventType = "test"
)

// Event is a single notification of the outbound host protocol. Only the
// fields relevant to Type are populated.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"runId,omitempty"`
	Time  time.Time `json:"time"`

	// run-started
	Tests []string `json:"tests,omitempty"`

	// load-finished
	Tree     *TestSuiteInfo `json:"suite,omitempty"`
	LoadErrs []string       `json:"errors,omitempty"`

	// suite
	Suite      string     `json:"suiteId,omitempty"`
	SuiteState SuiteState `json:"suiteState,omitempty"`

	// test
	Test      string    `json:"testId,omitempty"`
	TestState TestState `json:"state,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func NewLoadStartedEvent() Event {
	return Event{Type: EventLoadStarted, Time: time.Now()}
}

func NewLoadFinishedEvent(tree TestSuiteInfo, loadErrs []string) Event {
	return Event{Type: EventLoadFinished, Time: time.Now(), Tree: &tree, LoadErrs: loadErrs}
}

func NewRunStartedEvent(runID string, tests []string) Event {
	return Event{Type: EventRunStarted, RunID: runID, Time: time.Now(), Tests: tests}
}

func NewRunFinishedEvent(runID string) Event {
	return Event{Type: EventRunFinished, RunID: runID, Time: time.Now()}
}

func NewSuiteEvent(runID, suiteID string, state SuiteState) Event {
	return Event{Type: EventSuite, RunID: runID, Time: time.Now(), Suite: suiteID, SuiteState: state}
}

func NewTestEvent(runID, testID string, state TestState, message string) Event {
	return Event{Type: EventTest, RunID: runID, Time: time.Now(), Test: testID, TestState: state, Message: message}
}
