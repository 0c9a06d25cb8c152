package types

import "time"

// Outcome is the terminal state reported for one case during a run.
type Outcome struct {
	ID      string    `json:"id"`
	Suite   string    `json:"suite,omitempty"`
	Case    string    `json:"case,omitempty"`
	State   TestState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// RunResult summarizes one invocation of the runner.
type RunResult struct {
	RunID     string        `json:"runId"`
	Requested []string      `json:"requested"`
	Outcomes  []Outcome     `json:"outcomes"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	LogDir    string        `json:"logDir,omitempty"`
}

// Count returns the number of outcomes in the given state.
func (r *RunResult) Count(state TestState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// Failed reports whether any case failed or errored.
func (r *RunResult) Failed() bool {
	return r.Count(TestStateFailed) > 0 || r.Count(TestStateErrored) > 0
}
