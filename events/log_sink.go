package events

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

// LogSink writes events to a logger. Outcomes are logged at info level,
// everything else at debug.
type LogSink struct {
	log log.Logger
}

func NewLogSink(logger log.Logger) *LogSink {
	if logger == nil {
		logger = log.Root()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) Emit(ev types.Event) {
	switch ev.Type {
	case types.EventTest:
		if ev.TestState.IsTerminal() {
			s.log.Info("Test finished", "run", ev.RunID, "id", ev.Test, "state", ev.TestState, "message", ev.Message)
			return
		}
		s.log.Debug("Test started", "run", ev.RunID, "id", ev.Test)
	case types.EventSuite:
		s.log.Debug("Suite", "run", ev.RunID, "id", ev.Suite, "state", ev.SuiteState)
	case types.EventLoadFinished:
		tests := 0
		if ev.Tree != nil {
			tests = ev.Tree.CountTests()
		}
		s.log.Debug("Load finished", "tests", tests, "errors", len(ev.LoadErrs))
	default:
		s.log.Debug("Event", "type", ev.Type, "run", ev.RunID)
	}
}
