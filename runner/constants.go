package runner

import "time"

const (
	// DefaultExecTimeout applies when an executable has no timeout of its own.
	DefaultExecTimeout = 10 * time.Minute

	// DefaultOutputTailBytes is how much of each output stream is kept per binary run.
	DefaultOutputTailBytes = 1024 * 1024

	// Time given to a killed binary to release its output pipes.
	killWaitDelay = 2 * time.Second

	canceledMessage = "run canceled"
)
