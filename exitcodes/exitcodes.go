// Package exitcodes defines the exit codes of cppunit-explorer.
//
// * Success (0): every requested test passed
// * TestFailure (1): at least one test failed, errored or was skipped by a canceled run
// * RuntimeErr (2): configuration errors, unreadable reports and panics
package exitcodes

const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
