// Package runner reconciles CppUnit reports into the model store and drives
// the execution of test binaries.
//
// The main components are:
//   - Reconciler: merges a parsed report into the store and returns the
//     classification of every observed case
//   - Evaluate: turns the classifications of a run into passed, failed and
//     skipped events for the requested cases
//   - Executor: starts a test binary from its own directory and captures its output
//   - Runner: processes requested test ids one suite at a time
package runner
