// Package report decodes CppUnit XML test reports.
//
// The main components are:
//   - Parse / ParseBytes: decode the TestRun document into failed and successful records
//   - SplitName: decompose a fully qualified case name into suite and case
//   - Loader: read report files and cache parsed documents by content digest
//
// Parsing is all-or-nothing: a malformed document returns an error wrapping
// ErrMalformedReport and no records, so callers can skip the load without
// touching any state they hold.
package report
