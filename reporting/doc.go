// Package reporting renders test trees and run results for terminals and
// run logs.
package reporting
