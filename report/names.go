package report

import (
	"errors"
	"fmt"
	"strings"
)

// Separator delimits the segments of a fully qualified CppUnit case name.
const Separator = "::"

var ErrMalformedName = errors.New("malformed test name")

// Segments splits a fully qualified name on Separator.
func Segments(fullName string) []string {
	return strings.Split(fullName, Separator)
}

// SplitName returns the suite (second to last segment) and case (last
// segment) of a fully qualified name such as "ns::MathTest::testAdd".
// Names with fewer than two segments or empty suite/case segments are rejected.
func SplitName(fullName string) (suite string, testCase string, err error) {
	segments := Segments(fullName)
	if len(segments) < 2 {
		return "", "", fmt.Errorf("%w: %q has no %q separator", ErrMalformedName, fullName, Separator)
	}
	suite = segments[len(segments)-2]
	testCase = segments[len(segments)-1]
	if suite == "" || testCase == "" {
		return "", "", fmt.Errorf("%w: %q has an empty suite or case segment", ErrMalformedName, fullName)
	}
	return suite, testCase, nil
}
