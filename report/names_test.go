package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantSuite string
		wantCase  string
		wantErr   bool
	}{
		{name: "suite and case", input: "TestBasicMath::testAddition", wantSuite: "TestBasicMath", wantCase: "testAddition"},
		{name: "nested namespace uses innermost fixture", input: "ns::inner::MathTest::testAdd", wantSuite: "MathTest", wantCase: "testAdd"},
		{name: "no separator", input: "testAddition", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "empty case", input: "MathTest::", wantErr: true},
		{name: "empty suite", input: "::testAdd", wantErr: true},
		{name: "single colon is not a separator", input: "MathTest:testAdd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite, testCase, err := SplitName(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuite, suite)
			assert.Equal(t, tt.wantCase, testCase)
		})
	}
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Segments("a::b::c"))
	assert.Equal(t, []string{"abc"}, Segments("abc"))
}
