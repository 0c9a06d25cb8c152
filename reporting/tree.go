package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
	"github.com/ethereum-optimism/infra/cppunit-explorer/ui"
)

// TreeText renders the test tree with box drawing connectors. Failed cases
// carry their assertion location.
func TreeText(root types.TestSuiteInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d tests)\n", root.Label, root.CountTests())
	for i, suite := range root.Suites {
		lastSuite := i == len(root.Suites)-1
		fmt.Fprintf(&b, "%s%s [%s]\n", ui.BuildTreePrefix(1, lastSuite, nil), suite.Label, suite.ID)
		for j, tc := range suite.Children {
			prefix := ui.BuildTreePrefix(2, j == len(suite.Children)-1, []bool{lastSuite})
			fmt.Fprintf(&b, "%s%s [%s]", prefix, tc.Label, tc.ID)
			if tc.File != "" {
				fmt.Fprintf(&b, " FAILED at %s:%d", tc.File, tc.Line)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PrintModelTable renders one row per known case with its last result.
func PrintModelTable(w io.Writer, suites []types.Suite) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Known Tests")
	t.AppendHeader(table.Row{"Suite", "ID", "Case", "Result", "Location", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", AutoMerge: true},
		{Name: "Message", WidthMax: maxMessageWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	total, failed := 0, 0
	for _, s := range suites {
		for ci, c := range s.Cases {
			total++
			result, location, message := "unknown", "", ""
			if c.Result != nil {
				result = c.Result.Status()
				if !c.Result.Passed {
					failed++
					message = c.Result.Message
					if c.Result.FilePath != "" {
						location = fmt.Sprintf("%s:%d", c.Result.FilePath, c.Result.Line)
					}
				}
			}
			t.AppendRow(table.Row{
				s.Name,
				types.Index{Suite: s.Index, Case: ci}.String(),
				c.Name, result, location, message,
			})
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"TOTAL", "", total, fmt.Sprintf("%d failed", failed), "", ""})
	t.SetStyle(table.StyleLight)
	t.Render()
}
