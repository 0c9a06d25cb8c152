package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
	"github.com/ethereum-optimism/infra/cppunit-explorer/ui"
)

const maxMessageWidth = 80

// suiteGroup is the outcomes of one suite in first-seen order.
type suiteGroup struct {
	name     string
	outcomes []types.Outcome
}

func groupBySuite(outcomes []types.Outcome) []suiteGroup {
	var groups []suiteGroup
	pos := make(map[string]int)
	for _, o := range outcomes {
		name := o.Suite
		if name == "" {
			name = "?"
		}
		i, ok := pos[name]
		if !ok {
			i = len(groups)
			pos[name] = i
			groups = append(groups, suiteGroup{name: name})
		}
		groups[i].outcomes = append(groups[i].outcomes, o)
	}
	return groups
}

func countStates(outcomes []types.Outcome) (passed, failed, skipped, errored int) {
	for _, o := range outcomes {
		switch o.State {
		case types.TestStatePassed:
			passed++
		case types.TestStateFailed:
			failed++
		case types.TestStateSkipped:
			skipped++
		case types.TestStateErrored:
			errored++
		}
	}
	return
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

func stateString(state types.TestState) string {
	switch state {
	case types.TestStatePassed:
		return "PASS"
	case types.TestStateFailed:
		return "FAIL"
	case types.TestStateSkipped:
		return "SKIP"
	case types.TestStateErrored:
		return "ERROR"
	default:
		return strings.ToUpper(string(state))
	}
}

func suiteState(outcomes []types.Outcome) types.TestState {
	passed, failed, skipped, errored := countStates(outcomes)
	switch {
	case errored > 0:
		return types.TestStateErrored
	case failed > 0:
		return types.TestStateFailed
	case passed == 0 && skipped > 0:
		return types.TestStateSkipped
	default:
		return types.TestStatePassed
	}
}

// NewRunTable builds the results table of a run.
func NewRunTable(result *types.RunResult) table.Writer {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("CppUnit Results %s (%s)", result.RunID, formatDuration(result.Duration)))
	t.AppendHeader(table.Row{"Type", "ID", "Name", "Passed", "Failed", "Skipped", "Status", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Name", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Message", WidthMax: maxMessageWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, group := range groupBySuite(result.Outcomes) {
		passed, failed, skipped, _ := countStates(group.outcomes)
		suiteID := ""
		if idx, err := types.ParseIndex(group.outcomes[0].ID); err == nil {
			suiteID = types.SuiteID(idx.Suite)
		}
		t.AppendRow(table.Row{
			"Suite", suiteID, group.name, passed, failed, skipped,
			stateString(suiteState(group.outcomes)), "",
		})
		for i, o := range group.outcomes {
			isLast := i == len(group.outcomes)-1
			t.AppendRow(table.Row{
				"Test",
				o.ID,
				ui.BuildTreePrefix(1, isLast, nil) + o.Case,
				boolToInt(o.State == types.TestStatePassed),
				boolToInt(o.State == types.TestStateFailed),
				boolToInt(o.State == types.TestStateSkipped),
				stateString(o.State),
				o.Message,
			})
		}
		t.AppendSeparator()
	}

	passed, failed, skipped, _ := countStates(result.Outcomes)
	t.AppendFooter(table.Row{
		"TOTAL", "", len(result.Outcomes), passed, failed, skipped, stateString(overallState(result)), "",
	})
	return t
}

func overallState(result *types.RunResult) types.TestState {
	if len(result.Outcomes) == 0 {
		return types.TestStateSkipped
	}
	return suiteState(result.Outcomes)
}

// PrintRunTable renders the results table to w, colored by overall status.
func PrintRunTable(w io.Writer, result *types.RunResult) {
	t := NewRunTable(result)
	t.SetOutputMirror(w)
	switch overallState(result) {
	case types.TestStatePassed:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStateSkipped:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	t.Render()
}

// RunSummaryText renders an uncolored summary suitable for a log file.
func RunSummaryText(result *types.RunResult) string {
	const width = 60
	passed, failed, skipped, errored := countStates(result.Outcomes)

	var b strings.Builder
	b.WriteString(ui.BuildBoxHeader("RUN "+result.RunID, width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Started:  %s", result.StartTime.Format(time.RFC3339)), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Duration: %s", formatDuration(result.Duration)), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Requested: %s", strings.Join(result.Requested, ", ")), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Passed: %d  Failed: %d  Skipped: %d  Errored: %d",
		passed, failed, skipped, errored), width))
	b.WriteString(ui.BuildBoxFooter(width))
	b.WriteString("\n")

	t := NewRunTable(result)
	t.SetStyle(table.StyleLight)
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
