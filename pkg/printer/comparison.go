package printer

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/terminal"
)

const (
	pathShare    = 3
	messageShare = 5
)

// Comparison renders every change of cmp, followed by per-state totals.
func (p *Printer) Comparison(cmp baseline.Comparison) error {
	counts := cmp.Counts()

	right := fmt.Sprintf("%d new, %d updated, %d unchanged, %d absent",
		counts[problem.StateNew], counts[problem.StateUpdated],
		counts[problem.StateUnchanged], counts[problem.StateAbsent])

	if _, err := fmt.Fprintln(p.out, terminal.DrawHeader("Baseline", right, p.width)); err != nil {
		return err
	}

	if len(cmp.Changes) == 0 {
		_, err := fmt.Fprintln(p.out, "No problems to compare.")

		return err
	}

	_, err := fmt.Fprintln(p.out, p.ComparisonTable(cmp))

	return err
}

// ComparisonTable renders one row per change: state, inspection, path and
// message. Long paths are cut to one line.
func (p *Printer) ComparisonTable(cmp baseline.Comparison) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"State", "Inspection", "Path", "Message"})

	free := max(p.width-stateColumnWidth-minInspectionWidth-4*cellOverhead-1, 2*minInspectionWidth)
	pathWidth := free * pathShare / (pathShare + messageShare)

	for _, state := range problem.BaselineStates() {
		for _, ch := range cmp.Of(state) {
			message := ch.Entry.Message
			if ch.Diff != "" {
				message = ch.Diff
			}

			path := terminal.Truncate(ch.Entry.Path, pathWidth)
			tbl.AppendRow(table.Row{stateLabel(ch.State), ch.Entry.RuleID, path, message})
		}
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: stateColumnWidth, VAlign: text.VAlignMiddle},
		{Number: 2, WidthMax: minInspectionWidth, WidthMaxEnforcer: text.WrapSoft, VAlign: text.VAlignMiddle},
		{Number: 3, WidthMax: pathWidth, VAlign: text.VAlignMiddle},
		{Number: 4, WidthMax: free - pathWidth, WidthMaxEnforcer: text.WrapSoft, VAlign: text.VAlignMiddle},
	})

	return tbl.Render()
}
