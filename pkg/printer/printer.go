// Package printer renders report summaries for humans and tools.
//
// Text output is a fixed-width table: cells wider than their column are
// soft-wrapped and multi-line rows are vertically centered. Other formats
// (json, yaml, html) carry the same counts.
package printer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/terminal"
)

// Format selects the summary output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatHTML}
}

// ParseFormat resolves a format name; the empty string means text.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return FormatText, nil
	}

	for _, f := range Formats() {
		if strings.EqualFold(name, string(f)) {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Fixed column widths of the summary table.
const (
	severityColumnWidth = 8
	stateColumnWidth    = 9
	countColumnWidth    = 9
	minInspectionWidth  = 12
	cellOverhead        = 3
)

// Printer writes summaries to an output sink.
type Printer struct {
	out    io.Writer
	width  int
	colors map[problem.Severity]*color.Color
	bold   *color.Color
}

// New creates a Printer for out using the terminal configuration.
func New(out io.Writer, cfg terminal.Config) *Printer {
	p := &Printer{
		out:   out,
		width: cfg.Width,
		colors: map[problem.Severity]*color.Color{
			problem.SeverityCritical: color.New(color.FgRed, color.Bold),
			problem.SeverityHigh:     color.New(color.FgRed),
			problem.SeverityModerate: color.New(color.FgYellow),
			problem.SeverityLow:      color.New(color.FgCyan),
			problem.SeverityInfo:     color.New(color.FgWhite),
		},
		bold: color.New(color.Bold),
	}

	if p.width <= 0 {
		p.width = terminal.DefaultWidth
	}

	// Override fatih/color's tty detection.
	for _, c := range p.allColors() {
		if cfg.NoColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}

	return p
}

func (p *Printer) allColors() []*color.Color {
	out := []*color.Color{p.bold}
	for _, sev := range problem.Severities() {
		out = append(out, p.colors[sev])
	}

	return out
}

// Summary renders s in the given format.
func (p *Printer) Summary(s report.Summary, format Format) error {
	switch format {
	case FormatText, "":
		return p.summaryText(s)
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")

		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)

		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatHTML:
		return renderChart(p.out, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (p *Printer) summaryText(s report.Summary) error {
	right := humanize.Comma(int64(s.Total)) + " " + plural(s.Total, "problem")

	if _, err := fmt.Fprintln(p.out, terminal.DrawHeader("Qodana", right, p.width)); err != nil {
		return err
	}

	if len(s.Rows) == 0 {
		_, err := fmt.Fprintln(p.out, "No problems found.")

		return err
	}

	_, err := fmt.Fprintln(p.out, p.SummaryTable(s))

	return err
}

// SummaryTable renders the rows of s as a table no wider than the printer width.
func (p *Printer) SummaryTable(s report.Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	header := table.Row{"Inspection", "Severity"}
	if s.HasBaseline {
		header = append(header, "State")
	}

	header = append(header, "Count")
	tbl.AppendHeader(header)

	for _, r := range s.Rows {
		row := table.Row{r.RuleID, p.severity(r.Severity)}
		if s.HasBaseline {
			row = append(row, stateLabel(r.State))
		}

		row = append(row, humanize.Comma(int64(r.Count)))
		tbl.AppendRow(row)
	}

	tbl.SetColumnConfigs(p.columnConfigs(s.HasBaseline))

	footer := table.Row{"Total", ""}
	if s.HasBaseline {
		footer = append(footer, "")
	}

	footer = append(footer, humanize.Comma(int64(s.Total)))
	tbl.AppendFooter(footer)

	return tbl.Render()
}

func (p *Printer) columnConfigs(withState bool) []table.ColumnConfig {
	fixed := severityColumnWidth + countColumnWidth
	columns := 3

	if withState {
		fixed += stateColumnWidth
		columns++
	}

	inspection := max(p.width-fixed-columns*cellOverhead-1, minInspectionWidth)

	configs := []table.ColumnConfig{
		{Number: 1, WidthMax: inspection, WidthMaxEnforcer: text.WrapSoft, VAlign: text.VAlignMiddle},
		{Number: 2, WidthMax: severityColumnWidth, WidthMaxEnforcer: text.WrapSoft, VAlign: text.VAlignMiddle},
	}

	next := 3
	if withState {
		configs = append(configs, table.ColumnConfig{
			Number: next, WidthMax: stateColumnWidth, WidthMaxEnforcer: text.WrapSoft, VAlign: text.VAlignMiddle,
		})
		next++
	}

	configs = append(configs, table.ColumnConfig{
		Number: next, WidthMax: countColumnWidth, Align: text.AlignRight,
		AlignFooter: text.AlignRight, VAlign: text.VAlignMiddle,
	})

	return configs
}

func (p *Printer) severity(s problem.Severity) string {
	c, ok := p.colors[s]
	if !ok {
		return s.String()
	}

	return c.Sprint(s.String())
}

// Status prints the exit status description, if any.
func (p *Printer) Status(st exitstatus.Status) error {
	if st.Success() || st.Description == "" {
		return nil
	}

	_, err := fmt.Fprintln(p.out, p.bold.Sprint(st.Description))

	return err
}

func stateLabel(s problem.BaselineState) string {
	if s == "" {
		return "-"
	}

	label := strings.ToLower(string(s))

	return strings.ToUpper(label[:1]) + label[1:]
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}
