package printer

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/qodana/pkg/problem"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
)

var severityPalette = map[problem.Severity]string{
	problem.SeverityCritical: "#b71c1c",
	problem.SeverityHigh:     "#e53935",
	problem.SeverityModerate: "#fb8c00",
	problem.SeverityLow:      "#1e88e5",
	problem.SeverityInfo:     "#9e9e9e",
}

// renderChart writes a standalone HTML page with a bar per severity.
func renderChart(w io.Writer, s report.Summary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Qodana problems",
			Subtitle: fmt.Sprintf("%d total", s.Total),
			Left:     "center",
		}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Qodana", Width: "900px", Height: "500px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Problems"}),
	)

	labels := make([]string, 0, len(problem.Severities()))
	data := make([]opts.BarData, 0, len(problem.Severities()))

	for _, sev := range problem.Severities() {
		labels = append(labels, sev.String())
		data = append(data, opts.BarData{
			Value:     s.BySeverity[sev],
			ItemStyle: &opts.ItemStyle{Color: severityPalette[sev]},
		})
	}

	bar.SetXAxis(labels).AddSeries("Problems", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
