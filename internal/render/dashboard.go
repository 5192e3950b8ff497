package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/spikes"
)

// DashboardItem is one system shown on the dashboard.
type DashboardItem struct {
	Name   string
	Result signal.Result
}

func lineData(x, y []float64) []opts.LineData {
	n := min(len(x), len(y))
	data := make([]opts.LineData, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		data = append(data, opts.LineData{Value: []interface{}{x[i], y[i]}})
	}
	return data
}

// WriteDashboard renders a standalone HTML page with one expected
// multiplicity chart per item.
func WriteDashboard(w io.Writer, title string, items []DashboardItem) error {
	page := components.NewPage()
	page.PageTitle = title

	colors := Palette(len(items))
	for i, it := range items {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    it.Name,
				Subtitle: fmt.Sprintf("max planets=%d spikes removed=%d", it.Result.MaxPlanets, spikes.Removed(it.Result.Passes)),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Expected planets"}),
		)
		line.AddSeries("expectation", lineData(it.Result.Time, it.Result.Expectation),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(colors[i])}),
		)
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}
