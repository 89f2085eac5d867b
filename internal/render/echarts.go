package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/mapworks/censusmap/internal/model"
)

// WriteChart renders an interactive HTML bar chart of the styled measure per
// region, colored by the same class breaks the map uses. Unmatched regions
// are omitted (they have no value to plot).
func WriteChart(w io.Writer, regions []model.Region, style Style) error {
	type entry struct {
		name  string
		value float64
	}

	var entries []entry
	for _, r := range regions {
		if v, ok := r.Measure(style.Measure); ok {
			entries = append(entries, entry{name: r.RegionName, value: v})
		}
	}
	if len(entries) == 0 {
		return eris.Errorf("render: no region carries measure %q", style.Measure)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].value > entries[j].value })

	names := make([]string, len(entries))
	data := make([]opts.BarData, len(entries))
	maxVal := entries[0].value
	for i, e := range entries {
		names[i] = e.name
		data[i] = opts.BarData{Value: e.value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: style.Title,
			Width:     "1100px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    style.Title,
			Subtitle: fmt.Sprintf("measure=%s regions=%d", style.Measure, len(entries)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: style.Colors()},
		}),
	)
	bar.SetXAxis(names)
	bar.AddSeries(style.Measure, data)

	if err := bar.Render(w); err != nil {
		return eris.Wrap(err, "render: echarts render")
	}
	return nil
}
