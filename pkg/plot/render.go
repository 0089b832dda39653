package plot

import (
	"math"
	"strings"

	"hicutils/pkg/clone"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var SizeMetrics = []string{clone.FieldClones, clone.FieldCopies, clone.FieldUniques}

// Palette is the default categorical colour cycle.
var Palette = []string{
	"1f77b4", "ff7f0e", "2ca02c", "d62728", "9467bd",
	"8c564b", "e377c2", "7f7f7f", "bcbd22", "17becf",
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func paletteColor(i int) drawing.Color {
	return color(Palette[i%len(Palette)])
}

// series is one named curve on a shared x axis.
type series struct {
	Name  string
	Color string
	X     []float64
	Y     []float64
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 3,
		StrokeColor: col,
	}
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

func xyChart(title, xName, yName string, curves []series, points bool, ticks []chart.Tick) *chart.Chart {
	var graph = &chart.Chart{
		Title:  title,
		Width:  1200,
		Height: 800,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: xName, Ticks: ticks},
		YAxis: chart.YAxis{Name: yName},
	}
	for i, c := range curves {
		var col = paletteColor(i)
		if c.Color != "" {
			col = color(c.Color)
		}
		var style = lineStyle(col)
		if points {
			style = pointStyle(col)
		}
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    c.Name,
			XValues: c.X,
			YValues: c.Y,
			Style:   style,
		})
	}
	padAxes(graph, curves)
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph
}

// padAxes widens single valued axes, go-chart refuses a zero width range.
func padAxes(graph *chart.Chart, curves []series) {
	var xs, ys []float64
	for _, c := range curves {
		xs = append(xs, c.X...)
		ys = append(ys, c.Y...)
	}
	for _, t := range graph.XAxis.Ticks {
		xs = append(xs, t.Value)
	}
	if len(xs) > 0 {
		low, high := extent(xs)
		if low == high {
			if len(graph.XAxis.Ticks) > 0 {
				graph.XAxis.Ticks = append(
					append([]chart.Tick{{Value: low - 1}}, graph.XAxis.Ticks...),
					chart.Tick{Value: high + 1},
				)
			} else {
				graph.XAxis.Range = &chart.ContinuousRange{Min: low - 1, Max: high + 1}
			}
		}
	}
	if len(ys) > 0 {
		low, high := extent(ys)
		if low == high {
			low = math.Min(0, low)
			graph.YAxis.Range = &chart.ContinuousRange{Min: low, Max: math.Max(high, low+1)}
		}
	}
}

// extent is the min and max of the finite values, 0 0 when there are none.
func extent(values []float64) (low, high float64) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		low, high = math.Min(low, v), math.Max(high, v)
	}
	if low > high {
		return 0, 0
	}
	return low, high
}

func barChart(title, yName string, labels []string, values []float64) *chart.BarChart {
	var (
		bars    = make([]chart.Value, len(values))
		_, high = extent(values)
	)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		bars[i] = chart.Value{
			Label: labels[i],
			Value: v,
			Style: chart.Style{FillColor: paletteColor(i), StrokeColor: paletteColor(i)},
		}
	}
	return &chart.BarChart{
		Title:    title,
		Width:    max(600, 80*len(bars)),
		Height:   800,
		BarWidth: 50,
		YAxis: chart.YAxis{
			Name:  yName,
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(high, 1)},
		},
		Bars: bars,
	}
}

// stackedBarChart draws one bar per row of m, stacked by column.
func stackedBarChart(title string, m *clone.Matrix) *chart.StackedBarChart {
	var bars = make([]chart.StackedBar, len(m.Rows))
	for i, row := range m.Rows {
		var values = make([]chart.Value, len(m.Cols))
		for j, col := range m.Cols {
			values[j] = chart.Value{
				Label: col,
				Value: m.Values[i][j],
				Style: chart.Style{FillColor: paletteColor(j + 1), StrokeColor: paletteColor(j + 1)},
			}
		}
		bars[i] = chart.StackedBar{Name: row, Width: 60, Values: values}
	}
	return &chart.StackedBarChart{
		Title:  title,
		Width:  max(600, 100*len(bars)),
		Height: 800,
		Bars:   bars,
	}
}

// categoryTicks labels integer x positions 0..n-1.
func categoryTicks(labels []string) []chart.Tick {
	var ticks = make([]chart.Tick, len(labels))
	for i, l := range labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	return ticks
}
