// Package plot computes the data behind repertoire visualisations and renders
// them. Each plot function returns a Figure and the data it was drawn from.
package plot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/wcharczuk/go-chart/v2"
)

var (
	ErrInvalidOption = errors.New("invalid option")
	ErrTooFewPools   = errors.New("too few pools")
	ErrFormat        = errors.New("unsupported figure format")
)

// renderer is satisfied by chart.Chart, chart.BarChart and chart.StackedBarChart.
type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// Figure is either a go-chart graph or a heatmap workbook.
type Figure struct {
	Title   string
	Chart   renderer
	Heatmap *Heatmap
}

// Save writes the figure, the extension of path selects png, svg or xlsx.
func (f *Figure) Save(path string) error {
	var ext = strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".xlsx" && f.Heatmap != nil:
		return f.Heatmap.Save(path)
	case (ext == ".png" || ext == ".svg") && f.Chart != nil:
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		defer simpleUtil.DeferClose(out)

		var rp chart.RendererProvider = chart.PNG
		if ext == ".svg" {
			rp = chart.SVG
		}
		if err = f.Chart.Render(rp, out); err != nil {
			return fmt.Errorf("render %s: %w", f.Title, err)
		}
		slog.Info("Save", "figure", f.Title, "path", path)
		return nil
	}
	return fmt.Errorf("%w: %s for %s", ErrFormat, ext, f.Title)
}

// DefaultExt is the natural output extension of the figure.
func (f *Figure) DefaultExt() string {
	if f.Heatmap != nil {
		return ".xlsx"
	}
	return ".png"
}

func checkMetric(metric string, allowed ...string) error {
	if len(allowed) == 0 {
		allowed = SizeMetrics
	}
	for _, a := range allowed {
		if metric == a {
			return nil
		}
	}
	return fmt.Errorf("%w: size metric %q not in %v", ErrInvalidOption, metric, allowed)
}
