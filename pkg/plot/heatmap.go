package plot

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"hicutils/pkg/clone"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/xuri/excelize/v2"
)

// coolwarm end points
var ColorScale = [3]string{"#3B4CC0", "#DDDDDD", "#B40426"}

// Heatmap is a matrix laid out in a workbook, cells coloured by value.
// Masked cells (NaN or zero) are left blank.
type Heatmap struct {
	Title  string
	Matrix *clone.Matrix

	// RowLabels overrides Matrix.Rows on the sheet when set.
	RowLabels []string

	// Scale colours cells on a three colour scale, otherwise Categories maps
	// integer cell values to fill colours.
	Scale      [3]string
	Categories map[int]string
}

func newScaleHeatmap(title string, m *clone.Matrix) *Heatmap {
	return &Heatmap{Title: title, Matrix: m, Scale: ColorScale}
}

func masked(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v == 0
}

func (h *Heatmap) Save(path string) error {
	var xlsx = excelize.NewFile()
	defer simpleUtil.DeferClose(xlsx)

	if err := h.WriteSheet(xlsx, "heatmap"); err != nil {
		return err
	}
	if err := xlsx.SaveAs(path); err != nil {
		return err
	}
	slog.Info("Save", "heatmap", h.Title, "path", path, "rows", len(h.Matrix.Rows), "cols", len(h.Matrix.Cols))
	return nil
}

// WriteSheet writes the heatmap to sheet, labels in the first row and column.
func (h *Heatmap) WriteSheet(xlsx *excelize.File, sheet string) error {
	var (
		m      = h.Matrix
		labels = m.Rows
		title  = append([]string{h.Title}, m.Cols...)
	)
	if len(h.RowLabels) == len(m.Rows) {
		labels = h.RowLabels
	}
	if err := clone.WriteSheet(xlsx, sheet, title, nil, nil); err != nil {
		return err
	}

	var styles = make(map[int]int)
	for cat, hex := range h.Categories {
		style, err := xlsx.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{hex}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[cat] = style
	}

	for i := range m.Rows {
		var cells = make([]any, len(m.Cols)+1)
		cells[0] = labels[i]
		for j, v := range m.Values[i] {
			if !masked(v) {
				cells[j+1] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err = xlsx.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
		if h.Categories == nil {
			continue
		}
		for j, v := range m.Values[i] {
			style, ok := styles[int(v)]
			if masked(v) || !ok {
				continue
			}
			cell, err = excelize.CoordinatesToCellName(j+2, i+2)
			if err != nil {
				return err
			}
			if err = xlsx.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if h.Categories != nil || len(m.Rows) == 0 || len(m.Cols) == 0 {
		return nil
	}
	var (
		topLeft     = simpleUtil.HandleError(excelize.CoordinatesToCellName(2, 2))
		bottomRight = simpleUtil.HandleError(excelize.CoordinatesToCellName(len(m.Cols)+1, len(m.Rows)+1))
	)
	return xlsx.SetConditionalFormat(sheet, topLeft+":"+bottomRight, []excelize.ConditionalFormatOptions{
		{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "min",
			MidType:  "percentile",
			MidValue: "50",
			MaxType:  "max",
			MinColor: h.Scale[0],
			MidColor: h.Scale[1],
			MaxColor: h.Scale[2],
		},
	})
}

// normalize divides each row (rows) or column (cols) by its sum, empty sums give 0.
func normalize(m *clone.Matrix, by string) *clone.Matrix {
	var out = m.Clone()
	switch by {
	case "rows":
		for i := range out.Values {
			sum := m.RowSum(i)
			for j := range out.Values[i] {
				out.Values[i][j] = safeDiv(m.Values[i][j], sum)
			}
		}
	case "cols":
		for j := range out.Cols {
			sum := m.ColSum(j)
			for i := range out.Values {
				out.Values[i][j] = safeDiv(m.Values[i][j], sum)
			}
		}
	}
	return out
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// basicClustermap normalises m, blanks cells under minFrequency, drops
// columns left empty and orders rows and columns by clustering.
func basicClustermap(title string, m *clone.Matrix, normalizeBy, clusterBy string, minFrequency float64) (*Heatmap, error) {
	switch normalizeBy {
	case "rows", "cols", "":
	default:
		return nil, fmt.Errorf("%w: normalize_by %q", ErrInvalidOption, normalizeBy)
	}
	switch clusterBy {
	case "rows", "cols", "both", "":
	default:
		return nil, fmt.Errorf("%w: cluster_by %q", ErrInvalidOption, clusterBy)
	}

	var data = normalize(m, normalizeBy)
	var keep []string
	for j, col := range data.Cols {
		var empty = true
		for i := range data.Values {
			if data.Values[i][j] < minFrequency {
				data.Values[i][j] = 0
			} else {
				empty = false
			}
		}
		if !empty || len(data.Rows) == 0 {
			keep = append(keep, col)
		}
	}
	data = simpleUtil.HandleError(data.SelectCols(keep))

	if (clusterBy == "both" || clusterBy == "rows") && len(data.Rows) > 2 {
		data = simpleUtil.HandleError(data.SelectRows(clusterOrder(data.Rows, data.Values)))
	}
	if (clusterBy == "both" || clusterBy == "cols") && len(data.Cols) > 2 {
		data = simpleUtil.HandleError(data.SelectCols(clusterOrder(data.Cols, transpose(data.Values))))
	}
	return newScaleHeatmap(title, data), nil
}

func transpose(values [][]float64) [][]float64 {
	if len(values) == 0 {
		return nil
	}
	var out = make([][]float64, len(values[0]))
	for j := range out {
		out[j] = make([]float64, len(values))
		for i := range values {
			out[j][i] = values[i][j]
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
