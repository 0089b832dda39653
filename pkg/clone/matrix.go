package clone

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// Matrix is a dense labelled table of floats. NaN marks an empty cell.
type Matrix struct {
	Rows   []string
	Cols   []string
	Values [][]float64
}

func NewMatrix(rows, cols []string) *Matrix {
	var m = &Matrix{Rows: rows, Cols: cols, Values: make([][]float64, len(rows))}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(cols))
	}
	return m
}

// Pivot sums value over records for each (index, columns) pair.
// Row and column labels are sorted; missing pairs are 0.
func (t *Table) Pivot(index, columns []string, value string) (*Matrix, error) {
	if err := t.Require(append(append([]string{}, index...), columns...)...); err != nil {
		return nil, err
	}
	var (
		rowKey = func(r *Record) string { return r.Key(index...) }
		colKey = func(r *Record) string { return r.Key(columns...) }
		rows   = lo.Uniq(lo.Map(t.Records, func(r *Record, _ int) string { return rowKey(r) }))
		cols   = lo.Uniq(lo.Map(t.Records, func(r *Record, _ int) string { return colKey(r) }))
	)
	sort.Strings(rows)
	sort.Strings(cols)

	var (
		m      = NewMatrix(rows, cols)
		rowIdx = indexOf(rows)
		colIdx = indexOf(cols)
	)
	for _, r := range t.Records {
		v, err := r.Value(value)
		if err != nil {
			return nil, fmt.Errorf("pivot %s: %w", value, err)
		}
		if math.IsNaN(v) {
			continue
		}
		m.Values[rowIdx[rowKey(r)]][colIdx[colKey(r)]] += v
	}
	return m, nil
}

func indexOf(labels []string) map[string]int {
	var idx = make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}

func (m *Matrix) RowIndex(label string) int {
	return lo.IndexOf(m.Rows, label)
}

func (m *Matrix) ColIndex(label string) int {
	return lo.IndexOf(m.Cols, label)
}

// Present is the number of cells in row i holding a positive value.
func (m *Matrix) Present(i int) int {
	return lo.CountBy(m.Values[i], func(v float64) bool { return v > 0 })
}

// ColPresent is the number of cells in column j holding a positive value.
func (m *Matrix) ColPresent(j int) int {
	var n int
	for i := range m.Values {
		if m.Values[i][j] > 0 {
			n++
		}
	}
	return n
}

func (m *Matrix) RowSum(i int) float64 {
	return lo.SumBy(m.Values[i], finite)
}

func (m *Matrix) ColSum(j int) float64 {
	var total float64
	for i := range m.Values {
		total += finite(m.Values[i][j])
	}
	return total
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SelectCols returns a copy holding only cols, in that order.
func (m *Matrix) SelectCols(cols []string) (*Matrix, error) {
	var out = NewMatrix(append([]string{}, m.Rows...), cols)
	for j, c := range cols {
		src := m.ColIndex(c)
		if src < 0 {
			return nil, fmt.Errorf("%w: column %s", ErrUnknownField, c)
		}
		for i := range m.Rows {
			out.Values[i][j] = m.Values[i][src]
		}
	}
	return out, nil
}

// SelectRows returns a copy holding only rows, in that order.
func (m *Matrix) SelectRows(rows []string) (*Matrix, error) {
	var out = NewMatrix(rows, append([]string{}, m.Cols...))
	for i, r := range rows {
		src := m.RowIndex(r)
		if src < 0 {
			return nil, fmt.Errorf("%w: row %s", ErrUnknownField, r)
		}
		copy(out.Values[i], m.Values[src])
	}
	return out, nil
}

func (m *Matrix) Clone() *Matrix {
	var out = NewMatrix(append([]string{}, m.Rows...), append([]string{}, m.Cols...))
	for i := range m.Values {
		copy(out.Values[i], m.Values[i])
	}
	return out
}

// Table converts m to a table, row labels in the column named index.
func (m *Matrix) Table(index string) *Table {
	var t = NewTable(append([]string{index}, m.Cols...), nil)
	t.SetNumeric(m.Cols...)
	for i, row := range m.Rows {
		var fields = map[string]string{index: row}
		for j, col := range m.Cols {
			fields[col] = strconv.FormatFloat(m.Values[i][j], 'f', -1, 64)
		}
		t.Records = append(t.Records, &Record{Fields: fields})
	}
	return t
}
