package plot

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"hicutils/pkg/clone"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/samber/lo"
)

// newLong starts a long format result table.
func newLong(columns ...string) *clone.Table {
	return clone.NewTable(columns, nil)
}

// addRow appends values, in column order, to t.
func addRow(t *clone.Table, values ...any) {
	var fields = make(map[string]string, len(t.Columns))
	for i, col := range t.Columns {
		switch v := values[i].(type) {
		case string:
			fields[col] = v
		case float64:
			fields[col] = formatFloat(v)
			t.SetNumeric(col)
		case int:
			fields[col] = strconv.Itoa(v)
			t.SetNumeric(col)
		case bool:
			fields[col] = strconv.FormatBool(v)
		default:
			fields[col] = fmt.Sprint(v)
		}
	}
	t.Records = append(t.Records, simpleUtil.HandleError(clone.NewRecord(fields)))
}

// sizeOf is the size of a set of rows: distinct clone_ids for clones, a sum otherwise.
func sizeOf(records []*clone.Record, metric string) float64 {
	if metric == clone.FieldClones {
		return float64(clone.CountDistinct(records, clone.FieldCloneID))
	}
	return simpleUtil.HandleError(clone.Sum(records, metric))
}

// withCounts labels a pool value with a count, "name (n)".
func withCounts(name string, n int) string {
	return fmt.Sprintf("%s (%d)", name, n)
}

// Summary describes a distribution.
type Summary struct {
	N      int
	Mean   float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

var SummaryTitle = []string{"n", "mean", "min", "q1", "median", "q3", "max"}

// summarize describes the values, NaN left out.
func summarize(values []float64) Summary {
	values = lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
	if len(values) == 0 {
		return Summary{Mean: math.NaN(), Min: math.NaN(), Q1: math.NaN(), Median: math.NaN(), Q3: math.NaN(), Max: math.NaN()}
	}
	var sorted = append([]float64{}, values...)
	sort.Float64s(sorted)
	return Summary{
		N:      len(sorted),
		Mean:   lo.Sum(sorted) / float64(len(sorted)),
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	var (
		pos  = q * float64(len(sorted)-1)
		low  = int(math.Floor(pos))
		high = int(math.Ceil(pos))
	)
	return sorted[low] + (sorted[high]-sorted[low])*(pos-float64(low))
}

func summaryTable(pool string, pools []string, summaries []Summary) *clone.Table {
	var out = newLong(append([]string{pool}, SummaryTitle...)...)
	for i, s := range summaries {
		addRow(out, pools[i], s.N, s.Mean, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	}
	return out
}
