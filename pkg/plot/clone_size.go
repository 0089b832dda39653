package plot

import (
	"fmt"
	"sort"

	"hicutils/pkg/clone"

	"github.com/samber/lo"
)

var DefaultCopyRanges = []float64{10, 100, 1000}

// cloneSizes sums metric per clone_id, largest first.
func cloneSizes(records []*clone.Record, metric string) []float64 {
	var sizes = lo.Values(lo.MapValues(
		lo.GroupBy(records, func(r *clone.Record) string { return r.CloneID }),
		func(rs []*clone.Record, _ string) float64 {
			return lo.SumBy(rs, func(r *clone.Record) float64 { return lo.Must(r.Value(metric)) })
		},
	))
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	return sizes
}

// CloneCounts is the number of distinct clones in each pool.
func CloneCounts(t *clone.Table, pool string) (*Figure, *clone.Table, error) {
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		out    = newLong(pool, clone.FieldClones)
		pools  []string
		counts []float64
	)
	for _, g := range t.GroupBy(pool) {
		n := clone.CountDistinct(g.Records, clone.FieldCloneID)
		addRow(out, g.Key, n)
		pools = append(pools, g.Key)
		counts = append(counts, float64(n))
	}
	var title = "Clones per " + pool
	return &Figure{Title: title, Chart: barChart(title, "clones", pools, counts)}, out, nil
}

// CloneSizes is, for each pool, how many clones have each size.
func CloneSizes(t *clone.Table, pool, metric string) (*Figure, *clone.Table, error) {
	if err := checkMetric(metric, clone.FieldCopies, clone.FieldUniques); err != nil {
		return nil, nil, err
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		out    = newLong(pool, metric, clone.FieldClones)
		curves []series
	)
	for _, g := range t.GroupBy(pool) {
		var (
			histogram = lo.CountValues(cloneSizes(g.Records, metric))
			sizes     = lo.Keys(histogram)
			s         = series{Name: g.Key}
		)
		sort.Float64s(sizes)
		for _, size := range sizes {
			addRow(out, g.Key, size, histogram[size])
			s.X = append(s.X, size)
			s.Y = append(s.Y, float64(histogram[size]))
		}
		curves = append(curves, s)
	}
	var title = "Clone sizes"
	return &Figure{Title: title, Chart: xyChart(title, metric, "clones", curves, true, nil)}, out, nil
}

// TopClones is the % of each pool's copies held by its n largest clones.
func TopClones(t *clone.Table, pool string, n int) (*Figure, *clone.Table, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: top %d", ErrInvalidOption, n)
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		out    = newLong(pool, "top", "percent")
		pools  []string
		values []float64
	)
	for _, g := range t.GroupBy(pool) {
		var (
			sizes = cloneSizes(g.Records, clone.FieldCopies)
			pct   = 100 * safeDiv(lo.Sum(sizes[:min(n, len(sizes))]), lo.Sum(sizes))
		)
		addRow(out, g.Key, n, pct)
		pools = append(pools, g.Key)
		values = append(values, pct)
	}
	var title = fmt.Sprintf("Top %d clones", n)
	return &Figure{Title: title, Chart: barChart(title, "% of copies", pools, values)}, out, nil
}

// Ranges is the % of each pool's clones per copy number range, cutoffs
// being the left-closed bounds of the ranges.
func Ranges(t *clone.Table, pool string, cutoffs []float64) (*Figure, *clone.Matrix, error) {
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	if cutoffs == nil {
		cutoffs = DefaultCopyRanges
	}
	// copies of a clone across its rows in the pool
	var sizes = make(map[[2]string]float64)
	for _, r := range t.Records {
		sizes[[2]string{r.Get(pool), r.CloneID}] += r.Copies
	}
	var m = bucketMatrix(t, pool, cutoffs, func(r *clone.Record) float64 {
		return sizes[[2]string{r.Get(pool), r.CloneID}]
	})
	var title = "Copy number ranges"
	return &Figure{Title: title, Chart: stackedBarChart(title, m)}, m, nil
}

// DIndex is the minimum number of largest clones making up percent of a
// pool's copies, as % of the pool's clones. D50 for percent 50.
func DIndex(t *clone.Table, pool string, percent float64) (*Figure, *clone.Table, error) {
	if percent <= 0 || percent > 100 {
		return nil, nil, fmt.Errorf("%w: percent %v", ErrInvalidOption, percent)
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		name   = fmt.Sprintf("d%s", formatFloat(percent))
		out    = newLong(pool, name)
		pools  []string
		values []float64
	)
	for _, g := range t.GroupBy(pool) {
		var (
			sizes  = cloneSizes(g.Records, clone.FieldCopies)
			target = lo.Sum(sizes) * percent / 100
			cum    float64
			k      int
		)
		for k < len(sizes) && cum < target {
			cum += sizes[k]
			k++
		}
		d := 100 * safeDiv(float64(k), float64(len(sizes)))
		addRow(out, g.Key, d)
		pools = append(pools, g.Key)
		values = append(values, d)
	}
	var title = fmt.Sprintf("D%s index", formatFloat(percent))
	return &Figure{Title: title, Chart: barChart(title, "% of clones", pools, values)}, out, nil
}
