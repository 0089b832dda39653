package plot

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"hicutils/pkg/clone"

	"github.com/samber/lo"
)

var DefaultSHMBuckets = []float64{1, 10, 25}

// SHMDistribution rounds SHM to whole percents and reports, per SHM value
// and pool, the metric as % of the pool total. Pools are labelled
// "<pool> (<rows>)". palette maps bare pool names to colours and hueOrder
// orders the curves by bare pool name.
func SHMDistribution(t *clone.Table, pool, metric string, palette map[string]string, hueOrder []string) (*Figure, *clone.Table, error) {
	if err := checkMetric(metric); err != nil {
		return nil, nil, err
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}

	var (
		out    = newLong(clone.FieldSHM, pool, "size")
		labels = make(map[string]string)
		names  []string
		curves = make(map[string]*series)
	)
	for _, g := range t.GroupBy(pool) {
		var (
			label = withCounts(g.Key, len(g.Records))
			total = lo.SumBy(g.Records, func(r *clone.Record) float64 { return lo.Must(r.Value(metric)) })
			byShm = lo.GroupBy(lo.Filter(g.Records, hasSHM), func(r *clone.Record) float64 { return math.RoundToEven(r.SHM) })
			shms  = lo.Keys(byShm)
		)
		labels[g.Key] = label
		names = append(names, g.Key)
		curves[g.Key] = &series{Name: label, Color: palette[g.Key]}
		sort.Float64s(shms)
		for _, shm := range shms {
			var (
				rs   = byShm[shm]
				size = 100 * safeDiv(lo.SumBy(rs, func(r *clone.Record) float64 { return lo.Must(r.Value(metric)) }), total)
			)
			addRow(out, shm, label, size)
			curves[g.Key].X = append(curves[g.Key].X, shm)
			curves[g.Key].Y = append(curves[g.Key].Y, size)
		}
	}
	sortLong(out, clone.FieldSHM, pool)

	if len(hueOrder) > 0 {
		names = lo.Filter(hueOrder, func(h string, _ int) bool { _, ok := labels[h]; return ok })
	}
	var title = "SHM distribution"
	return &Figure{
		Title: title,
		Chart: xyChart(title, "SHM (% of Mutated V-gene NT)", "% of "+metric,
			lo.Map(names, func(n string, _ int) series { return *curves[n] }), false, nil),
	}, out, nil
}

func hasSHM(r *clone.Record, _ int) bool {
	return !math.IsNaN(r.SHM)
}

// sortLong orders rows by a numeric then a string column.
func sortLong(t *clone.Table, numeric, text string) {
	sort.SliceStable(t.Records, func(a, b int) bool {
		va, vb := lo.Must(t.Records[a].Value(numeric)), lo.Must(t.Records[b].Value(numeric))
		if va != vb {
			return va < vb
		}
		return t.Records[a].Get(text) < t.Records[b].Get(text)
	})
}

// SHMAggregate summarises the SHM of each pool.
func SHMAggregate(t *clone.Table, pool string) (*Figure, *clone.Table, error) {
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		groups    = t.GroupBy(pool)
		pools     = lo.Map(groups, func(g *clone.Group, _ int) string { return g.Key })
		summaries = lo.Map(groups, func(g *clone.Group, _ int) Summary {
			return summarize(lo.Map(g.Records, func(r *clone.Record, _ int) float64 { return r.SHM }))
		})
		title = "SHM %"
	)
	return &Figure{
		Title: title,
		Chart: barChart(title, "mean SHM %", pools, lo.Map(summaries, func(s Summary, _ int) float64 { return s.Mean })),
	}, summaryTable(pool, pools, summaries), nil
}

// bucketLabel places v in left-closed intervals [0-c1) [c1-c2) ... cn+.
func bucketLabel(v float64, cuts []float64) string {
	var bounds = append([]float64{0}, cuts...)
	for i := 0; i < len(bounds)-1; i++ {
		if bounds[i] <= v && v < bounds[i+1] {
			return fmt.Sprintf("[%s-%s)", formatFloat(bounds[i]), formatFloat(bounds[i+1]))
		}
	}
	return formatFloat(bounds[len(bounds)-1]) + "+"
}

// bucketStart orders bucket labels: an interval by its lower bound, "n+" after n.
func bucketStart(label string) float64 {
	if strings.HasSuffix(label, "+") {
		return lo.Must(strconv.ParseFloat(strings.TrimSuffix(label, "+"), 64)) + 1
	}
	low, _, _ := strings.Cut(strings.TrimPrefix(label, "["), "-")
	return lo.Must(strconv.ParseFloat(low, 64))
}

// bucketMatrix is the % of distinct clones of each pool falling in each bucket of value.
func bucketMatrix(t *clone.Table, pool string, cuts []float64, value func(r *clone.Record) float64) *clone.Matrix {
	var (
		groups = t.GroupBy(pool)
		pcts   = make([]map[string]float64, len(groups))
		all    []string
	)
	for i, g := range groups {
		var (
			byBucket = lo.GroupBy(g.Records, func(r *clone.Record) string { return bucketLabel(value(r), cuts) })
			counts   = lo.MapValues(byBucket, func(rs []*clone.Record, _ string) float64 {
				return float64(clone.CountDistinct(rs, clone.FieldCloneID))
			})
			total = lo.Sum(lo.Values(counts))
		)
		pcts[i] = lo.MapValues(counts, func(c float64, _ string) float64 { return 100 * c / total })
		all = append(all, lo.Keys(counts)...)
	}
	all = lo.Uniq(all)
	sort.SliceStable(all, func(a, b int) bool { return bucketStart(all[a]) < bucketStart(all[b]) })

	var m = clone.NewMatrix(lo.Map(groups, func(g *clone.Group, _ int) string { return g.Key }), all)
	for i := range groups {
		for j, b := range all {
			m.Values[i][j] = pcts[i][b]
		}
	}
	return m
}

// SHMRange stratifies clones by SHM into buckets and reports the % of
// distinct clones of each pool per bucket. Cut-points at or above the
// maximum SHM are dropped. order restricts and orders the pools.
// Rows without SHM are left out.
func SHMRange(t *clone.Table, pool string, buckets []float64, order []string) (*Figure, *clone.Matrix, error) {
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	t = t.Filter(func(r *clone.Record) bool { return !math.IsNaN(r.SHM) })
	if t.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no clone with shm", ErrInvalidOption)
	}
	if buckets == nil {
		buckets = DefaultSHMBuckets
	}
	var maxShm = lo.MaxBy(t.Records, func(a, b *clone.Record) bool { return a.SHM > b.SHM }).SHM
	buckets = lo.Filter(buckets, func(b float64, _ int) bool { return b < maxShm })

	var m = bucketMatrix(t, pool, buckets, func(r *clone.Record) float64 { return r.SHM })
	if len(order) > 0 {
		m = lo.Must(m.SelectRows(lo.Filter(order, func(o string, _ int) bool { return m.RowIndex(o) >= 0 })))
	}
	var title = "SHM %"
	return &Figure{Title: title, Chart: stackedBarChart(title, m)}, m, nil
}

// MutatedFraction is the % of distinct clones of each pool with SHM above
// threshold, among the clones with a known SHM.
func MutatedFraction(t *clone.Table, pool string, threshold float64) (*Figure, *clone.Table, error) {
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		out    = newLong(pool, "mutated")
		pools  []string
		values []float64
	)
	for _, g := range t.GroupBy(pool) {
		var (
			known   = lo.Filter(g.Records, hasSHM)
			total   = clone.CountDistinct(known, clone.FieldCloneID)
			mutated = clone.CountDistinct(
				lo.Filter(known, func(r *clone.Record, _ int) bool { return r.SHM > threshold }),
				clone.FieldCloneID,
			)
			pct = 100 * safeDiv(float64(mutated), float64(total))
		)
		addRow(out, g.Key, pct)
		pools = append(pools, g.Key)
		values = append(values, pct)
	}
	var title = "Mutated clones"
	return &Figure{Title: title, Chart: barChart(title, "% of clones", pools, values)}, out, nil
}
