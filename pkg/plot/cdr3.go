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

// AminoAcids in one letter code.
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// distinctCDR3 returns the CDR3 AA of each distinct clone_id, skipping empty ones.
func distinctCDR3(records []*clone.Record) []string {
	var cdr3s = lo.Map(
		lo.UniqBy(records, func(r *clone.Record) string { return r.CloneID }),
		func(r *clone.Record, _ int) string { return strings.ToUpper(r.CDR3AA) },
	)
	return lo.Compact(cdr3s)
}

// CDR3Spectratype is, per pool, the % of the metric per CDR3 nucleotide length.
func CDR3Spectratype(t *clone.Table, pool, metric string) (*Figure, *clone.Table, error) {
	if err := checkMetric(metric); err != nil {
		return nil, nil, err
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	var (
		out    = newLong(pool, clone.FieldCDR3NumNTs, "size")
		curves []series
	)
	for _, g := range t.GroupBy(pool) {
		var (
			total    = sizeOf(g.Records, metric)
			byLength = lo.GroupBy(
				lo.Filter(g.Records, func(r *clone.Record, _ int) bool { return !math.IsNaN(r.CDR3NumNTs) }),
				func(r *clone.Record) float64 { return r.CDR3NumNTs },
			)
			lengths  = lo.Keys(byLength)
			s        = series{Name: g.Key}
		)
		sort.Float64s(lengths)
		for _, l := range lengths {
			size := 100 * safeDiv(sizeOf(byLength[l], metric), total)
			addRow(out, g.Key, l, size)
			s.X = append(s.X, l)
			s.Y = append(s.Y, size)
		}
		curves = append(curves, s)
	}
	var title = "CDR3 spectratype"
	return &Figure{Title: title, Chart: xyChart(title, "CDR3 length (nt)", "% of "+metric, curves, false, nil)}, out, nil
}

// CDR3Distribution summarises the CDR3 amino acid length of the distinct clones of each pool.
func CDR3Distribution(t *clone.Table, pool string) (*Figure, *clone.Table, error) {
	if err := t.Require(pool, clone.FieldCDR3AA); err != nil {
		return nil, nil, err
	}
	var (
		groups    = t.GroupBy(pool)
		pools     = lo.Map(groups, func(g *clone.Group, _ int) string { return g.Key })
		summaries = lo.Map(groups, func(g *clone.Group, _ int) Summary {
			return summarize(lo.Map(distinctCDR3(g.Records), func(s string, _ int) float64 { return float64(len(s)) }))
		})
		title = "CDR3 length (aa)"
	)
	return &Figure{
		Title: title,
		Chart: barChart(title, "mean CDR3 length (aa)", pools, lo.Map(summaries, func(s Summary, _ int) float64 { return s.Mean })),
	}, summaryTable(pool, pools, summaries), nil
}

// CDR3AAUsage is the % amino acid composition of the CDR3s of each pool's distinct clones.
func CDR3AAUsage(t *clone.Table, pool string) (*Figure, *clone.Matrix, error) {
	if err := t.Require(pool, clone.FieldCDR3AA); err != nil {
		return nil, nil, err
	}
	var (
		groups = t.GroupBy(pool)
		m      = clone.NewMatrix(
			lo.Map(groups, func(g *clone.Group, _ int) string { return g.Key }),
			strings.Split(AminoAcids, ""),
		)
	)
	for i, g := range groups {
		var total float64
		for _, cdr3 := range distinctCDR3(g.Records) {
			for _, aa := range cdr3 {
				if j := strings.IndexRune(AminoAcids, aa); j >= 0 {
					m.Values[i][j]++
					total++
				}
			}
		}
		for j := range m.Cols {
			m.Values[i][j] = 100 * safeDiv(m.Values[i][j], total)
		}
	}
	var h = newScaleHeatmap("CDR3 amino acid usage", m)
	return &Figure{Title: h.Title, Heatmap: h}, m, nil
}

// CDR3Logo is the position frequency matrix of the distinct CDR3 AAs of the
// given length: one row per position, one column per amino acid.
func CDR3Logo(t *clone.Table, length int) (*Figure, *clone.Matrix, error) {
	if err := t.Require(clone.FieldCDR3AA); err != nil {
		return nil, nil, err
	}
	var cdr3s = lo.Filter(distinctCDR3(t.Records), func(s string, _ int) bool { return len(s) == length })
	if len(cdr3s) == 0 {
		return nil, nil, fmt.Errorf("%w: no CDR3 of length %d", ErrInvalidOption, length)
	}
	var m = clone.NewMatrix(
		lo.Times(length, func(i int) string { return strconv.Itoa(i + 1) }),
		strings.Split(AminoAcids, ""),
	)
	for _, cdr3 := range cdr3s {
		for i, aa := range cdr3 {
			if j := strings.IndexRune(AminoAcids, aa); j >= 0 {
				m.Values[i][j]++
			}
		}
	}
	for i := range m.Rows {
		sum := m.RowSum(i)
		for j := range m.Cols {
			m.Values[i][j] = safeDiv(m.Values[i][j], sum)
		}
	}
	var h = newScaleHeatmap(fmt.Sprintf("CDR3 logo (%d aa, %d clones)", length, len(cdr3s)), m)
	return &Figure{Title: h.Title, Heatmap: h}, m, nil
}
