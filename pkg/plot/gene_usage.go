package plot

import (
	"fmt"
	"strings"

	"hicutils/pkg/clone"

	"github.com/samber/lo"
)

func checkGene(gene string) error {
	if gene != clone.FieldVGene && gene != clone.FieldJGene {
		return fmt.Errorf("%w: gene %q must be v_gene or j_gene", ErrInvalidOption, gene)
	}
	return nil
}

// GeneHeatmap sums metric per pool and gene. Rows are labelled with the
// number of distinct clones of the pool. The returned matrix is not normalised.
func GeneHeatmap(t *clone.Table, pool, gene, metric, normalizeBy, clusterBy string) (*Figure, *clone.Matrix, error) {
	if err := checkGene(gene); err != nil {
		return nil, nil, err
	}
	if err := checkMetric(metric); err != nil {
		return nil, nil, err
	}
	m, err := t.Pivot([]string{pool}, []string{gene}, metric)
	if err != nil {
		return nil, nil, err
	}

	var totalClones = make(map[string]int)
	for _, g := range t.GroupBy(pool) {
		totalClones[g.Key] = clone.CountDistinct(g.Records, clone.FieldCloneID)
	}
	m.Rows = lo.Map(m.Rows, func(p string, _ int) string { return withCounts(p, totalClones[p]) })

	h, err := basicClustermap(gene+" usage", m, normalizeBy, clusterBy, 0)
	if err != nil {
		return nil, nil, err
	}
	return &Figure{Title: h.Title, Heatmap: h}, m, nil
}

// GeneFrequency computes, for each combination of pools and gene, the metric
// and its percentage within the pools combination (column freq).
// by names the pool column used to colour the points and must be one of pools.
func GeneFrequency(t *clone.Table, pools []string, gene, metric, by string) (*Figure, *clone.Table, error) {
	if err := checkGene(gene); err != nil {
		return nil, nil, err
	}
	if err := checkMetric(metric); err != nil {
		return nil, nil, err
	}
	if by != "" && !lo.Contains(pools, by) {
		return nil, nil, fmt.Errorf("%w: by %q must be one of %v", ErrInvalidOption, by, pools)
	}
	if err := t.Require(append(append([]string{}, pools...), gene)...); err != nil {
		return nil, nil, err
	}

	var out = newLong(append(append(append([]string{}, pools...), gene), metric, "freq")...)
	for _, g := range t.GroupBy(pools...) {
		var (
			first  = g.Records[0]
			byGene = g.Table(t).GroupBy(gene)
			sizes  = lo.Map(byGene, func(gg *clone.Group, _ int) float64 { return sizeOf(gg.Records, metric) })
			total  = lo.Sum(sizes)
		)
		for i, gg := range byGene {
			var values []any
			for _, p := range pools {
				values = append(values, first.Get(p))
			}
			values = append(values, gg.Key, sizes[i], 100*safeDiv(sizes[i], total))
			addRow(out, values...)
		}
	}

	var (
		genes  = sortedUnique(out, gene)
		hues   = []string{""}
		curves []series
	)
	if by != "" {
		hues = sortedUnique(out, by)
	}
	for _, hue := range hues {
		var s = series{Name: hue}
		if hue == "" {
			s.Name = metric
		}
		for _, r := range out.Records {
			if hue != "" && r.Get(by) != hue {
				continue
			}
			s.X = append(s.X, float64(lo.IndexOf(genes, r.Get(gene))))
			s.Y = append(s.Y, lo.Must(r.Value("freq")))
		}
		curves = append(curves, s)
	}
	var title = gene + " frequency"
	return &Figure{
		Title: title,
		Chart: xyChart(title, "", fmt.Sprintf("%s %%", capitalize(metric)), curves, true, categoryTicks(genes)),
	}, out, nil
}

func sortedUnique(t *clone.Table, field string) []string {
	return lo.Map(t.GroupBy(field), func(g *clone.Group, _ int) string { return g.Key })
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
