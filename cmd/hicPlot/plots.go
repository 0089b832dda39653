package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"hicutils/pkg/clone"
	"hicutils/pkg/plot"

	"github.com/samber/lo"
)

type plotFunc func(t *clone.Table) (*plot.Figure, *clone.Table, error)

// matrixData adapts a plot returning a matrix, rows labelled by index.
func matrixData(index string) func(f *plot.Figure, m *clone.Matrix, err error) (*plot.Figure, *clone.Table, error) {
	return func(f *plot.Figure, m *clone.Matrix, err error) (*plot.Figure, *clone.Table, error) {
		if err != nil {
			return nil, nil, err
		}
		return f, m.Table(index), nil
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func floatList(s string) []float64 {
	return lo.Map(splitList(s), func(v string, _ int) float64 {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(fmt.Errorf("not a number:[%s]", v))
		}
		return f
	})
}

var plots = map[string]plotFunc{
	"gene_heatmap": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData(*pool)(plot.GeneHeatmap(t, *pool, *gene, *metric, *normalizeBy, *clusterBy))
	},
	"gene_frequency": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.GeneFrequency(t, splitList(*pool), *gene, *metric, *by)
	},
	"strings": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		var opts = plot.DefaultStringsOptions()
		if f := splitList(*features); len(f) > 0 {
			opts.Features = f
		}
		opts.Scale = *scale
		opts.Limit = *limit
		return matrixData("clone")(plot.Strings(t, *pool, opts))
	},
	"upset": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		f, u, err := plot.Upset(t, *pool, *metric, splitList(*features))
		if err != nil {
			return nil, nil, err
		}
		return f, u.Clones, nil
	},
	"similarity": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData(*pool)(plot.SimilarityHeatmap(t, *pool, *dist, splitList(*features), nil))
	},
	"shm_distribution": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.SHMDistribution(t, *pool, *metric, nil, splitList(*order))
	},
	"shm_aggregate": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.SHMAggregate(t, *pool)
	},
	"shm_range": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData(*pool)(plot.SHMRange(t, *pool, floatList(*buckets), splitList(*order)))
	},
	"mutated_fraction": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.MutatedFraction(t, *pool, *threshold)
	},
	"clone_counts": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.CloneCounts(t, *pool)
	},
	"clone_sizes": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.CloneSizes(t, *pool, *metric)
	},
	"top_clones": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.TopClones(t, *pool, *top)
	},
	"ranges": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData(*pool)(plot.Ranges(t, *pool, floatList(*buckets)))
	},
	"d_index": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.DIndex(t, *pool, *percent)
	},
	"cdr3_spectratype": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.CDR3Spectratype(t, *pool, *metric)
	},
	"cdr3_distribution": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return plot.CDR3Distribution(t, *pool)
	},
	"cdr3_aa_usage": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData(*pool)(plot.CDR3AAUsage(t, *pool))
	},
	"cdr3_logo": func(t *clone.Table) (*plot.Figure, *clone.Table, error) {
		return matrixData("position")(plot.CDR3Logo(t, *length))
	},
}

func Kinds() []string {
	var kinds = lo.Keys(plots)
	sort.Strings(kinds)
	return kinds
}

// runPlot draws kind, saves the figure and its data next to prefix.
func runPlot(t *clone.Table, kind, prefix string) (result plotResult) {
	result.Kind = kind
	defer func() {
		if e := recover(); e != nil {
			result.Err = fmt.Errorf("%v", e)
		}
	}()

	run, ok := plots[kind]
	if !ok {
		result.Err = fmt.Errorf("unknown plot kind:[%s]", kind)
		return
	}
	f, data, err := run(t)
	if err != nil {
		result.Err = err
		return
	}

	result.Figure = prefix + f.DefaultExt()
	if result.Err = f.Save(result.Figure); result.Err != nil {
		return
	}
	result.Data = prefix + ".data.tsv"
	result.Err = data.WriteTSV(result.Data)
	return
}
