// Package filter subsets clone tables by copy number, functionality, gene
// usage, pool overlap and contamination.
//
// Every function returns a new table and leaves its input untouched.
package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"hicutils/pkg/clone"

	"github.com/samber/lo"
)

var (
	ErrInvalidGene      = errors.New("gene must be v_gene or j_gene")
	ErrUnknownCompare   = errors.New("unknown comparison")
	ErrUnknownPoolValue = errors.New("unknown pool value")
)

// ByOverallCopies removes clones, identified by field, with less than copies
// total copies across all pools. An empty field means clone_id.
//
// Changing field changes the clone definition, e.g. cdr3_aa keeps every row
// whose CDR3 AA sequence sums to at least copies.
func ByOverallCopies(t *clone.Table, copies float64, field string) (*clone.Table, error) {
	if field == "" {
		field = clone.FieldCloneID
	}
	if err := t.Require(field); err != nil {
		return nil, err
	}
	var total = make(map[string]float64)
	for _, r := range t.Records {
		total[r.Get(field)] += r.Copies
	}
	var out = t.Filter(func(r *clone.Record) bool { return total[r.Get(field)] >= copies })
	slog.Debug("ByOverallCopies", "field", field, "copies", copies, "in", t.Len(), "out", out.Len())
	return out, nil
}

// Functional keeps functional clones, or only non-functional ones when functional is false.
func Functional(t *clone.Table, functional bool) *clone.Table {
	var want = "F"
	if functional {
		want = "T"
	}
	return t.Filter(func(r *clone.Record) bool { return r.Functional == want })
}

// ByGeneFrequency removes, within each group of by, rows whose gene has a
// frequency below minFrequency. The frequency of a gene is its number of
// distinct clones over the group's distinct clones summed per gene.
// Rows with no gene or no by value are not counted and always removed.
func ByGeneFrequency(t *clone.Table, minFrequency float64, by, gene string) (*clone.Table, error) {
	if by == "" {
		by = clone.FieldSubject
	}
	if gene != clone.FieldVGene && gene != clone.FieldJGene {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGene, gene)
	}
	if err := t.Require(by, gene, clone.FieldCloneID); err != nil {
		return nil, err
	}

	var keep = make(map[*clone.Record]bool, t.Len())
	for _, g := range t.GroupBy(by) {
		if g.Key == "" {
			continue
		}
		var (
			assigned = lo.Filter(g.Records, func(r *clone.Record, _ int) bool { return r.Get(gene) != "" })
			byGene   = lo.GroupBy(assigned, func(r *clone.Record) string { return r.Get(gene) })
			counts   = lo.MapValues(byGene, func(rs []*clone.Record, _ string) int {
				return clone.CountDistinct(rs, clone.FieldCloneID)
			})
			total = lo.Sum(lo.Values(counts))
		)
		for name, rs := range byGene {
			if float64(counts[name])/float64(total) < minFrequency {
				continue
			}
			for _, r := range rs {
				keep[r] = true
			}
		}
	}
	return t.Filter(func(r *clone.Record) bool { return keep[r] }), nil
}

// Compare relates the number of pools a clone occurs in to a threshold.
type Compare func(count, n int) bool

var Compares = map[string]Compare{
	"greater_equal": func(c, n int) bool { return c >= n },
	"greater":       func(c, n int) bool { return c > n },
	"equal":         func(c, n int) bool { return c == n },
	"not_equal":     func(c, n int) bool { return c != n },
	"less":          func(c, n int) bool { return c < n },
	"less_equal":    func(c, n int) bool { return c <= n },
}

// NumberOfPools keeps clones whose number of distinct pools satisfies cmp
// against n. cmp defaults to greater_equal. A clone is in a pool when its
// copies there sum above zero. limitTo restricts the pools that are counted.
func NumberOfPools(t *clone.Table, pool string, n int, cmp string, limitTo []string) (*clone.Table, error) {
	if cmp == "" {
		cmp = "greater_equal"
	}
	compare, ok := Compares[cmp]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompare, cmp)
	}
	counts, err := overlapPivot(t, pool)
	if err != nil {
		return nil, err
	}
	if len(limitTo) > 0 {
		if counts, err = counts.SelectCols(limitTo); err != nil {
			return nil, err
		}
	}

	var valid = make(map[string]bool)
	for i, id := range counts.Rows {
		if compare(counts.Present(i), n) {
			valid[id] = true
		}
	}
	return t.Filter(func(r *clone.Record) bool { return valid[r.CloneID] }), nil
}

// ByPresence keeps clones with copies in pool value.
func ByPresence(t *clone.Table, pool, value string) (*clone.Table, error) {
	if err := t.Require(pool); err != nil {
		return nil, err
	}
	if !lo.Contains(t.Unique(pool), value) {
		return nil, fmt.Errorf("%w: %q is not a value for pool %q", ErrUnknownPoolValue, value, pool)
	}
	counts, err := overlapPivot(t, pool)
	if err != nil {
		return nil, err
	}
	var (
		j     = counts.ColIndex(value)
		valid = make(map[string]bool)
	)
	for i, id := range counts.Rows {
		if counts.Values[i][j] > 0 {
			valid[id] = true
		}
	}
	return t.Filter(func(r *clone.Record) bool { return valid[r.CloneID] }), nil
}

// RemovePotentialContaminates removes every row whose feature, cdr3_nt by
// default, also occurs in a row whose pool is one of values.
// For example, clones sharing a CDR3 with the Fibroblast or Water subjects:
//
//	RemovePotentialContaminates(t, "subject", []string{"Fibroblast", "Water"}, "")
func RemovePotentialContaminates(t *clone.Table, pool string, values []string, feature string) (*clone.Table, error) {
	if feature == "" {
		feature = clone.FieldCDR3NT
	}
	if err := t.Require(pool, feature); err != nil {
		return nil, err
	}
	var remove = make(map[string]bool)
	for _, r := range t.Records {
		if lo.Contains(values, r.Get(pool)) {
			remove[r.Get(feature)] = true
		}
	}
	var out = t.Filter(func(r *clone.Record) bool { return !remove[r.Get(feature)] })
	slog.Info("RemovePotentialContaminates", "pool", pool, "values", values, "features", len(remove), "removed", t.Len()-out.Len())
	return out, nil
}

func overlapPivot(t *clone.Table, pool string) (*clone.Matrix, error) {
	return t.Pivot([]string{clone.FieldCloneID}, []string{pool}, clone.FieldCopies)
}
