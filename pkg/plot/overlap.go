package plot

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"hicutils/pkg/clone"

	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/samber/lo"
)

var (
	ErrNoOverlap = errors.New("no overlapping clones")

	DefaultOverlapFeatures = []string{clone.FieldCloneID, clone.FieldCDR3AA, clone.FieldVGene, clone.FieldJGene}

	// overlap string colours: presence, then highlights
	presentColor = "#1f77b4"
	stringScale  = [3]string{"#2b8cbe", "#e0f3db", "#fdbb84"}
)

// Highlight colours the overlap rows whose label is in Rows.
type Highlight struct {
	Color string
	Rows  []string
}

type StringsOptions struct {
	// OnlyOverlapping keeps clones present in at least two pools.
	OnlyOverlapping bool
	// Features define a clone, joined with a space into the row label.
	Features []string
	// Scale is "" for presence only, "linear" or "log" to colour by % of column.
	Scale string
	// Limit keeps the Limit rows present in most pools, 0 keeps all.
	Limit int
	// YLabels is "counts" to number the rows or "full" to show labels.
	YLabels string

	ColOrder  func(m *clone.Matrix) []string
	RowOrder  func(m *clone.Matrix) []string
	PivotHook func(m *clone.Matrix) *clone.Matrix
	ColNamer  func(col string) string

	// Highlight rows, applied in order so later entries win.
	Highlight     []Highlight
	HighlightFunc func(m *clone.Matrix) []Highlight
}

func DefaultStringsOptions() StringsOptions {
	return StringsOptions{
		OnlyOverlapping: true,
		Features:        DefaultOverlapFeatures,
		YLabels:         "counts",
	}
}

// Strings builds the overlap string matrix: one row per clone, one column per
// pool, values the % of the column's copies. Columns are renamed
// "<name> (<clones in column>)".
func Strings(t *clone.Table, pool string, opts StringsOptions) (*Figure, *clone.Matrix, error) {
	if opts.YLabels == "" {
		opts.YLabels = "counts"
	}
	if opts.YLabels != "counts" && opts.YLabels != "full" {
		return nil, nil, fmt.Errorf("%w: ylabels %q", ErrInvalidOption, opts.YLabels)
	}
	if opts.Scale != "" && opts.Scale != "linear" && opts.Scale != "log" {
		return nil, nil, fmt.Errorf("%w: scale %q", ErrInvalidOption, opts.Scale)
	}
	if opts.Scale != "" && (len(opts.Highlight) > 0 || opts.HighlightFunc != nil) {
		return nil, nil, fmt.Errorf("%w: cannot highlight a scaled plot", ErrInvalidOption)
	}
	if len(opts.Features) == 0 {
		opts.Features = DefaultOverlapFeatures
	}
	if opts.ColNamer == nil {
		opts.ColNamer = func(c string) string { return c }
	}

	m, err := t.Pivot(opts.Features, []string{pool}, clone.FieldCopies)
	if err != nil {
		return nil, nil, err
	}
	if len(m.Cols) < 2 {
		return nil, nil, fmt.Errorf("%w: overlap plots must have at least two columns", ErrTooFewPools)
	}

	var colClones = make(map[string]int, len(m.Cols))
	for j, c := range m.Cols {
		colClones[c] = m.ColPresent(j)
	}

	if opts.OnlyOverlapping {
		m = keepRows(m, func(i int) bool { return m.Present(i) >= 2 })
		if len(m.Rows) == 0 {
			return nil, nil, ErrNoOverlap
		}
	}
	if opts.PivotHook != nil {
		m = opts.PivotHook(m)
	}

	// % of column
	for j := range m.Cols {
		sum := m.ColSum(j)
		for i := range m.Values {
			m.Values[i][j] = 100 * safeDiv(m.Values[i][j], sum)
		}
	}

	// most shared first
	var rows = append([]string{}, m.Rows...)
	presence := presentByRow(m)
	sort.SliceStable(rows, func(a, b int) bool { return presence[rows[a]] > presence[rows[b]] })
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	m, _ = m.SelectRows(rows)

	var cols []string
	if opts.ColOrder != nil {
		cols = opts.ColOrder(m)
	} else {
		cols = append([]string{}, m.Cols...)
		sort.SliceStable(cols, func(a, b int) bool {
			return m.ColPresent(m.ColIndex(cols[a])) < m.ColPresent(m.ColIndex(cols[b]))
		})
	}
	if m, err = m.SelectCols(cols); err != nil {
		return nil, nil, err
	}

	if opts.RowOrder != nil {
		rows = opts.RowOrder(m)
	} else {
		rows = presenceOrder(m)
	}
	if m, err = m.SelectRows(rows); err != nil {
		return nil, nil, err
	}

	var highlights = opts.Highlight
	if opts.HighlightFunc != nil {
		highlights = opts.HighlightFunc(m)
	}

	var named = make([]string, len(m.Cols))
	for j, c := range m.Cols {
		named[j] = fmt.Sprintf("%s (%d)", opts.ColNamer(c), colClones[c])
	}
	m.Cols = named
	var data = m.Clone()

	var h = &Heatmap{Title: pool + " overlap", Matrix: m}
	switch opts.Scale {
	case "log":
		for i := range m.Values {
			for j, v := range m.Values[i] {
				m.Values[i][j] = math.Log10(v)
			}
		}
		h.Scale = stringScale
	case "linear":
		h.Scale = stringScale
	default:
		h.Categories = map[int]string{1: presentColor}
		for i := range m.Values {
			for j, v := range m.Values[i] {
				if v > 0 {
					m.Values[i][j] = 1
				} else {
					m.Values[i][j] = 0
				}
			}
		}
		for k, hl := range highlights {
			var cat = k + 2
			h.Categories[cat] = hl.Color
			for _, row := range hl.Rows {
				i := m.RowIndex(row)
				if i < 0 {
					continue
				}
				for j, v := range m.Values[i] {
					if v > 0 {
						m.Values[i][j] = float64(cat)
					}
				}
			}
		}
	}
	if opts.YLabels == "counts" {
		h.RowLabels = lo.Times(len(m.Rows), func(i int) string { return fmt.Sprint(i + 1) })
	}
	return &Figure{Title: h.Title, Heatmap: h}, data, nil
}

func keepRows(m *clone.Matrix, keep func(i int) bool) *clone.Matrix {
	var rows []string
	for i, r := range m.Rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	out, _ := m.SelectRows(rows)
	return out
}

func presentByRow(m *clone.Matrix) map[string]int {
	var presence = make(map[string]int, len(m.Rows))
	for i, r := range m.Rows {
		presence[r] = m.Present(i)
	}
	return presence
}

// presenceOrder sorts rows by their presence pattern, column by column, present before absent.
func presenceOrder(m *clone.Matrix) []string {
	var idx = lo.Range(len(m.Rows))
	sort.SliceStable(idx, func(a, b int) bool {
		for j := range m.Cols {
			pa, pb := m.Values[idx[a]][j] > 0, m.Values[idx[b]][j] > 0
			if pa != pb {
				return pa
			}
		}
		return false
	})
	return lo.Map(idx, func(i int, _ int) string { return m.Rows[i] })
}

// UpsetResult holds the per clone pool membership and the intersections it forms.
type UpsetResult struct {
	Pools []string
	// one row per clone: a true/false column per pool, the clone key and
	// clones, copies, shm (mean), cdr3_num_nts (mean)
	Clones        *clone.Table
	Intersections []Intersection
}

// Intersection is a set of pools and the clones present in exactly those pools.
type Intersection struct {
	Pools []string
	Size  float64
}

func (i Intersection) Name() string {
	return strings.Join(i.Pools, "&")
}

// Upset computes pool intersections sized by clones or copies, a clone
// being defined by features (clone_id by default).
func Upset(t *clone.Table, pool, size string, features []string) (*Figure, *UpsetResult, error) {
	if err := checkMetric(size, clone.FieldClones, clone.FieldCopies); err != nil {
		return nil, nil, err
	}
	if len(features) == 0 {
		features = []string{clone.FieldCloneID}
	}
	if err := t.Require(pool); err != nil {
		return nil, nil, err
	}
	if n := len(t.Unique(pool)); n < 2 {
		return nil, nil, fmt.Errorf("%w: pool %q must have 2+ values", ErrTooFewPools, pool)
	}
	m, err := t.Pivot(features, []string{pool}, size)
	if err != nil {
		return nil, nil, err
	}

	var (
		key     = strings.Join(features, " ")
		columns = append(append([]string{}, m.Cols...), key, clone.FieldClones, clone.FieldCopies, clone.FieldSHM, clone.FieldCDR3NumNTs)
		out     = &UpsetResult{Pools: m.Cols, Clones: newLong(columns...)}
		groups  = t.GroupBy(features...)
		sets    = make(map[string]*Intersection)
		order   []string
	)
	for i, g := range groups {
		var (
			values  []any
			members []string
		)
		for j, p := range m.Cols {
			present := m.Values[i][j] > 0
			values = append(values, present)
			if present {
				members = append(members, p)
			}
		}
		copies := simpleUtil.HandleError(clone.Sum(g.Records, clone.FieldCopies))
		values = append(values, g.Key, 1, copies,
			mean(g.Records, clone.FieldSHM), mean(g.Records, clone.FieldCDR3NumNTs))
		addRow(out.Clones, values...)

		if len(members) == 0 {
			continue
		}
		var name = strings.Join(members, "&")
		set, ok := sets[name]
		if !ok {
			set = &Intersection{Pools: members}
			sets[name] = set
			order = append(order, name)
		}
		if size == clone.FieldClones {
			set.Size++
		} else {
			set.Size += copies
		}
	}

	for _, name := range order {
		out.Intersections = append(out.Intersections, *sets[name])
	}
	sort.SliceStable(out.Intersections, func(a, b int) bool { return out.Intersections[a].Size > out.Intersections[b].Size })

	var title = pool + " intersections"
	return &Figure{
		Title: title,
		Chart: barChart(title, size,
			lo.Map(out.Intersections, func(i Intersection, _ int) string { return i.Name() }),
			lo.Map(out.Intersections, func(i Intersection, _ int) float64 { return i.Size })),
	}, out, nil
}

// mean of field over records, missing values left out.
func mean(records []*clone.Record, field string) float64 {
	var n int
	for _, r := range records {
		if v, err := r.Value(field); err == nil && !math.IsNaN(v) {
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return simpleUtil.HandleError(clone.Sum(records, field)) / float64(n)
}

// Similarity functions between two pool vectors.
var Similarities = map[string]func(u, v []float64) float64{
	"jaccard": jaccardSimilarity,
	"cosine":  cosineSimilarity,
}

// jaccardSimilarity is 1 - jaccard distance: among positions non-zero in
// either vector, the fraction holding equal values.
func jaccardSimilarity(u, v []float64) float64 {
	var nonzero, unequal int
	for i := range u {
		if u[i] != 0 || v[i] != 0 {
			nonzero++
			if u[i] != v[i] {
				unequal++
			}
		}
	}
	if nonzero == 0 {
		return 1
	}
	return 1 - float64(unequal)/float64(nonzero)
}

func cosineSimilarity(u, v []float64) float64 {
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return math.NaN()
	}
	return dot / math.Sqrt(nu*nv)
}

// SimilarityMatrix computes the pairwise similarity between pools, jaccard on
// clones or cosine on copies, rounded to three decimals. Labels are
// "<pool> (<clones>)" in sorted order and the diagonal is NaN.
func SimilarityMatrix(t *clone.Table, pool, dist string, features []string) (*clone.Matrix, error) {
	sim, ok := Similarities[dist]
	if !ok {
		return nil, fmt.Errorf("%w: distance %q must be jaccard or cosine", ErrInvalidOption, dist)
	}
	var size = clone.FieldClones
	if dist == "cosine" {
		size = clone.FieldCopies
	}
	if len(features) == 0 {
		features = []string{clone.FieldCloneID}
	}
	m, err := t.Pivot([]string{pool}, features, size)
	if err != nil {
		return nil, err
	}
	if len(m.Rows) < 2 {
		return nil, fmt.Errorf("%w: similarity matrix only has one value", ErrTooFewPools)
	}

	var labels = make([]string, len(m.Rows))
	for i, p := range m.Rows {
		labels[i] = withCounts(p, m.Present(i))
	}
	var sorted = append([]string{}, labels...)
	sort.Strings(sorted)
	var out = clone.NewMatrix(sorted, append([]string{}, sorted...))
	var pos = make(map[string]int, len(sorted))
	for i, l := range sorted {
		pos[l] = i
	}
	for a := range m.Rows {
		out.Values[pos[labels[a]]][pos[labels[a]]] = math.NaN()
		for b := a + 1; b < len(m.Rows); b++ {
			s := round3(sim(m.Values[a], m.Values[b]))
			out.Values[pos[labels[a]]][pos[labels[b]]] = s
			out.Values[pos[labels[b]]][pos[labels[a]]] = s
		}
	}
	return out, nil
}

// round3 rounds to three decimals, halves to even.
func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}

// SimilarityHeatmap plots SimilarityMatrix. When cutoff is set, values at or
// above cutoff(m) are capped to it. Empty cells are 0 in the returned matrix.
func SimilarityHeatmap(t *clone.Table, pool, dist string, features []string, cutoff func(m *clone.Matrix) float64) (*Figure, *clone.Matrix, error) {
	m, err := SimilarityMatrix(t, pool, dist, features)
	if err != nil {
		return nil, nil, err
	}
	for i := range m.Values {
		for j, v := range m.Values[i] {
			if math.IsNaN(v) {
				m.Values[i][j] = 0
			}
		}
	}
	if cutoff != nil {
		c := cutoff(m)
		for i := range m.Values {
			for j, v := range m.Values[i] {
				if v >= c {
					m.Values[i][j] = c
				}
			}
		}
	}
	var h = newScaleHeatmap(pool+" "+dist+" similarity", m)
	return &Figure{Title: h.Title, Heatmap: h}, m, nil
}
