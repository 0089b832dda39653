package plot

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"hicutils/pkg/clone"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func load(t *testing.T) *clone.Table {
	t.Helper()
	table, err := clone.ReadTSV("../../testdata/clones.tsv")
	require.NoError(t, err)
	return table
}

func value(t *testing.T, r *clone.Record, field string) float64 {
	t.Helper()
	v, err := r.Value(field)
	require.NoError(t, err)
	return v
}

func TestGeneHeatmap(t *testing.T) {
	var table = load(t)

	f, m, err := GeneHeatmap(table, clone.FieldSubject, clone.FieldVGene, clone.FieldCopies, "rows", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1 (3)", "S2 (2)", "Water (1)"}, m.Rows)
	assert.Equal(t, []string{"IGHV1", "IGHV2", "IGHV3"}, m.Cols)
	assert.Equal(t, []float64{16, 3, 0}, m.Values[0])

	require.NotNil(t, f.Heatmap)
	assert.InDelta(t, 16.0/19, f.Heatmap.Matrix.Values[0][0], 1e-9)
	assert.InDelta(t, 1.0, f.Heatmap.Matrix.Values[1][2], 1e-9)

	var path = filepath.Join(t.TempDir(), "genes.xlsx")
	require.NoError(t, f.Save(path))
	xlsx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer xlsx.Close()
	cell, err := xlsx.GetCellValue("heatmap", "A2")
	require.NoError(t, err)
	assert.Equal(t, "S1 (3)", cell)

	assert.ErrorIs(t, f.Save(filepath.Join(t.TempDir(), "genes.png")), ErrFormat)

	_, _, err = GeneHeatmap(table, clone.FieldSubject, "d_gene", clone.FieldCopies, "rows", "")
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, _, err = GeneHeatmap(table, clone.FieldSubject, clone.FieldVGene, "reads", "rows", "")
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, _, err = GeneHeatmap(table, clone.FieldSubject, clone.FieldVGene, clone.FieldCopies, "diagonal", "")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestBasicClustermap(t *testing.T) {
	var m = clone.NewMatrix([]string{"a", "b", "c", "d"}, []string{"x", "y", "z"})
	m.Values = [][]float64{
		{10, 0, 0},
		{0, 5, 0},
		{9, 0, 0},
		{0, 6, 0},
	}
	h, err := basicClustermap("test", m, "", "rows", 0)
	require.NoError(t, err)
	// similar rows end up adjacent
	var rows = h.Matrix.Rows
	assert.Len(t, rows, 4)
	ia, ic := indexOf(rows, "a"), indexOf(rows, "c")
	ib, id := indexOf(rows, "b"), indexOf(rows, "d")
	assert.Equal(t, 1, abs(ia-ic))
	assert.Equal(t, 1, abs(ib-id))

	// z is dropped once every cell is below the minimum
	h, err = basicClustermap("test", m, "rows", "", 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, h.Matrix.Cols)
}

func indexOf(s []string, v string) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestGeneFrequency(t *testing.T) {
	var table = load(t)

	_, out, err := GeneFrequency(table, []string{clone.FieldSubject}, clone.FieldVGene, clone.FieldClones, "")
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())

	var first = out.Records[0]
	assert.Equal(t, "S1", first.Get(clone.FieldSubject))
	assert.Equal(t, "IGHV1", first.Get(clone.FieldVGene))
	assert.Equal(t, 2.0, value(t, first, clone.FieldClones))
	assert.InDelta(t, 200.0/3, value(t, first, "freq"), 1e-9)
	assert.InDelta(t, 100.0, value(t, out.Records[3], "freq"), 1e-9)

	_, _, err = GeneFrequency(table, []string{clone.FieldSubject}, clone.FieldVGene, clone.FieldClones, "tissue")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestStrings(t *testing.T) {
	var table = load(t)

	f, m, err := Strings(table, "tissue", DefaultStringsOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"1 CAR IGHV1 IGHJ4"}, m.Rows)
	assert.Equal(t, []string{"blood (5)", "spleen (2)"}, m.Cols)
	assert.Equal(t, []float64{100, 100}, m.Values[0])
	assert.Equal(t, []string{"1"}, f.Heatmap.RowLabels)

	var opts = DefaultStringsOptions()
	opts.Features = []string{clone.FieldCDR3AA}
	opts.Highlight = []Highlight{{Color: "#ff0000", Rows: []string{"CAR"}}}
	f, m, err = Strings(table, clone.FieldSubject, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAR", "CAPK"}, m.Rows)
	assert.Equal(t, []string{"S1 (3)", "Water (1)", "S2 (2)"}, m.Cols)
	assert.Equal(t, []float64{100, 0, 20}, m.Values[0])
	assert.Equal(t, []float64{0, 100, 80}, m.Values[1])
	assert.Equal(t, []float64{2, 0, 2}, f.Heatmap.Matrix.Values[0])
	assert.Equal(t, []float64{0, 1, 1}, f.Heatmap.Matrix.Values[1])
	assert.Equal(t, "#ff0000", f.Heatmap.Categories[2])
}

func TestStringsErrors(t *testing.T) {
	var table = load(t)

	_, _, err := Strings(table, clone.FieldSubject, DefaultStringsOptions())
	assert.ErrorIs(t, err, ErrNoOverlap)

	var blood = table.Filter(func(r *clone.Record) bool { return r.Get("tissue") == "blood" })
	_, _, err = Strings(blood, "tissue", DefaultStringsOptions())
	assert.ErrorIs(t, err, ErrTooFewPools)

	var opts = DefaultStringsOptions()
	opts.Scale = "log"
	opts.Highlight = []Highlight{{Color: "#ff0000", Rows: []string{"CAR"}}}
	_, _, err = Strings(table, "tissue", opts)
	assert.ErrorIs(t, err, ErrInvalidOption)

	opts = DefaultStringsOptions()
	opts.YLabels = "some"
	_, _, err = Strings(table, "tissue", opts)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestUpset(t *testing.T) {
	var table = load(t)

	f, u, err := Upset(table, "tissue", clone.FieldClones, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"blood", "spleen"}, u.Pools)
	require.Len(t, u.Intersections, 3)
	assert.Equal(t, "blood", u.Intersections[0].Name())
	assert.Equal(t, 4.0, u.Intersections[0].Size)
	assert.Equal(t, "blood&spleen", u.Intersections[1].Name())
	assert.Equal(t, "spleen", u.Intersections[2].Name())
	assert.NotNil(t, f.Chart)

	require.Equal(t, 6, u.Clones.Len())
	var first = u.Clones.Records[0]
	assert.Equal(t, "true", first.Get("blood"))
	assert.Equal(t, "true", first.Get("spleen"))
	assert.Equal(t, 15.0, first.Copies)
	assert.InDelta(t, 0.5, first.SHM, 1e-9)

	_, u, err = Upset(table, "tissue", clone.FieldCopies, nil)
	require.NoError(t, err)
	// blood&spleen 15, blood 14, spleen 1
	assert.Equal(t, "blood&spleen", u.Intersections[0].Name())
	assert.Equal(t, 15.0, u.Intersections[0].Size)
	assert.Equal(t, 14.0, u.Intersections[1].Size)

	var s1 = table.Filter(func(r *clone.Record) bool { return r.Subject == "S1" })
	_, _, err = Upset(s1, clone.FieldSubject, clone.FieldClones, nil)
	assert.ErrorIs(t, err, ErrTooFewPools)
	_, _, err = Upset(table, "tissue", clone.FieldUniques, nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSimilarity(t *testing.T) {
	var table = load(t)
	var features = []string{clone.FieldCDR3AA}

	m, err := SimilarityMatrix(table, clone.FieldSubject, "jaccard", features)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1 (3)", "S2 (2)", "Water (1)"}, m.Rows)
	assert.Equal(t, m.Rows, m.Cols)
	assert.True(t, math.IsNaN(m.Values[0][0]))
	assert.Equal(t, 0.0, m.Values[0][1])
	assert.Equal(t, 0.5, m.Values[1][2])
	assert.Equal(t, 0.5, m.Values[2][1])

	_, m, err = SimilarityHeatmap(table, clone.FieldSubject, "cosine", features, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Values[0][0])
	assert.Equal(t, 0.97, m.Values[1][2])
	assert.Equal(t, 0.237, m.Values[0][1])

	_, m, err = SimilarityHeatmap(table, clone.FieldSubject, "cosine", features,
		func(*clone.Matrix) float64 { return 0.3 })
	require.NoError(t, err)
	assert.Equal(t, 0.3, m.Values[1][2])
	assert.Equal(t, 0.237, m.Values[0][1])

	_, err = SimilarityMatrix(table, clone.FieldSubject, "euclidean", features)
	assert.ErrorIs(t, err, ErrInvalidOption)
	var s1 = table.Filter(func(r *clone.Record) bool { return r.Subject == "S1" })
	_, err = SimilarityMatrix(s1, clone.FieldSubject, "jaccard", features)
	assert.ErrorIs(t, err, ErrTooFewPools)
}

func TestSHMDistribution(t *testing.T) {
	var table = load(t)

	f, out, err := SHMDistribution(table, "tissue", clone.FieldCopies, map[string]string{"blood": "#ff0000"}, []string{"spleen", "blood"})
	require.NoError(t, err)
	require.Equal(t, 5, out.Len())

	var shms, pools []string
	for _, r := range out.Records {
		shms = append(shms, r.Get(clone.FieldSHM))
		pools = append(pools, r.Get("tissue"))
	}
	assert.Equal(t, []string{"0", "1", "5", "12", "30"}, shms)
	assert.Equal(t, []string{"blood (5)", "spleen (2)", "blood (5)", "spleen (2)", "blood (5)"}, pools)
	assert.InDelta(t, 100*13.0/24, value(t, out.Records[0], "size"), 1e-9)
	assert.InDelta(t, 100*5.0/6, value(t, out.Records[1], "size"), 1e-9)
	assert.NotNil(t, f.Chart)

	_, _, err = SHMDistribution(table, "tissue", "reads", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSHMAggregate(t *testing.T) {
	_, out, err := SHMAggregate(load(t), clone.FieldSubject)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	var s1 = out.Records[0]
	assert.Equal(t, "4", s1.Get("n"))
	assert.InDelta(t, 4.55, value(t, s1, "mean"), 1e-9)
	assert.InDelta(t, 2.9, value(t, s1, "median"), 1e-9)
	assert.InDelta(t, 12, value(t, s1, "max"), 1e-9)
}

func TestBuckets(t *testing.T) {
	var cuts = []float64{1, 10, 25}
	assert.Equal(t, "[0-1)", bucketLabel(0, cuts))
	assert.Equal(t, "[1-10)", bucketLabel(1, cuts))
	assert.Equal(t, "[10-25)", bucketLabel(24.9, cuts))
	assert.Equal(t, "25+", bucketLabel(25, cuts))
	assert.Equal(t, "0+", bucketLabel(3, nil))
	assert.Less(t, bucketStart("[10-25)"), bucketStart("25+"))
	assert.Less(t, bucketStart("[0-1)"), bucketStart("[1-10)"))
}

func TestSHMRange(t *testing.T) {
	var table = load(t)

	_, m, err := SHMRange(table, "tissue", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"blood", "spleen"}, m.Rows)
	assert.Equal(t, []string{"[0-1)", "[1-10)", "[10-25)", "25+"}, m.Cols)
	assert.Equal(t, []float64{60, 20, 0, 20}, m.Values[0])
	assert.Equal(t, []float64{50, 0, 50, 0}, m.Values[1])

	// cut-points above the maximum SHM are dropped
	_, m, err = SHMRange(table, "tissue", []float64{1, 50}, []string{"spleen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"spleen"}, m.Rows)
	assert.Equal(t, []string{"[0-1)", "1+"}, m.Cols)
	assert.Equal(t, []float64{50, 50}, m.Values[0])
}

func TestMutatedFraction(t *testing.T) {
	_, out, err := MutatedFraction(load(t), clone.FieldSubject, 1)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.InDelta(t, 200.0/3, value(t, out.Records[0], "mutated"), 1e-9)
	assert.InDelta(t, 50, value(t, out.Records[1], "mutated"), 1e-9)
	assert.InDelta(t, 0, value(t, out.Records[2], "mutated"), 1e-9)
}

func TestCloneSize(t *testing.T) {
	var table = load(t)

	f, out, err := CloneCounts(table, clone.FieldSubject)
	require.NoError(t, err)
	assert.Equal(t, "3", out.Records[0].Get(clone.FieldClones))
	assert.Equal(t, "1", out.Records[2].Get(clone.FieldClones))

	var path = filepath.Join(t.TempDir(), "counts.png")
	require.NoError(t, f.Save(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, out, err = CloneSizes(table, clone.FieldSubject, clone.FieldCopies)
	require.NoError(t, err)
	require.Equal(t, 6, out.Len())
	assert.Equal(t, "1", out.Records[0].Get(clone.FieldCopies))
	assert.Equal(t, "15", out.Records[2].Get(clone.FieldCopies))

	_, out, err = TopClones(table, clone.FieldSubject, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1500.0/19, value(t, out.Records[0], "percent"), 1e-9)
	assert.InDelta(t, 80, value(t, out.Records[1], "percent"), 1e-9)
	assert.InDelta(t, 100, value(t, out.Records[2], "percent"), 1e-9)

	_, out, err = DIndex(table, clone.FieldSubject, 50)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, value(t, out.Records[0], "d50"), 1e-9)
	assert.InDelta(t, 50, value(t, out.Records[1], "d50"), 1e-9)

	_, m, err := Ranges(table, "tissue", []float64{5})
	require.NoError(t, err)
	assert.Equal(t, []string{"[0-5)", "5+"}, m.Cols)
	assert.Equal(t, []float64{60, 40}, m.Values[0])
	assert.Equal(t, []float64{50, 50}, m.Values[1])

	_, _, err = TopClones(table, clone.FieldSubject, 0)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestCDR3(t *testing.T) {
	var table = load(t)

	_, out, err := CDR3Spectratype(table, clone.FieldSubject, clone.FieldClones)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "S2", out.Records[1].Get(clone.FieldSubject))
	assert.Equal(t, "9", out.Records[1].Get(clone.FieldCDR3NumNTs))
	assert.InDelta(t, 50, value(t, out.Records[1], "size"), 1e-9)
	assert.InDelta(t, 100, value(t, out.Records[3], "size"), 1e-9)

	_, out, err = CDR3Distribution(table, clone.FieldSubject)
	require.NoError(t, err)
	assert.InDelta(t, 3, value(t, out.Records[0], "mean"), 1e-9)
	assert.InDelta(t, 3.5, value(t, out.Records[1], "median"), 1e-9)

	_, m, err := CDR3AAUsage(table, clone.FieldSubject)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, m.Values[0][0], 1e-9)
	assert.Equal(t, "A", m.Cols[0])
	assert.Equal(t, "C", m.Cols[1])

	f, m, err := CDR3Logo(table, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, m.Rows)
	var c, r = m.ColIndex("C"), m.ColIndex("R")
	assert.Equal(t, 1.0, m.Values[0][c])
	assert.Equal(t, 0.5, m.Values[2][r])
	assert.Contains(t, f.Title, "4 clones")

	_, _, err = CDR3Logo(table, 7)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestStringsOptions(t *testing.T) {
	var table = load(t)

	tests := []struct {
		name   string
		opts   func(o *StringsOptions)
		rows   []string
		cols   []string
		values [][]float64
	}{
		{
			"default",
			func(o *StringsOptions) {},
			[]string{"CAR", "CAPK"},
			[]string{"S1 (3)", "Water (1)", "S2 (2)"},
			[][]float64{{100, 0, 20}, {0, 100, 80}},
		},
		{
			"limit",
			func(o *StringsOptions) { o.Limit = 1 },
			[]string{"CAPK"},
			[]string{"S1 (3)", "S2 (2)", "Water (1)"},
			[][]float64{{0, 80, 100}},
		},
		{
			"pivot_hook",
			func(o *StringsOptions) {
				o.PivotHook = func(m *clone.Matrix) *clone.Matrix {
					out, _ := m.SelectRows([]string{"CAR"})
					return out
				}
			},
			[]string{"CAR"},
			[]string{"Water (1)", "S1 (3)", "S2 (2)"},
			[][]float64{{0, 100, 100}},
		},
		{
			"col_order",
			func(o *StringsOptions) {
				o.ColOrder = func(*clone.Matrix) []string { return []string{"S2", "S1", "Water"} }
			},
			[]string{"CAR", "CAPK"},
			[]string{"S2 (2)", "S1 (3)", "Water (1)"},
			[][]float64{{20, 100, 0}, {80, 0, 100}},
		},
		{
			"row_order",
			func(o *StringsOptions) {
				o.RowOrder = func(*clone.Matrix) []string { return []string{"CAPK", "CAR"} }
			},
			[]string{"CAPK", "CAR"},
			[]string{"S1 (3)", "Water (1)", "S2 (2)"},
			[][]float64{{0, 100, 80}, {100, 0, 20}},
		},
		{
			"col_namer",
			func(o *StringsOptions) { o.ColNamer = strings.ToLower },
			[]string{"CAR", "CAPK"},
			[]string{"s1 (3)", "water (1)", "s2 (2)"},
			[][]float64{{100, 0, 20}, {0, 100, 80}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts = DefaultStringsOptions()
			opts.Features = []string{clone.FieldCDR3AA}
			tt.opts(&opts)
			_, m, err := Strings(table, clone.FieldSubject, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, m.Rows)
			assert.Equal(t, tt.cols, m.Cols)
			for i := range tt.values {
				assert.InDeltaSlice(t, tt.values[i], m.Values[i], 1e-9)
			}
		})
	}
}

func TestStringsScale(t *testing.T) {
	var table = load(t)

	tests := []struct {
		scale string
		car   []float64
	}{
		{"linear", []float64{100, 0, 20}},
		{"log", []float64{2, math.Inf(-1), math.Log10(20)}},
	}
	for _, tt := range tests {
		t.Run(tt.scale, func(t *testing.T) {
			var opts = DefaultStringsOptions()
			opts.Features = []string{clone.FieldCDR3AA}
			opts.Scale = tt.scale
			f, m, err := Strings(table, clone.FieldSubject, opts)
			require.NoError(t, err)
			// returned data stays in % of column
			assert.Equal(t, []float64{100, 0, 20}, m.Values[0])

			var h = f.Heatmap
			assert.Nil(t, h.Categories)
			assert.Equal(t, stringScale, h.Scale)
			assert.InDelta(t, tt.car[0], h.Matrix.Values[0][0], 1e-9)
			assert.Equal(t, tt.car[1], h.Matrix.Values[0][1])
			assert.InDelta(t, tt.car[2], h.Matrix.Values[0][2], 1e-9)

			var path = filepath.Join(t.TempDir(), "strings.xlsx")
			require.NoError(t, f.Save(path))
			xlsx, err := excelize.OpenFile(path)
			require.NoError(t, err)
			defer xlsx.Close()
			label, err := xlsx.GetCellValue("heatmap", "A2")
			require.NoError(t, err)
			assert.Equal(t, "1", label)
			present, err := xlsx.GetCellValue("heatmap", "B2")
			require.NoError(t, err)
			assert.InDelta(t, tt.car[0], lo.Must(strconv.ParseFloat(present, 64)), 1e-9)
			// zero cells stay empty, on the log scale too
			absent, err := xlsx.GetCellValue("heatmap", "C2")
			require.NoError(t, err)
			assert.Empty(t, absent)
		})
	}
}

func TestMissingSHM(t *testing.T) {
	table, err := clone.Parse(strings.NewReader(
		"clone_id\tsubject\tcopies\tshm\n" +
			"1\tS1\t4\t10\n" +
			"2\tS1\t6\t\n",
	))
	require.NoError(t, err)

	_, out, err := SHMAggregate(table, clone.FieldSubject)
	require.NoError(t, err)
	assert.Equal(t, "1", out.Records[0].Get("n"))
	assert.Equal(t, 10.0, value(t, out.Records[0], "mean"))
	assert.Equal(t, 10.0, value(t, out.Records[0], "min"))

	// the pool total still holds the row without shm
	_, out, err = SHMDistribution(table, clone.FieldSubject, clone.FieldCopies, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "10", out.Records[0].Get(clone.FieldSHM))
	assert.InDelta(t, 40, value(t, out.Records[0], "size"), 1e-9)

	_, out, err = MutatedFraction(table, clone.FieldSubject, 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, value(t, out.Records[0], "mutated"))

	_, m, err := SHMRange(table, clone.FieldSubject, []float64{5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"5+"}, m.Cols)
	assert.Equal(t, []float64{100}, m.Values[0])

	assert.Equal(t, 10.0, mean(table.Records, clone.FieldSHM))
	assert.True(t, math.IsNaN(mean(table.Records[1:], clone.FieldSHM)))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.062, round3(0.0625))
	assert.Equal(t, 0.188, round3(0.1875))
	assert.Equal(t, 0.97, round3(0.9701425))
}
