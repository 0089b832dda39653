package clone

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// IgBLAST AIRR rearrangement columns (-outfmt 19)
const (
	igblastSequence       = "sequence"
	igblastProductive     = "productive"
	igblastVCall          = "v_call"
	igblastJCall          = "j_call"
	igblastCDR3           = "cdr3"
	igblastCDR3AA         = "cdr3_aa"
	igblastVIdentity      = "v_identity"
	igblastDuplicateCount = "duplicate_count"
)

var IgblastTitle = []string{
	FieldCloneID,
	FieldSubject,
	FieldVGene,
	FieldJGene,
	FieldCDR3NT,
	FieldCDR3AA,
	FieldCDR3NumNTs,
	FieldFunctional,
	FieldCopies,
	FieldUniques,
	FieldSHM,
}

// callGene keeps the first call of a comma separated list, without its allele.
func callGene(call string) string {
	call, _, _ = strings.Cut(call, ",")
	call, _, _ = strings.Cut(call, "*")
	return strings.TrimSpace(call)
}

func productive(s string) string {
	switch strings.ToUpper(s) {
	case "T", "TRUE":
		return "T"
	}
	return "F"
}

type igblastRead struct {
	subject string
	key     string
	record  *Record
}

// ConvertIgblast builds a clone table from a directory of IgBLAST AIRR tsv
// files, one subject per file named after it. Reads sharing V gene, J gene
// and CDR3 nucleotides form a clone, clone_ids being shared across subjects.
// copies counts reads (duplicate_count when present), uniques counts distinct
// sequences and shm is the mean of 100 - v_identity. Reads without a V or J
// call or a CDR3 are skipped.
func ConvertIgblast(dir string) (*Table, error) {
	paths, err := tsvFiles(dir)
	if err != nil {
		return nil, err
	}

	var reads []igblastRead
	for _, p := range paths {
		t, err := ReadTSV(p)
		if err != nil {
			return nil, err
		}
		if err = t.Require(igblastVCall, igblastJCall, igblastCDR3); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		var subject = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(p), ".gz"), ".tsv")
		for _, r := range t.Records {
			var (
				v    = callGene(r.Get(igblastVCall))
				j    = callGene(r.Get(igblastJCall))
				cdr3 = strings.ToUpper(r.Get(igblastCDR3))
			)
			if v == "" || j == "" || cdr3 == "" {
				continue
			}
			reads = append(reads, igblastRead{subject: subject, key: v + " " + j + " " + cdr3, record: r})
		}
		slog.Info("ConvertIgblast", "subject", subject, "reads", t.Len())
	}

	var keys = lo.Uniq(lo.Map(reads, func(r igblastRead, _ int) string { return r.key }))
	sort.Strings(keys)
	var ids = make(map[string]string, len(keys))
	for i, k := range keys {
		ids[k] = strconv.Itoa(i + 1)
	}

	var groups = lo.GroupBy(reads, func(r igblastRead) [2]string { return [2]string{ids[r.key], r.subject} })
	var order = lo.Keys(groups)
	sort.Slice(order, func(a, b int) bool {
		ia, ib := lo.Must(strconv.Atoi(order[a][0])), lo.Must(strconv.Atoi(order[b][0]))
		if ia != ib {
			return ia < ib
		}
		return order[a][1] < order[b][1]
	})

	var out = NewTable(IgblastTitle, nil)
	for _, k := range order {
		var (
			rs    = groups[k]
			first = rs[0]
			v, j  = callGene(first.record.Get(igblastVCall)), callGene(first.record.Get(igblastJCall))
			cdr3  = strings.ToUpper(first.record.Get(igblastCDR3))

			copies    float64
			sequences = make(map[string]bool)
			shm       []float64
		)
		for _, r := range rs {
			n, err := strconv.ParseFloat(r.record.Get(igblastDuplicateCount), 64)
			if err != nil || n <= 0 {
				n = 1
			}
			copies += n
			sequences[r.record.Get(igblastSequence)] = true
			if identity, err := strconv.ParseFloat(r.record.Get(igblastVIdentity), 64); err == nil {
				shm = append(shm, 100-identity)
			}
		}
		var meanSHM = math.NaN()
		if len(shm) > 0 {
			meanSHM = lo.Sum(shm) / float64(len(shm))
		}

		record, err := NewRecord(map[string]string{
			FieldCloneID:    k[0],
			FieldSubject:    k[1],
			FieldVGene:      v,
			FieldJGene:      j,
			FieldCDR3NT:     cdr3,
			FieldCDR3AA:     strings.ToUpper(first.record.Get(igblastCDR3AA)),
			FieldCDR3NumNTs: strconv.Itoa(len(cdr3)),
			FieldFunctional: productive(first.record.Get(igblastProductive)),
			FieldCopies:     strconv.FormatFloat(copies, 'f', -1, 64),
			FieldUniques:    strconv.Itoa(len(sequences)),
			FieldSHM:        formatMissing(meanSHM),
		})
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, record)
	}
	return out, nil
}

// formatMissing writes NaN as an empty cell.
func formatMissing(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
