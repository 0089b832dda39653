package main

import (
	"flag"
	"log"
	"log/slog"
	"path/filepath"
	"strings"

	"hicutils/pkg/clone"
	"hicutils/pkg/filter"

	"github.com/liserjrqlxue/goUtil/osUtil"
	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/liserjrqlxue/version"
)

// flag
var (
	input = flag.String(
		"i",
		"",
		"input clone tsv, or dir of *.tsv[.gz]",
	)
	igblast = flag.Bool(
		"igblast",
		false,
		"-i is a dir of IgBLAST AIRR tsv (-outfmt 19), one file per subject",
	)
	output = flag.String(
		"o",
		"",
		"output .tsv/.tsv.gz/.xlsx, default <input>.filtered.tsv",
	)
	functional = flag.String(
		"functional",
		"",
		"keep functional (T) or non-functional (F) clones only",
	)
	contaminatePool = flag.String(
		"contaminatePool",
		"subject",
		"pool of contamination controls",
	)
	contaminateValues = flag.String(
		"contaminate",
		"",
		"comma separated contamination control values of -contaminatePool",
	)
	contaminateFeature = flag.String(
		"contaminateFeature",
		clone.FieldCDR3NT,
		"clone feature shared with contamination controls",
	)
	minCopies = flag.Float64(
		"minCopies",
		0,
		"minimum overall copies of a clone",
	)
	copiesField = flag.String(
		"copiesField",
		clone.FieldCloneID,
		"clone definition for -minCopies",
	)
	minGeneFreq = flag.Float64(
		"minGeneFreq",
		0,
		"minimum gene frequency within -geneBy",
	)
	geneBy = flag.String(
		"geneBy",
		clone.FieldSubject,
		"group for -minGeneFreq",
	)
	gene = flag.String(
		"gene",
		clone.FieldVGene,
		"gene for -minGeneFreq, v_gene or j_gene",
	)
	presencePool = flag.String(
		"presencePool",
		"",
		"pool for -presence",
	)
	presence = flag.String(
		"presence",
		"",
		"keep clones present in this -presencePool value",
	)
	overlapPool = flag.String(
		"overlapPool",
		"",
		"pool for -overlap",
	)
	overlap = flag.Int(
		"overlap",
		0,
		"number of pools of -overlapPool a clone must be in",
	)
	overlapCmp = flag.String(
		"overlapCmp",
		"greater_equal",
		"comparison of -overlap: greater_equal greater equal not_equal less less_equal",
	)
	overlapLimit = flag.String(
		"overlapLimit",
		"",
		"comma separated pools counted by -overlap",
	)
	metadata = flag.String(
		"metadata",
		"",
		"also write a summary per value of this field, e.g. METADATA_disease",
	)
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func main() {
	version.LogVersion()
	flag.Parse()
	if *input == "" {
		flag.PrintDefaults()
		log.Fatal("-i is required")
	}
	if !osUtil.FileExists(*input) {
		log.Fatalf("input not exists:[%s]", *input)
	}
	if *output == "" {
		*output = strings.TrimSuffix(strings.TrimSuffix(filepath.Clean(*input), ".gz"), ".tsv") + ".filtered.tsv"
	}

	var t *clone.Table
	if *igblast {
		t = simpleUtil.HandleError(clone.ConvertIgblast(*input))
	} else {
		t = simpleUtil.HandleError(clone.Read(*input))
	}
	slog.Info("load", "input", *input, "rows", t.Len())

	switch *functional {
	case "T":
		t = filter.Functional(t, true)
	case "F":
		t = filter.Functional(t, false)
	case "":
	default:
		log.Fatalf("-functional must be T or F:[%s]", *functional)
	}
	slog.Info("functional", "rows", t.Len())

	if values := splitList(*contaminateValues); len(values) > 0 {
		t = simpleUtil.HandleError(filter.RemovePotentialContaminates(t, *contaminatePool, values, *contaminateFeature))
		slog.Info("contaminate", "values", values, "rows", t.Len())
	}
	if *minCopies > 0 {
		t = simpleUtil.HandleError(filter.ByOverallCopies(t, *minCopies, *copiesField))
		slog.Info("minCopies", "copies", *minCopies, "rows", t.Len())
	}
	if *minGeneFreq > 0 {
		t = simpleUtil.HandleError(filter.ByGeneFrequency(t, *minGeneFreq, *geneBy, *gene))
		slog.Info("minGeneFreq", "frequency", *minGeneFreq, "rows", t.Len())
	}
	if *presence != "" {
		t = simpleUtil.HandleError(filter.ByPresence(t, *presencePool, *presence))
		slog.Info("presence", "pool", *presencePool, "value", *presence, "rows", t.Len())
	}
	if *overlapPool != "" {
		t = simpleUtil.HandleError(filter.NumberOfPools(t, *overlapPool, *overlap, *overlapCmp, splitList(*overlapLimit)))
		slog.Info("overlap", "pool", *overlapPool, "n", *overlap, "cmp", *overlapCmp, "rows", t.Len())
	}

	write(t, *output, "clones")

	if *metadata != "" {
		var meta = simpleUtil.HandleError(clone.MakeMetadataTable(t, *metadata))
		var ext = filepath.Ext(*output)
		write(meta, strings.TrimSuffix(*output, ext)+".metadata"+ext, "metadata")
	}
}

func write(t *clone.Table, path, sheet string) {
	if filepath.Ext(path) == ".xlsx" {
		simpleUtil.CheckErr(t.WriteXLSX(path, sheet))
	} else {
		simpleUtil.CheckErr(t.WriteTSV(path))
	}
}
