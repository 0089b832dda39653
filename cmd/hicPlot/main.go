package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hicutils/pkg/clone"

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
	outputDir = flag.String(
		"o",
		"",
		"output dir, default same as -i",
	)
	prefix = flag.String(
		"prefix",
		"",
		"output prefix, default basename of -i",
	)
	kinds = flag.String(
		"kind",
		"",
		"comma separated plots: "+strings.Join(Kinds(), ","),
	)
	pool = flag.String(
		"pool",
		clone.FieldSubject,
		"pool column",
	)
	gene = flag.String(
		"gene",
		clone.FieldVGene,
		"v_gene or j_gene",
	)
	metric = flag.String(
		"metric",
		clone.FieldClones,
		"size metric: clones copies uniques",
	)
	normalizeBy = flag.String(
		"normalize",
		"rows",
		"heatmap normalization: rows cols, empty for none",
	)
	clusterBy = flag.String(
		"cluster",
		"both",
		"heatmap clustering: rows cols both, empty for none",
	)
	by = flag.String(
		"by",
		"",
		"hue column of gene_frequency",
	)
	dist = flag.String(
		"dist",
		"jaccard",
		"similarity: jaccard cosine",
	)
	features = flag.String(
		"features",
		"",
		"comma separated clone definition of overlap plots",
	)
	scale = flag.String(
		"scale",
		"",
		"overlap strings scale: linear log, empty for presence",
	)
	limit = flag.Int(
		"limit",
		0,
		"overlap strings row limit",
	)
	buckets = flag.String(
		"buckets",
		"",
		"comma separated cut-points of shm_range and ranges",
	)
	order = flag.String(
		"order",
		"",
		"comma separated pool order",
	)
	top = flag.Int(
		"top",
		10,
		"clone count of top_clones",
	)
	percent = flag.Float64(
		"percent",
		50,
		"copies percent of d_index",
	)
	threshold = flag.Float64(
		"threshold",
		0,
		"shm threshold of mutated_fraction",
	)
	length = flag.Int(
		"length",
		12,
		"cdr3 aa length of cdr3_logo",
	)
)

func init() {
	flag.Parse()
	if *input == "" || *kinds == "" {
		flag.Usage()
		log.Fatal("-i/-kind required")
	}
	if !osUtil.FileExists(*input) {
		log.Fatalf("input not exists:[%s]", *input)
	}
	if *outputDir == "" {
		*outputDir = filepath.Dir(*input)
	}
	if *prefix == "" {
		*prefix = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(*input), ".gz"), ".tsv")
	}
}

type plotResult struct {
	Kind   string
	Figure string
	Data   string
	Err    error
}

func main() {
	version.LogVersion()

	var t = simpleUtil.HandleError(clone.Read(*input))
	simpleUtil.CheckErr(os.MkdirAll(*outputDir, 0755))

	var (
		list    = splitList(*kinds)
		results = make(chan plotResult, len(list))
		wg      sync.WaitGroup
	)
	for _, kind := range list {
		wg.Add(1)
		go func(kind string) {
			defer wg.Done()
			results <- runPlot(t, kind, filepath.Join(*outputDir, *prefix+"."+kind))
		}(kind)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var failed int
	for result := range results {
		if result.Err != nil {
			slog.Error("plot", "kind", result.Kind, "err", result.Err)
			failed++
			continue
		}
		slog.Info("plot", "kind", result.Kind, "figure", result.Figure, "data", result.Data)
	}
	if failed > 0 {
		log.Fatalf("%d of %d plots failed", failed, len(list))
	}
}
