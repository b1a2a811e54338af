package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/store"
	"github.com/spf13/cobra"
)

// pipelineFlags are shared by the commands that run the pipeline.
type pipelineFlags struct {
	clusters   int
	seed       int64
	nInit      int
	delimiter  string
	sheetName  string
	sheetIndex int
	maxRows    int
	includeCat bool
}

func (pf *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&pf.clusters, "clusters", "k", 0, "number of clusters (overrides config)")
	cmd.Flags().Int64Var(&pf.seed, "seed", 0, "random seed for k-means++ (overrides config)")
	cmd.Flags().IntVar(&pf.nInit, "n-init", 0, "seeded restarts, best inertia kept (overrides config)")
	cmd.Flags().StringVar(&pf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&pf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&pf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().IntVar(&pf.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	cmd.Flags().BoolVar(&pf.includeCat, "include-categorical", false, "also cluster on encoded categorical columns")
}

// options merges config and flags into pipeline options.
func (pf *pipelineFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	c, err := currentConfig()
	if err != nil {
		return opts, err
	}
	opts.Schema = c.Schema()
	opts.Segment = c.Segment()
	opts.Columns = c.Columns()
	opts.Logger = logger

	f := cmd.Flags()
	if f.Changed("clusters") {
		opts.Segment.K = pf.clusters
	}
	if f.Changed("seed") {
		opts.Segment.Seed = pf.seed
	}
	if f.Changed("n-init") && pf.nInit > 0 {
		opts.Segment.NInit = pf.nInit
	}
	if f.Changed("include-categorical") {
		opts.Schema.IncludeCategorical = pf.includeCat
	}
	d, err := parseDelimiter(pf.delimiter)
	if err != nil {
		return opts, err
	}
	opts.Dataset = dataset.Options{
		Delimiter:  d,
		SheetName:  pf.sheetName,
		SheetIndex: pf.sheetIndex,
		MaxRows:    pf.maxRows,
	}
	return opts, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// openHistory opens the configured run history store.
func openHistory() (*store.History, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	path := c.HistoryDB
	if flagHistoryDB != "" {
		path = flagHistoryDB
	}
	return store.Open(path)
}

// reportExt maps a render format to a file extension.
func reportExt(format string) string {
	switch strings.ToLower(format) {
	case pipeline.FormatJSON:
		return ".json"
	case pipeline.FormatYAML, "yml":
		return ".yaml"
	case pipeline.FormatMarkdown, "md":
		return ".md"
	default:
		return ".txt"
	}
}
