// Package pipeline wires the normalizer, the segmenter and the summary
// generator into the preprocess → cluster → summarize flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"strconv"
	"time"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
	"github.com/KaramelBytes/shopseg-cli/internal/insight"
	"github.com/KaramelBytes/shopseg-cli/internal/segment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInputNotFound is returned when the input file does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Options configures a pipeline run.
type Options struct {
	Dataset dataset.Options
	Schema  features.Schema
	Segment segment.Options
	Columns insight.Columns
	// ProcessedPath, if set, receives the normalized table as CSV.
	ProcessedPath string
	// LabeledPath, if set, receives the input table plus the cluster column.
	LabeledPath string
	Logger      *zap.Logger
}

// DefaultOptions returns the shopper-behaviour defaults (k=4, seed 42).
func DefaultOptions() Options {
	return Options{
		Schema:  features.DefaultSchema(),
		Segment: segment.DefaultOptions(),
		Columns: insight.DefaultColumns(),
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Prepared is the output of Preprocess: the raw header-trimmed table and the
// normalization result derived from it.
type Prepared struct {
	Raw      *dataset.Table
	Features *features.Result
}

// Preprocess loads inputPath and normalizes it. When outputPath is not empty
// the normalized table is written there.
func Preprocess(inputPath, outputPath string, opts Options) (*Prepared, error) {
	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	raw, err := dataset.Load(inputPath, opts.Dataset)
	if err != nil {
		return nil, err
	}
	return PreprocessTable(raw, outputPath, opts)
}

// PreprocessTable normalizes an already loaded table.
func PreprocessTable(raw *dataset.Table, outputPath string, opts Options) (*Prepared, error) {
	log := opts.logger()
	res, err := features.NewNormalizer(opts.Schema, log).Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", raw.Name, err)
	}
	if outputPath != "" {
		if err := features.WriteProcessed(res, outputPath); err != nil {
			return nil, err
		}
		log.Debug("wrote processed table", zap.String("path", outputPath))
	}
	return &Prepared{Raw: raw, Features: res}, nil
}

// Cluster fits k-means on the prepared matrix and returns a copy of the raw
// table with the cluster label column added. p.Raw is not modified.
func Cluster(p *Prepared, opts Options) (*dataset.Table, *segment.Model, error) {
	labels, model, err := segment.Fit(p.Features.Matrix, opts.Segment)
	if err != nil {
		return nil, nil, fmt.Errorf("cluster %s: %w", p.Raw.Name, err)
	}
	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = strconv.Itoa(l)
	}
	col := opts.Columns.Cluster
	if col == "" {
		col = insight.DefaultColumns().Cluster
	}
	labeled, err := p.Raw.WithColumn(col, values)
	if err != nil {
		return nil, nil, err
	}
	opts.logger().Info("clustered",
		zap.Int("k", model.K),
		zap.Float64("inertia", model.Inertia),
		zap.Int("iterations", model.Iterations),
	)
	return labeled, model, nil
}

// Summarize returns the insight statements for a labeled table.
func Summarize(labeled *dataset.Table, cols insight.Columns) iter.Seq[string] {
	return insight.Statements(labeled, cols)
}

// Run executes the whole flow for one input file.
func Run(ctx context.Context, inputPath string, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := Preprocess(inputPath, opts.ProcessedPath, opts)
	if err != nil {
		return nil, err
	}
	rep, err := finish(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	rep.Source = inputPath
	return rep, nil
}

// RunTable executes the whole flow for a table already in memory.
func RunTable(ctx context.Context, raw *dataset.Table, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := PreprocessTable(raw, opts.ProcessedPath, opts)
	if err != nil {
		return nil, err
	}
	return finish(ctx, p, opts)
}

func finish(ctx context.Context, p *Prepared, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labeled, model, err := Cluster(p, opts)
	if err != nil {
		return nil, err
	}
	if opts.LabeledPath != "" {
		if err := dataset.WriteCSV(labeled, opts.LabeledPath); err != nil {
			return nil, fmt.Errorf("write labeled: %w", err)
		}
	}
	cols := opts.Columns
	if cols.Cluster == "" {
		cols.Cluster = insight.DefaultColumns().Cluster
	}
	rep := &Report{
		ID:         uuid.NewString(),
		Source:     p.Raw.Name,
		CreatedAt:  time.Now().UTC(),
		Rows:       labeled.Len(),
		K:          model.K,
		Seed:       model.Seed,
		Inertia:    model.Inertia,
		Iterations: model.Iterations,
		Centroids:  model.Centroids,
		Features:   p.Features.FeatureNames,
		Encodings:  map[string][]string{},
		Skipped:    p.Features.Skipped,
		Insights:   insight.Collect(Summarize(labeled, cols)),
		Profiles:   insight.Profiles(labeled, cols, opts.Schema.Numeric),
		Warnings:   p.Features.Warnings,
		Labeled:    labeled,
	}
	for name, enc := range p.Features.Encodings {
		rep.Encodings[name] = enc.Classes
	}
	return rep, nil
}
