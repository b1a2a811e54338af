// Package features turns raw shopper records into a numeric matrix fit for
// distance-based clustering: numeric coercion, median imputation, label
// encoding and standardization, all fitted on the table being processed.
package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"go.uber.org/zap"
)

// minStd below which a column is treated as constant and left unscaled.
const minStd = 1e-12

// Encoding maps the distinct values of a categorical column to codes.
// Classes are in lexical order and Classes[i] has code i.
type Encoding struct {
	Column  string         `json:"column" yaml:"column"`
	Classes []string       `json:"classes" yaml:"classes"`
	Index   map[string]int `json:"-" yaml:"-"`
}

// Code returns the code for a raw value.
func (e Encoding) Code(v string) (int, bool) {
	c, ok := e.Index[strings.TrimSpace(v)]
	return c, ok
}

// Scale records the standardization applied to a numeric column.
type Scale struct {
	Mean    float64 `json:"mean" yaml:"mean"`
	Std     float64 `json:"std" yaml:"std"`
	Applied bool    `json:"applied" yaml:"applied"`
}

// Result holds both views produced by Normalize together with every
// statistic that was fitted, so nothing has to be kept between runs.
type Result struct {
	// Matrix is the clustering input, one row per record.
	Matrix       [][]float64
	FeatureNames []string
	// Table is the transformed copy: numeric columns standardized,
	// categorical columns replaced by their codes, other columns untouched.
	Table     *dataset.Table
	Encodings map[string]Encoding
	Medians   map[string]float64
	Scaling   map[string]Scale
	Skipped   []string
	Warnings  []string
}

// Normalizer applies a Schema to tables.
type Normalizer struct {
	schema Schema
	log    *zap.Logger
}

// NewNormalizer returns a Normalizer. A nil logger disables logging.
func NewNormalizer(schema Schema, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{schema: schema, log: log}
}

// Normalize is shorthand for NewNormalizer(schema, nil).Normalize(t).
func Normalize(t *dataset.Table, schema Schema) (*Result, error) {
	return NewNormalizer(schema, nil).Normalize(t)
}

// Normalize fits and applies the schema to t. The input table is not modified.
func (n *Normalizer) Normalize(t *dataset.Table) (*Result, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	work := t.Clone()
	res := &Result{
		Table:     work,
		Encodings: map[string]Encoding{},
		Medians:   map[string]float64{},
		Scaling:   map[string]Scale{},
	}
	rows := work.Len()

	var numCols [][]float64
	for _, name := range n.schema.Numeric {
		idx := work.Index(name)
		if idx < 0 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		vals, median, observed := imputeMedian(work, idx)
		res.Medians[name] = median
		if observed == 0 {
			msg := fmt.Sprintf("column %q has no numeric values; imputed with %s", name, FormatNumber(median))
			res.Warnings = append(res.Warnings, msg)
			n.log.Warn("numeric column entirely missing", zap.String("column", name))
		}
		mean, std := MeanStd(vals)
		sc := Scale{Mean: mean, Std: std}
		if std >= minStd {
			for i := range vals {
				vals[i] = (vals[i] - mean) / std
			}
			sc.Applied = true
		} else {
			n.log.Debug("constant column left unscaled", zap.String("column", name))
		}
		res.Scaling[name] = sc
		for i, v := range vals {
			work.Rows[i][idx] = FormatNumber(v)
		}
		numCols = append(numCols, vals)
		res.FeatureNames = append(res.FeatureNames, name)
	}
	if len(numCols) == 0 {
		return nil, &MissingFeatureError{
			Declared: append([]string(nil), n.schema.Numeric...),
			Present:  append([]string(nil), t.Columns...),
		}
	}

	var catCols [][]float64
	var catNames []string
	for _, name := range n.schema.Categorical {
		idx := work.Index(name)
		if idx < 0 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		enc := fitEncoding(work, idx, name)
		res.Encodings[name] = enc
		codes := make([]float64, rows)
		for i, r := range work.Rows {
			c := enc.Index[strings.TrimSpace(r[idx])]
			codes[i] = float64(c)
			r[idx] = FormatNumber(float64(c))
		}
		catCols = append(catCols, codes)
		catNames = append(catNames, name)
	}
	if n.schema.IncludeCategorical {
		numCols = append(numCols, catCols...)
		res.FeatureNames = append(res.FeatureNames, catNames...)
	}

	res.Matrix = make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, len(numCols))
		for j, col := range numCols {
			row[j] = col[i]
		}
		res.Matrix[i] = row
	}
	if len(res.Skipped) > 0 {
		n.log.Debug("declared columns not present", zap.Strings("skipped", res.Skipped))
	}
	n.log.Info("normalized table",
		zap.String("source", t.Name),
		zap.Int("rows", rows),
		zap.Strings("features", res.FeatureNames),
		zap.Int("encoded", len(res.Encodings)))
	return res, nil
}

// imputeMedian coerces column idx and fills missing cells with the median
// of the parsed cells. A column with no parsable cell is filled with 0.
func imputeMedian(t *dataset.Table, idx int) (vals []float64, median float64, observed int) {
	vals = make([]float64, t.Len())
	missing := make([]bool, t.Len())
	parsed := make([]float64, 0, t.Len())
	for i, r := range t.Rows {
		if x, ok := ParseNumber(r[idx]); ok {
			vals[i] = x
			parsed = append(parsed, x)
			continue
		}
		missing[i] = true
	}
	median = Median(parsed)
	for i := range vals {
		if missing[i] {
			vals[i] = median
		}
	}
	return vals, median, len(parsed)
}

func fitEncoding(t *dataset.Table, idx int, name string) Encoding {
	seen := map[string]struct{}{}
	for _, r := range t.Rows {
		seen[strings.TrimSpace(r[idx])] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, v := range classes {
		index[v] = i
	}
	return Encoding{Column: name, Classes: classes, Index: index}
}

// WriteProcessed persists the transformed table as CSV.
func WriteProcessed(res *Result, path string) error {
	if err := dataset.WriteCSV(res.Table, path); err != nil {
		return fmt.Errorf("write processed: %w", err)
	}
	return nil
}
