// Package insight renders short natural-language statements and per-cluster
// profiles from a labeled shopper table. Everything here is a pure read of
// the table; nothing is cached between calls.
package insight

import (
	"fmt"
	"iter"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
)

// Columns names the table columns the rules read.
type Columns struct {
	Amount    string   `json:"amount" yaml:"amount"`
	Cluster   string   `json:"cluster" yaml:"cluster"`
	Discount  string   `json:"discount" yaml:"discount"`
	Frequency string   `json:"frequency" yaml:"frequency"`
	Truthy    []string `json:"truthy" yaml:"truthy"` // discount values counted as applied, case-insensitive
}

// DefaultColumns matches the shopper-behaviour dataset.
func DefaultColumns() Columns {
	return Columns{
		Amount:    "Purchase Amount (USD)",
		Cluster:   "Cluster",
		Discount:  "Discount Applied",
		Frequency: "Frequency of Purchases",
		Truthy:    []string{"yes", "true", "1", "y", "applied"},
	}
}

// Rule is one entry of the checklist. Render may decline (ok=false) when the
// data gives it nothing to say, e.g. no parsable amounts.
type Rule struct {
	Name     string
	Requires func(c Columns) []string
	Render   func(t *dataset.Table, c Columns) (text string, ok bool)
}

// Checklist is the fixed statement order.
var Checklist = []Rule{
	{Name: "average_spend", Requires: needs(amountCol), Render: averageSpend},
	{Name: "dominant_cluster", Requires: needs(clusterCol), Render: dominantCluster},
	{Name: "high_value", Requires: needs(amountCol), Render: highValue},
	{Name: "discount_sensitive", Requires: needs(discountCol), Render: discountSensitive},
	{Name: "purchase_frequency", Requires: needs(frequencyCol), Render: purchaseFrequency},
}

func amountCol(c Columns) string    { return c.Amount }
func clusterCol(c Columns) string   { return c.Cluster }
func discountCol(c Columns) string  { return c.Discount }
func frequencyCol(c Columns) string { return c.Frequency }

func needs(fns ...func(Columns) string) func(Columns) []string {
	return func(c Columns) []string {
		out := make([]string, len(fns))
		for i, f := range fns {
			out[i] = f(c)
		}
		return out
	}
}

// Generator evaluates a rule list against tables.
type Generator struct {
	cols  Columns
	rules []Rule
}

// NewGenerator uses Checklist when rules is nil.
func NewGenerator(cols Columns, rules []Rule) *Generator {
	if rules == nil {
		rules = Checklist
	}
	return &Generator{cols: cols, rules: rules}
}

// Statements yields the statements for t lazily, in rule order. Each range
// over the returned sequence recomputes from the table's current contents.
func (g *Generator) Statements(t *dataset.Table) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, r := range g.rules {
			if !t.Has(r.Requires(g.cols)...) {
				continue
			}
			text, ok := r.Render(t, g.cols)
			if !ok {
				continue
			}
			if !yield(text) {
				return
			}
		}
	}
}

// Statements runs the default checklist.
func Statements(t *dataset.Table, cols Columns) iter.Seq[string] {
	return NewGenerator(cols, nil).Statements(t)
}

// Collect materializes a statement sequence.
func Collect(seq iter.Seq[string]) []string {
	var out []string
	for s := range seq {
		out = append(out, s)
	}
	return out
}

func averageSpend(t *dataset.Table, c Columns) (string, bool) {
	mean, n := columnMean(t, c.Amount)
	if n == 0 {
		return "", false
	}
	return fmt.Sprintf("Average customer spending is $%.2f.", mean), true
}

func dominantCluster(t *dataset.Table, c Columns) (string, bool) {
	counts := valueCounts(t, c.Cluster)
	if len(counts) == 0 {
		return "", false
	}
	top := counts[0]
	return fmt.Sprintf("Cluster %s contains the highest number of customers (%d of %d), indicating the dominant shopper group.",
		top.Value, top.Count, t.Len()), true
}

func highValue(t *dataset.Table, c Columns) (string, bool) {
	mean, n := columnMean(t, c.Amount)
	if n == 0 {
		return "", false
	}
	cells, _ := t.Column(c.Amount)
	above := 0
	for _, v := range cells {
		if x, ok := features.ParseNumber(v); ok && x > mean {
			above++
		}
	}
	return fmt.Sprintf("%d customers spend above average and are ideal targets for premium offers.", above), true
}

func discountSensitive(t *dataset.Table, c Columns) (string, bool) {
	cells, _ := t.Column(c.Discount)
	truthy := make(map[string]struct{}, len(c.Truthy))
	for _, v := range c.Truthy {
		truthy[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	n := 0
	for _, v := range cells {
		if _, ok := truthy[strings.ToLower(strings.TrimSpace(v))]; ok {
			n++
		}
	}
	return fmt.Sprintf("%d customers are influenced by discounts, suggesting promotions strongly affect purchases.", n), true
}

func purchaseFrequency(t *dataset.Table, c Columns) (string, bool) {
	if mean, n := columnMean(t, c.Frequency); n > 0 {
		return fmt.Sprintf("Average purchase frequency is %.1f, showing moderate repeat buying behavior.", mean), true
	}
	counts := valueCounts(t, c.Frequency)
	if len(counts) == 0 {
		return "Purchase frequency is categorical, so no numeric average is reported.", true
	}
	return fmt.Sprintf("Purchase frequency is categorical (most common: %s), so no numeric average is reported.", counts[0].Value), true
}
