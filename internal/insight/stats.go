package insight

import (
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
)

// ValueCount is one distinct value and how often it occurs.
type ValueCount struct {
	Value string
	Count int
}

// columnMean averages the parsable cells of a column; n is how many parsed.
func columnMean(t *dataset.Table, name string) (mean float64, n int) {
	cells, ok := t.Column(name)
	if !ok {
		return 0, 0
	}
	var sum float64
	for _, v := range cells {
		if x, ok := features.ParseNumber(v); ok {
			sum += x
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// valueCounts counts non-empty trimmed values, highest count first.
// Equal counts are ordered by lessLabel, so the lowest label wins ties.
func valueCounts(t *dataset.Table, name string) []ValueCount {
	cells, ok := t.Column(name)
	if !ok {
		return nil
	}
	m := map[string]int{}
	for _, v := range cells {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		m[v]++
	}
	out := make([]ValueCount, 0, len(m))
	for k, v := range m {
		out = append(out, ValueCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return lessLabel(out[i].Value, out[j].Value)
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// lessLabel orders integer labels numerically and everything else lexically;
// integers sort before non-integers.
func lessLabel(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
