package insight

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
)

// Profile summarizes the rows carrying one cluster label.
type Profile struct {
	Label string             `json:"label" yaml:"label"`
	Size  int                `json:"size" yaml:"size"`
	Share float64            `json:"share" yaml:"share"`
	Means map[string]float64 `json:"means" yaml:"means"` // per numeric column, parsable cells only
}

// Profiles groups t by the cluster column and averages each numeric column
// present in the table. The result is ordered by label.
func Profiles(t *dataset.Table, cols Columns, numeric []string) []Profile {
	ci := t.Index(cols.Cluster)
	if ci < 0 || t.Len() == 0 {
		return nil
	}
	type acc struct {
		size int
		sum  map[string]float64
		cnt  map[string]int
	}
	present := make([]string, 0, len(numeric))
	idx := map[string]int{}
	for _, name := range numeric {
		if i := t.Index(name); i >= 0 {
			present = append(present, name)
			idx[name] = i
		}
	}
	groups := map[string]*acc{}
	for _, r := range t.Rows {
		label := strings.TrimSpace(r[ci])
		g := groups[label]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[label] = g
		}
		g.size++
		for _, name := range present {
			if x, ok := features.ParseNumber(r[idx[name]]); ok {
				g.sum[name] += x
				g.cnt[name]++
			}
		}
	}
	out := make([]Profile, 0, len(groups))
	for label, g := range groups {
		p := Profile{Label: label, Size: g.size, Share: float64(g.size) / float64(t.Len()), Means: map[string]float64{}}
		for _, name := range present {
			if g.cnt[name] > 0 {
				p.Means[name] = g.sum[name] / float64(g.cnt[name])
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return lessLabel(out[i].Label, out[j].Label) })
	return out
}
