package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/insight"
	"github.com/KaramelBytes/shopseg-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of one pipeline run.
type Report struct {
	ID         string              `json:"id" yaml:"id"`
	Source     string              `json:"source" yaml:"source"`
	CreatedAt  time.Time           `json:"created_at" yaml:"created_at"`
	Rows       int                 `json:"rows" yaml:"rows"`
	K          int                 `json:"k" yaml:"k"`
	Seed       int64               `json:"seed" yaml:"seed"`
	Inertia    float64             `json:"inertia" yaml:"inertia"`
	Iterations int                 `json:"iterations" yaml:"iterations"`
	Centroids  [][]float64         `json:"centroids" yaml:"centroids"`
	Features   []string            `json:"features" yaml:"features"`
	Encodings  map[string][]string `json:"encodings,omitempty" yaml:"encodings,omitempty"`
	Skipped    []string            `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Insights   []string            `json:"insights" yaml:"insights"`
	Profiles   []insight.Profile   `json:"profiles" yaml:"profiles"`
	Warnings   []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Labeled is the input table with the cluster column; not serialized.
	Labeled *dataset.Table `json:"-" yaml:"-"`
}

// Formats accepted by Render.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Render encodes the report in the named format.
func (r *Report) Render(format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return []byte(r.Text()), nil
	case FormatMarkdown, "md":
		return []byte(r.Markdown()), nil
	case FormatJSON:
		return utils.PrettyJSON(r)
	case FormatYAML, "yml":
		b, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use text|markdown|json|yaml)", format)
	}
}

// Text returns the insight statements one per line.
func (r *Report) Text() string {
	var b strings.Builder
	for _, s := range r.Insights {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}

// Markdown renders a sectioned summary of the run.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", r.ID))
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Source))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Clusters: %d (seed %d, %d iterations, inertia %.4g)\n\n", r.K, r.Seed, r.Iterations, r.Inertia))

	b.WriteString("[FEATURES]\n")
	for _, f := range r.Features {
		b.WriteString(fmt.Sprintf("- %s\n", f))
	}
	if len(r.Encodings) > 0 {
		names := make([]string, 0, len(r.Encodings))
		for n := range r.Encodings {
			names = append(names, n)
		}
		sort.Strings(names)
		b.WriteString("\n[ENCODINGS]\n")
		for _, n := range names {
			b.WriteString(fmt.Sprintf("- %s: %s\n", n, strings.Join(r.Encodings[n], ", ")))
		}
	}

	if len(r.Profiles) > 0 {
		b.WriteString("\n[CLUSTER PROFILES]\n")
		for _, p := range r.Profiles {
			b.WriteString(fmt.Sprintf("- Cluster %s (n=%d, %.1f%%)\n", p.Label, p.Size, p.Share*100))
			keys := make([]string, 0, len(p.Means))
			for k := range p.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", k, p.Means[k]))
			}
		}
	}

	b.WriteString("\n[INSIGHTS]\n")
	b.WriteString(r.Text())

	if len(r.Skipped) > 0 || len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		if len(r.Skipped) > 0 {
			b.WriteString(fmt.Sprintf("- columns not found: %s\n", strings.Join(r.Skipped, ", ")))
		}
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
