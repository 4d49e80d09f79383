// Package config loads and saves the YAML run file of the otukit CLI.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/otukit/format"
	"github.com/arloliu/otukit/table"
)

// Config describes one pipeline run.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Filter     FilterConfig     `yaml:"filter"`
	Aggregate  AggregateConfig  `yaml:"aggregate"`
	Diversity  DiversityConfig  `yaml:"diversity"`
	Ordination OrdinationConfig `yaml:"ordination"`
	Output     OutputConfig     `yaml:"output"`
}

// InputConfig names the input tables.
type InputConfig struct {
	Abundance string `yaml:"abundance"`
	Taxonomy  string `yaml:"taxonomy"`
	Metadata  string `yaml:"metadata"`
	// Snapshot is a dataset written by "otukit import"; when set the three
	// tables above are ignored.
	Snapshot string `yaml:"snapshot,omitempty"`
	// Label selects the rows of a mothur shared file; empty takes the first.
	Label    string `yaml:"label,omitempty"`
	IDColumn string `yaml:"id_column,omitempty"`
	// InnerJoin keeps the intersection of the tables instead of failing on
	// mismatched identifiers.
	InnerJoin bool `yaml:"inner_join"`
}

// FilterConfig lists the samples and taxa to remove.
type FilterConfig struct {
	// ExcludeSamples maps a metadata field to values whose samples are
	// removed, e.g. {"type": ["blank"]}.
	ExcludeSamples map[string][]string `yaml:"exclude_samples,omitempty"`
	// ExcludeTaxa maps a rank to labels whose taxa are removed, e.g.
	// {"Class": ["Chloroplast"]}.
	ExcludeTaxa   map[string][]string `yaml:"exclude_taxa,omitempty"`
	DropEmptyTaxa bool                `yaml:"drop_empty_taxa"`
}

// AggregateConfig controls rank collapsing.
type AggregateConfig struct {
	Rank  string  `yaml:"rank"`
	Prune float64 `yaml:"prune"`
	// Other pools pruned rows under this label; empty drops them.
	Other string `yaml:"other,omitempty"`
}

// DiversityConfig controls rarefaction.
type DiversityConfig struct {
	Depth       int    `yaml:"depth"`
	Trials      int    `yaml:"trials"`
	Seed        uint64 `yaml:"seed"`
	Workers     int    `yaml:"workers,omitempty"`
	DropShallow bool   `yaml:"drop_shallow"`
	// CurvePoints is the number of depths of the rarefaction curves; 0
	// skips them.
	CurvePoints int `yaml:"curve_points"`
}

// OrdinationConfig controls distances, ordination and PERMANOVA.
type OrdinationConfig struct {
	Metric       string `yaml:"metric"`
	Relative     bool   `yaml:"relative"`
	Method       string `yaml:"method"`
	Dims         int    `yaml:"dims"`
	GroupField   string `yaml:"group_field,omitempty"`
	Permutations int    `yaml:"permutations"`
}

// OutputConfig controls where reports go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// Compression is appended to every report name as an extension: "gz",
	// "zst", "s2", "lz4" or empty for plain text.
	Compression string `yaml:"compression,omitempty"`
}

// DefaultConfig returns the configuration used when no run file exists.
func DefaultConfig() *Config {
	return &Config{
		Aggregate: AggregateConfig{
			Rank: "Phylum",
		},
		Diversity: DiversityConfig{
			Depth:  1000,
			Trials: 100,
			Seed:   1,
		},
		Ordination: OrdinationConfig{
			Metric:       "bray-curtis",
			Relative:     true,
			Method:       "pcoa",
			Dims:         2,
			Permutations: 999,
		},
		Output: OutputConfig{
			Dir: "otukit-out",
		},
	}
}

// Load reads a run file. A missing file yields DefaultConfig; values present
// in the file override the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets OTUKIT_OUTPUT_DIR and OTUKIT_WORKERS override the
// file.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("OTUKIT_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if w := os.Getenv("OTUKIT_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			c.Diversity.Workers = n
		}
	}
}

// Validate checks the run file for values no stage would accept.
func (c *Config) Validate() error {
	if c.Input.Snapshot == "" && (c.Input.Abundance == "" || c.Input.Taxonomy == "" || c.Input.Metadata == "") {
		return fmt.Errorf("input needs a snapshot or abundance, taxonomy and metadata paths")
	}
	if c.Aggregate.Prune < 0 || c.Aggregate.Prune >= 1 {
		return fmt.Errorf("aggregate prune must be in [0, 1), got %g", c.Aggregate.Prune)
	}
	if c.Diversity.Depth < 1 || c.Diversity.Trials < 1 {
		return fmt.Errorf("diversity depth and trials must be positive, got %d and %d", c.Diversity.Depth, c.Diversity.Trials)
	}
	switch strings.ToLower(c.Ordination.Method) {
	case "pcoa", "nmds":
	default:
		return fmt.Errorf("invalid ordination method: %s (valid: pcoa, nmds)", c.Ordination.Method)
	}
	if _, ok := format.ParseCompression(c.Output.Compression); !ok {
		return fmt.Errorf("invalid output compression: %s", c.Output.Compression)
	}

	return nil
}

// Predicates returns the filter as table predicates that keep everything
// not excluded.
func (f FilterConfig) Predicates() []table.Predicate {
	preds := make([]table.Predicate, 0, len(f.ExcludeSamples)+len(f.ExcludeTaxa))
	for _, field := range slices.Sorted(maps.Keys(f.ExcludeSamples)) {
		preds = append(preds, table.Not(table.MetadataEquals(field, f.ExcludeSamples[field]...)))
	}
	for _, rank := range slices.Sorted(maps.Keys(f.ExcludeTaxa)) {
		preds = append(preds, table.Not(table.RankEquals(rank, f.ExcludeTaxa[rank]...)))
	}

	return preds
}

// ReportPath returns the path of a report named name inside the output
// directory, with the configured compression extension.
func (o OutputConfig) ReportPath(name string) string {
	path := filepath.Join(o.Dir, name)
	ct, _ := format.ParseCompression(o.Compression)
	if ext := ct.Extension(); ext != "" {
		path += ext
	}

	return path
}
