package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/shopseg-cli/internal/features"
	"github.com/KaramelBytes/shopseg-cli/internal/insight"
	"github.com/KaramelBytes/shopseg-cli/internal/segment"
)

// Global configuration structure.
type Global struct {
	// Clustering
	Clusters  int     `mapstructure:"clusters" yaml:"clusters"`
	Seed      int64   `mapstructure:"seed" yaml:"seed"`
	MaxIter   int     `mapstructure:"max_iter" yaml:"max_iter"`
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
	NInit     int     `mapstructure:"n_init" yaml:"n_init"`

	// Columns
	NumericColumns     []string `mapstructure:"numeric_columns" yaml:"numeric_columns"`
	CategoricalColumns []string `mapstructure:"categorical_columns" yaml:"categorical_columns"`
	IncludeCategorical bool     `mapstructure:"include_categorical" yaml:"include_categorical"`
	AmountColumn       string   `mapstructure:"amount_column" yaml:"amount_column"`
	ClusterColumn      string   `mapstructure:"cluster_column" yaml:"cluster_column"`
	DiscountColumn     string   `mapstructure:"discount_column" yaml:"discount_column"`
	FrequencyColumn    string   `mapstructure:"frequency_column" yaml:"frequency_column"`

	// Runtime
	HistoryDB      string   `mapstructure:"history_db" yaml:"history_db"`
	ListenAddr     string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	LogLevel       string   `mapstructure:"log_level" yaml:"log_level"`
}

const dirName = ".shopseg"

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.shopseg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read into the environment first.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SHOPSEG")
	v.AutomaticEnv()

	// Defaults
	seg := segment.DefaultOptions()
	cols := insight.DefaultColumns()
	v.SetDefault("clusters", seg.K)
	v.SetDefault("seed", seg.Seed)
	v.SetDefault("max_iter", seg.MaxIter)
	v.SetDefault("tolerance", seg.Tolerance)
	v.SetDefault("n_init", seg.NInit)
	v.SetDefault("numeric_columns", features.DefaultNumeric)
	v.SetDefault("categorical_columns", features.DefaultCategorical)
	v.SetDefault("include_categorical", false)
	v.SetDefault("amount_column", cols.Amount)
	v.SetDefault("cluster_column", cols.Cluster)
	v.SetDefault("discount_column", cols.Discount)
	v.SetDefault("frequency_column", cols.Frequency)
	v.SetDefault("history_db", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("log_level", "warn")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryDB == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	return &c, nil
}

// Schema returns the normalizer column declarations.
func (c *Global) Schema() features.Schema {
	return features.Schema{
		Numeric:            append([]string(nil), c.NumericColumns...),
		Categorical:        append([]string(nil), c.CategoricalColumns...),
		IncludeCategorical: c.IncludeCategorical,
	}
}

// Segment returns the k-means options.
func (c *Global) Segment() segment.Options {
	return segment.Options{K: c.Clusters, Seed: c.Seed, MaxIter: c.MaxIter, Tolerance: c.Tolerance, NInit: c.NInit}
}

// Columns returns the insight column names; the truthy set is fixed.
func (c *Global) Columns() insight.Columns {
	cols := insight.DefaultColumns()
	if c.AmountColumn != "" {
		cols.Amount = c.AmountColumn
	}
	if c.ClusterColumn != "" {
		cols.Cluster = c.ClusterColumn
	}
	if c.DiscountColumn != "" {
		cols.Discount = c.DiscountColumn
	}
	if c.FrequencyColumn != "" {
		cols.Frequency = c.FrequencyColumn
	}
	return cols
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "clusters":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for clusters: %v", val)
		}
		c.Clusters = i
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "max_iter":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for max_iter: %v", val)
		}
		c.MaxIter = i
	case "tolerance":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for tolerance: %v", val)
		}
		c.Tolerance = f
	case "n_init":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for n_init: %v", val)
		}
		c.NInit = i
	case "numeric_columns":
		c.NumericColumns = splitList(val)
	case "categorical_columns":
		c.CategoricalColumns = splitList(val)
	case "include_categorical":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for include_categorical: %w", err)
		}
		c.IncludeCategorical = b
	case "amount_column":
		c.AmountColumn = val
	case "cluster_column":
		c.ClusterColumn = val
	case "discount_column":
		c.DiscountColumn = val
	case "frequency_column":
		c.FrequencyColumn = val
	case "history_db":
		c.HistoryDB = val
	case "listen_addr":
		c.ListenAddr = val
	case "allowed_origins":
		c.AllowedOrigins = splitList(val)
	case "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for max_upload_mb: %v", val)
		}
		c.MaxUploadMB = i
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
