package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/shopseg-cli/internal/config"
	"github.com/KaramelBytes/shopseg-cli/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagHistoryDB string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

// stage messages are Info; keep them out of normal CLI output
const defaultLogLevel = "warn"

var rootCmd = &cobra.Command{
	Use:   "shopseg",
	Short: "shopseg: segment retail shoppers and summarize the segments",
	Long: `shopseg loads a CSV/TSV/XLSX of shopper records, encodes and standardizes
the features, clusters the shoppers with seeded k-means and prints a short set
of insights about the resulting segments.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := defaultLogLevel
		if cfg != nil && cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
		l, err := logging.New(level, debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.shopseg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagHistoryDB, "history-db", "", "SQLite run history path (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("history-db") && flagHistoryDB != "" {
		cfg.HistoryDB = flagHistoryDB
	}
}

// currentConfig returns the loaded configuration, loading it on demand.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
