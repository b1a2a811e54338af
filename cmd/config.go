package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/shopseg-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set shopseg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(w, "No config loaded")
			return nil
		}
		fmt.Fprintf(w, "clusters: %d\n", cfg.Clusters)
		fmt.Fprintf(w, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(w, "max_iter: %d\n", cfg.MaxIter)
		fmt.Fprintf(w, "tolerance: %g\n", cfg.Tolerance)
		fmt.Fprintf(w, "n_init: %d\n", cfg.NInit)
		fmt.Fprintf(w, "numeric_columns: %s\n", strings.Join(cfg.NumericColumns, ", "))
		fmt.Fprintf(w, "categorical_columns: %s\n", strings.Join(cfg.CategoricalColumns, ", "))
		fmt.Fprintf(w, "include_categorical: %t\n", cfg.IncludeCategorical)
		fmt.Fprintf(w, "amount_column: %s\n", cfg.AmountColumn)
		fmt.Fprintf(w, "cluster_column: %s\n", cfg.ClusterColumn)
		fmt.Fprintf(w, "discount_column: %s\n", cfg.DiscountColumn)
		fmt.Fprintf(w, "frequency_column: %s\n", cfg.FrequencyColumn)
		fmt.Fprintf(w, "history_db: %s\n", cfg.HistoryDB)
		fmt.Fprintf(w, "listen_addr: %s\n", cfg.ListenAddr)
		if len(cfg.AllowedOrigins) > 0 {
			fmt.Fprintf(w, "allowed_origins: %s\n", strings.Join(cfg.AllowedOrigins, ", "))
		}
		fmt.Fprintf(w, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
