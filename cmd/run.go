package cmd

import (
	"fmt"

	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runFlags     pipelineFlags
	runProcessed string
	runLabeled   string
	runFormat    string
	runOutput    string
	runSave      bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Preprocess, cluster and summarize a shopper dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runFlags.options(cmd)
		if err != nil {
			return err
		}
		opts.ProcessedPath = runProcessed
		opts.LabeledPath = runLabeled

		rep, err := pipeline.Run(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		out, err := rep.Render(runFormat)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if runOutput != "" {
			if err := utils.SafeWriteFile(runOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(w, "✓ Wrote report to %s\n", runOutput)
		} else {
			fmt.Fprint(w, string(out))
		}
		if runProcessed != "" {
			fmt.Fprintf(w, "✓ Wrote processed table to %s\n", runProcessed)
		}
		if runLabeled != "" {
			fmt.Fprintf(w, "✓ Wrote labeled table to %s\n", runLabeled)
		}
		if runSave {
			h, err := openHistory()
			if err != nil {
				return err
			}
			defer h.Close()
			if err := h.Save(cmd.Context(), rep); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Saved run %s\n", rep.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&runProcessed, "processed", "", "optional path to write the normalized table (CSV)")
	runCmd.Flags().StringVar(&runLabeled, "labeled", "", "optional path to write the input table with cluster labels (CSV)")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "report format: text | markdown | json | yaml")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "optional path to write the report")
	runCmd.Flags().BoolVar(&runSave, "save", false, "record the run in the history database")
}
