package cmd

import (
	"fmt"

	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var ppFlags pipelineFlags

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <input> <output>",
	Short: "Encode and standardize a shopper dataset and write it as CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := ppFlags.options(cmd)
		if err != nil {
			return err
		}
		p, err := pipeline.Preprocess(args[0], args[1], opts)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, warn := range p.Features.Warnings {
			fmt.Fprintf(w, "⚠ %s\n", warn)
		}
		fmt.Fprintf(w, "✓ Wrote processed table to %s (%d rows, %d features)\n",
			args[1], p.Raw.Len(), len(p.Features.FeatureNames))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
	ppFlags.register(preprocessCmd)
}
