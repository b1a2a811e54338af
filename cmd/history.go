package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	histLimit      int
	histShowFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory()
		if err != nil {
			return err
		}
		defer h.Close()
		runs, err := h.List(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(w, "- %s: %s (%d rows, k=%d, inertia %.4g) %s\n",
				r.ID, r.Source, r.Rows, r.K, r.Inertia, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory()
		if err != nil {
			return err
		}
		defer h.Close()
		rep, err := h.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := rep.Render(histShowFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum runs to list (0 = all)")
	historyShowCmd.Flags().StringVar(&histShowFormat, "format", "markdown", "report format: text | markdown | json | yaml")
}
