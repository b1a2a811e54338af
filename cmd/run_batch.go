package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/store"
	"github.com/KaramelBytes/shopseg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rbFlags  pipelineFlags
	rbOutDir string
	rbFormat string
	rbSave   bool
	rbQuiet  bool
)

var runBatchCmd = &cobra.Command{
	Use:   "run-batch <files...>",
	Short: "Run the segmentation pipeline over multiple files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		opts, err := rbFlags.options(cmd)
		if err != nil {
			return err
		}
		var h *store.History
		if rbSave {
			h, err = openHistory()
			if err != nil {
				return err
			}
			defer h.Close()
		}

		w := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !rbQuiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := pipeline.Run(cmd.Context(), path, opts)
			if err != nil {
				return err
			}
			out, err := rep.Render(rbFormat)
			if err != nil {
				return err
			}
			if h != nil {
				if err := h.Save(cmd.Context(), rep); err != nil {
					return err
				}
			}
			if rbOutDir == "" {
				if !rbQuiet {
					fmt.Fprintln(w, string(out))
				}
				continue
			}
			outFile := uniqueReportPath(rbOutDir, path, reportExt(rbFormat))
			if err := utils.SafeWriteFile(outFile, out); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !rbQuiet {
				fmt.Fprintf(w, "✓ Wrote report to %s\n", outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// uniqueReportPath returns <dir>/<base>.report<ext>, adding a __N suffix when
// a file of that name already exists.
func uniqueReportPath(dir, input, ext string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	outFile := filepath.Join(dir, base+".report"+ext)
	if !utils.FileExists(outFile) {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.report%s", base, idx, ext))
		if !utils.FileExists(cand) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(runBatchCmd)
	rbFlags.register(runBatchCmd)
	runBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "", "directory to write one report per input (default: print)")
	runBatchCmd.Flags().StringVar(&rbFormat, "format", "markdown", "report format: text | markdown | json | yaml")
	runBatchCmd.Flags().BoolVar(&rbSave, "save", false, "record each run in the history database")
	runBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
}
