package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/cvmgrid/internal/pipeline"
)

var (
	diffOut   string
	diffTitle string
)

var diffCmd = &cobra.Command{
	Use:   "diff <base-a> <base-b>",
	Short: "Subtract one cached grid from another",
	Long:  "Computes a - b cell by cell from two cached artifacts. Cells empty on either side stay empty.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.Difference(ctx, args[0], args[1], diffOut, diffTitle)
		if err != nil {
			return fmt.Errorf("diff: %w", err)
		}
		writeSummary(cmd.OutOrStdout(), pipeline.Job{Kind: "diff", Base: diffOut}, out)
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffOut, "out", "", "base name for the difference artifact (not written when empty)")
	diffCmd.Flags().StringVar(&diffTitle, "title", "", "plot title")
	rootCmd.AddCommand(diffCmd)
}
