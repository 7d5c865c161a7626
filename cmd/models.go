package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/model"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List velocity models installed for the engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := engine.NewClient(engineConfig(), nil)
		ids, err := client.Models()
		if err != nil {
			return fmt.Errorf("list models: %w", err)
		}

		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models installed.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDESCRIPTION")
		for _, id := range ids {
			fmt.Fprintf(tw, "%s\t%s\n", id, model.DescribeModel(id))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
