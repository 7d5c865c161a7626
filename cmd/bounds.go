package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/cvmgrid/internal/bounds"
)

var (
	boundsMin      float64
	boundsMax      float64
	boundsSteps    int
	boundsSubSteps int
	boundsMean     float64
	boundsAll      bool
	boundsTicks    int
)

var boundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Compute colorbar break points and ticks for a value range",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := bounds.Options{
			Min:      boundsMin,
			Max:      boundsMax,
			Steps:    boundsSteps,
			SubSteps: boundsSubSteps,
			All:      boundsAll,
		}
		if cmd.Flags().Changed("mean") {
			opts.Mean = &boundsMean
		}

		b, err := bounds.Bounds(opts)
		if err != nil {
			return err
		}
		ticks, err := bounds.Ticks(boundsMin, boundsMax, boundsTicks)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "bounds: %s\n", formatFloats(b))
		fmt.Fprintf(w, "ticks:  %s\n", formatFloats(ticks))
		return nil
	},
}

func init() {
	def := bounds.DefaultOptions()
	boundsCmd.Flags().Float64Var(&boundsMin, "min", def.Min, "lowest value")
	boundsCmd.Flags().Float64Var(&boundsMax, "max", def.Max, "highest value")
	boundsCmd.Flags().IntVar(&boundsSteps, "steps", 0, "base interval count (0 prints the default table)")
	boundsCmd.Flags().IntVar(&boundsSubSteps, "substeps", def.SubSteps, "subdivisions per refined interval")
	boundsCmd.Flags().Float64Var(&boundsMean, "mean", 0, "refine only the interval holding this value (with --all=false)")
	boundsCmd.Flags().BoolVar(&boundsAll, "all", def.All, "refine every interval")
	boundsCmd.Flags().IntVar(&boundsTicks, "ticks", 0, "tick interval count (0 prints the default ticks)")
	rootCmd.AddCommand(boundsCmd)
}
