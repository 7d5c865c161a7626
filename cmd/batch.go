package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/pipeline"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a file of grid jobs concurrently",
	Long:  "Loads jobs from a YAML file and runs them with bounded concurrency. A failed job is reported and does not stop the rest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, err := pipeline.LoadBatch(batchFile)
		if err != nil {
			return err
		}
		for i := range b.Jobs {
			if b.Jobs[i].Model == "" {
				b.Jobs[i].Model = cfg.Engine.Model
			}
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentPlans
		}

		results, err := env.Pipeline.RunBatch(ctx, b.Jobs, concurrency)
		if err != nil {
			return err
		}
		failed := formatBatchResults(cmd.OutOrStdout(), results)

		zap.L().Info("batch finished",
			zap.String("file", batchFile),
			zap.Int("jobs", len(results)),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return fmt.Errorf("batch: %d of %d jobs failed", failed, len(results))
		}
		return nil
	},
}

// formatBatchResults writes one line per job and returns the failure count.
func formatBatchResults(w io.Writer, results []pipeline.JobResult) int {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tKIND\tBASE\tSTATUS\tDETAIL")

	failed := 0
	for _, r := range results {
		status, detail := "ok", ""
		switch {
		case r.Err != nil:
			failed++
			status, detail = "failed", r.Err.Error()
		case r.Output.Cached:
			status = "cached"
		}
		if r.Err == nil {
			detail = fmt.Sprintf("%dx%d", r.Output.Grid.NumX, r.Output.Grid.NumY)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Job.Name, r.Job.Kind, r.Job.Base, status, detail)
	}
	tw.Flush() //nolint:errcheck
	return failed
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "YAML batch file")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "jobs to run at once (defaults to batch.max_concurrent_plans)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
