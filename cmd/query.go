package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/pipeline"
)

var (
	sliceJob   jobFlags
	sliceBox   boxFlags
	crossJob   jobFlags
	crossSec   sectionFlags
	crossStart string
	crossEnd   string
	profJob    jobFlags
	profSec    sectionFlags
	profPoint  string
)

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Query a material property over a horizontal grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		j := sliceJob.job(pipeline.JobSlice)
		if err := sliceBox.apply(&j); err != nil {
			return err
		}
		return runJob(cmd, j)
	},
}

var crossCmd = &cobra.Command{
	Use:   "cross",
	Short: "Query a vertical cross section between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		j := crossJob.job(pipeline.JobCross)
		var err error
		if j.Start, err = parseCoords(crossStart); err != nil {
			return err
		}
		if j.End, err = parseCoords(crossEnd); err != nil {
			return err
		}
		crossSec.apply(&j)
		return runJob(cmd, j)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Query material properties down a single column",
	RunE: func(cmd *cobra.Command, args []string) error {
		j := profJob.job(pipeline.JobProfile)
		var err error
		if j.Point, err = parseCoords(profPoint); err != nil {
			return err
		}
		profSec.apply(&j)
		return runJob(cmd, j)
	},
}

// scalarCommand builds a slice command for one of the scalar engine modes.
func scalarCommand(mode engine.Mode, short string) *cobra.Command {
	var (
		jf        jobFlags
		bf        boxFlags
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   mode.Name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			j := jf.job(mode.Name)
			if err := bf.apply(&j); err != nil {
				return err
			}
			j.VsThreshold = threshold
			return runJob(cmd, j)
		},
	}
	jf.register(cmd, false)
	bf.register(cmd)
	if mode.Name == engine.ModeBasinDepth.Name {
		cmd.Flags().Float64Var(&threshold, "threshold", 0, "vs threshold in m/s (defaults to engine.vs_threshold)")
	}
	return cmd
}

// runJob runs one job against a fresh environment and prints a summary.
func runJob(cmd *cobra.Command, j pipeline.Job) error {
	ctx := cmd.Context()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := env.Pipeline.Run(ctx, j)
	if err != nil {
		return fmt.Errorf("%s: %w", j.Kind, err)
	}

	zap.L().Info("query complete",
		zap.String("kind", j.Kind),
		zap.String("base", j.Base),
		zap.Bool("cached", out.Cached),
	)
	writeSummary(cmd.OutOrStdout(), j, out)
	return nil
}

// writeSummary prints grid dimensions, stats and colorbar bounds.
func writeSummary(w io.Writer, j pipeline.Job, out *pipeline.Output) {
	st := out.Grid.Stats()
	fmt.Fprintf(w, "%s %dx%d %s", j.Kind, out.Grid.NumX, out.Grid.NumY, out.Grid.Property)
	if out.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	if st.Count == 0 {
		fmt.Fprintln(w, "no data")
	} else {
		fmt.Fprintf(w, "min %.4f  max %.4f  mean %.4f  cells %d\n", st.Min, st.Max, st.Mean, st.Count)
	}
	if len(out.Colorbar.Bounds) > 0 {
		fmt.Fprintf(w, "colorbar %s: %s\n", out.Colorbar.Scale, formatFloats(out.Colorbar.Bounds))
	}
	if out.Artifact != nil {
		fmt.Fprintf(w, "artifact %s\n", truncateID(out.Artifact.ID))
	}
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}

func init() {
	sliceJob.register(sliceCmd, true)
	sliceBox.register(sliceCmd)

	crossJob.register(crossCmd, true)
	crossSec.register(crossCmd, true)
	crossCmd.Flags().StringVar(&crossStart, "start", "", "track start as lon,lat[,z]")
	crossCmd.Flags().StringVar(&crossEnd, "end", "", "track end as lon,lat[,z]")
	_ = crossCmd.MarkFlagRequired("start")
	_ = crossCmd.MarkFlagRequired("end")

	profJob.register(profileCmd, true)
	profSec.register(profileCmd, false)
	profileCmd.Flags().StringVar(&profPoint, "point", "", "column location as lon,lat[,z]")
	_ = profileCmd.MarkFlagRequired("point")

	rootCmd.AddCommand(sliceCmd, crossCmd, profileCmd,
		scalarCommand(engine.ModeVs30, "Query Vs30 over a horizontal grid"),
		scalarCommand(engine.ModeBasinDepth, "Query basin depth to a vs threshold"),
		scalarCommand(engine.ModeElevation, "Query surface elevation over a horizontal grid"),
		scalarCommand(engine.ModeVs30Etree, "Query etree Vs30 over a horizontal grid"),
	)
}
