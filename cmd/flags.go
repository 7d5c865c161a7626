package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/pipeline"
)

// parseCoords parses "lon,lat" or "lon,lat,z".
func parseCoords(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, eris.Wrapf(model.ErrConfiguration, "coordinate %q must be lon,lat or lon,lat,z", s)
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "coordinate %q: %v", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// jobFlags holds the flags shared by every query command.
type jobFlags struct {
	model     string
	property  string
	base      string
	title     string
	elevation bool
}

func (f *jobFlags) register(cmd *cobra.Command, withProperty bool) {
	cmd.Flags().StringVar(&f.model, "model", "", "velocity model id (defaults to engine.model)")
	if withProperty {
		cmd.Flags().StringVar(&f.property, "property", "vs", "property to plot (vp, vs, density, poisson, vpvs)")
	}
	cmd.Flags().StringVar(&f.base, "base", "", "cache base name; results are reused when the artifact exists")
	cmd.Flags().StringVar(&f.title, "title", "", "plot title")
	cmd.Flags().BoolVar(&f.elevation, "elevation", false, "treat z as elevation instead of depth")
}

// job builds the common part of a pipeline job.
func (f *jobFlags) job(kind string) pipeline.Job {
	j := pipeline.Job{
		Name:     kind,
		Kind:     kind,
		Model:    f.model,
		Property: f.property,
		Base:     f.base,
		Title:    f.title,
		Vertical: "depth",
	}
	if j.Model == "" {
		j.Model = cfg.Engine.Model
	}
	if f.elevation {
		j.Vertical = "elevation"
	}
	return j
}

// boxFlags holds the flags of box-shaped queries.
type boxFlags struct {
	upperLeft   string
	bottomRight string
	spacing     float64
	numX        int
	numY        int
}

func (f *boxFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.upperLeft, "upper-left", "", "upper-left corner as lon,lat[,z]")
	cmd.Flags().StringVar(&f.bottomRight, "bottom-right", "", "bottom-right corner as lon,lat[,z]")
	cmd.Flags().Float64Var(&f.spacing, "spacing", 0, "grid spacing in degrees")
	cmd.Flags().IntVar(&f.numX, "num-x", 0, "explicit column count (with --num-y, instead of --spacing)")
	cmd.Flags().IntVar(&f.numY, "num-y", 0, "explicit row count")
	_ = cmd.MarkFlagRequired("upper-left")
	_ = cmd.MarkFlagRequired("bottom-right")
}

func (f *boxFlags) apply(j *pipeline.Job) error {
	var err error
	if j.UpperLeft, err = parseCoords(f.upperLeft); err != nil {
		return err
	}
	if j.BottomRight, err = parseCoords(f.bottomRight); err != nil {
		return err
	}
	j.Spacing, j.NumX, j.NumY = f.spacing, f.numX, f.numY
	return nil
}

// sectionFlags holds the vertical extent of cross sections and profiles.
type sectionFlags struct {
	horizontal float64
	end        float64
	vertical   float64
}

func (f *sectionFlags) register(cmd *cobra.Command, withHorizontal bool) {
	if withHorizontal {
		cmd.Flags().Float64Var(&f.horizontal, "horizontal-spacing", 0, "spacing along the track in meters")
	}
	cmd.Flags().Float64Var(&f.end, "end-depth", 0, "last depth or elevation in meters")
	cmd.Flags().Float64Var(&f.vertical, "vertical-spacing", 0, "level spacing in meters")
}

func (f *sectionFlags) apply(j *pipeline.Job) {
	j.Section = pipeline.SectionDef{
		HorizontalSpacing: f.horizontal,
		End:               f.end,
		VerticalSpacing:   f.vertical,
	}
}
