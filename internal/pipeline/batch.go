package pipeline

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/model"
)

// Job kinds accepted in a batch file. Scalar modes use their engine mode
// name (vs30, basin, elevation, vs30-etree).
const (
	JobSlice   = "slice"
	JobCross   = "cross"
	JobProfile = "profile"
)

// Batch is a set of independent grid jobs.
type Batch struct {
	Defaults JobDefaults `yaml:"defaults"`
	Jobs     []Job       `yaml:"jobs"`
}

// JobDefaults fill fields a job leaves empty.
type JobDefaults struct {
	Model    string `yaml:"model"`
	Property string `yaml:"property"`
	Vertical string `yaml:"vertical"`
}

// Job describes one grid. Coordinates are [lon, lat, z] triples; z is a
// depth or an elevation depending on Vertical.
type Job struct {
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Model       string     `yaml:"model"`
	Property    string     `yaml:"property"`
	Base        string     `yaml:"base"`
	Title       string     `yaml:"title,omitempty"`
	Vertical    string     `yaml:"vertical"`
	UpperLeft   []float64  `yaml:"upper_left,omitempty"`
	BottomRight []float64  `yaml:"bottom_right,omitempty"`
	Spacing     float64    `yaml:"spacing,omitempty"`
	NumX        int        `yaml:"num_x,omitempty"`
	NumY        int        `yaml:"num_y,omitempty"`
	Start       []float64  `yaml:"start,omitempty"`
	End         []float64  `yaml:"end,omitempty"`
	Point       []float64  `yaml:"point,omitempty"`
	Section     SectionDef `yaml:"section,omitempty"`
	VsThreshold float64    `yaml:"vs_threshold,omitempty"`
}

// SectionDef is the vertical extent of a cross section or profile.
type SectionDef struct {
	HorizontalSpacing float64 `yaml:"horizontal_spacing"`
	End               float64 `yaml:"end"`
	VerticalSpacing   float64 `yaml:"vertical_spacing"`
}

// LoadBatch reads a batch file and applies its defaults.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read batch %s", path)
	}
	return ParseBatch(data)
}

// ParseBatch decodes a batch document. Every job needs a distinct base so
// concurrent jobs never write the same artifact.
func ParseBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "pipeline: parse batch: %v", err)
	}
	seen := make(map[string]string, len(b.Jobs))
	for i := range b.Jobs {
		j := &b.Jobs[i]
		if j.Name == "" {
			j.Name = j.Base
		}
		if j.Model == "" {
			j.Model = b.Defaults.Model
		}
		if j.Property == "" {
			j.Property = b.Defaults.Property
		}
		if j.Vertical == "" {
			j.Vertical = b.Defaults.Vertical
		}
		if j.Base == "" {
			return nil, eris.Wrapf(model.ErrConfiguration, "pipeline: batch job %d has no base", i)
		}
		if other, ok := seen[j.Base]; ok {
			return nil, eris.Wrapf(model.ErrConfiguration,
				"pipeline: batch jobs %q and %q share base %s", other, j.Name, j.Base)
		}
		seen[j.Base] = j.Name
	}
	return &b, nil
}

func (j Job) vertical() (model.Vertical, error) {
	switch strings.ToLower(j.Vertical) {
	case "", "depth", "gd":
		return model.Depth, nil
	case "elevation", "ge":
		return model.Elevation, nil
	}
	return 0, eris.Wrapf(model.ErrConfiguration, "pipeline: job %s: unknown vertical %q", j.Name, j.Vertical)
}

func (j Job) point(field string, c []float64) (model.Point, error) {
	v, err := j.vertical()
	if err != nil {
		return model.Point{}, err
	}
	switch len(c) {
	case 2:
		return model.NewPoint(c[0], c[1], 0, v)
	case 3:
		return model.NewPoint(c[0], c[1], c[2], v)
	}
	return model.Point{}, eris.Wrapf(model.ErrConfiguration,
		"pipeline: job %s: %s needs [lon, lat] or [lon, lat, z], got %v", j.Name, field, c)
}

func (j Job) section() grid.Section {
	return grid.Section{
		HorizontalSpacing: j.Section.HorizontalSpacing,
		End:               j.Section.End,
		VerticalSpacing:   j.Section.VerticalSpacing,
	}
}

func (j Job) box() (model.Point, model.Point, grid.Spacing, error) {
	ul, err := j.point("upper_left", j.UpperLeft)
	if err != nil {
		return ul, ul, grid.Spacing{}, err
	}
	br, err := j.point("bottom_right", j.BottomRight)
	if err != nil {
		return ul, br, grid.Spacing{}, err
	}
	return ul, br, grid.Spacing{Degrees: j.Spacing, NumX: j.NumX, NumY: j.NumY}, nil
}

// Run executes one job.
func (p *Pipeline) Run(ctx context.Context, j Job) (*Output, error) {
	switch strings.ToLower(j.Kind) {
	case JobSlice, "":
		ul, br, sp, err := j.box()
		if err != nil {
			return nil, err
		}
		return p.HorizontalSlice(ctx, SliceRequest{
			Model: j.Model, UpperLeft: ul, BottomRight: br, Spacing: sp,
			Property: j.Property, Base: j.Base, Title: j.Title,
		})
	case JobCross:
		start, err := j.point("start", j.Start)
		if err != nil {
			return nil, err
		}
		end, err := j.point("end", j.End)
		if err != nil {
			return nil, err
		}
		return p.CrossSection(ctx, CrossRequest{
			Model: j.Model, Start: start, End: end, Section: j.section(),
			Property: j.Property, Base: j.Base, Title: j.Title,
		})
	case JobProfile:
		pt, err := j.point("point", j.Point)
		if err != nil {
			return nil, err
		}
		return p.DepthProfile(ctx, ProfileRequest{
			Model: j.Model, Point: pt, Section: j.section(),
			Property: j.Property, Base: j.Base, Title: j.Title,
		})
	}

	mode, ok := engine.Modes[strings.ToLower(j.Kind)]
	if !ok || mode.Output != engine.OutputScalar {
		return nil, eris.Wrapf(model.ErrConfiguration, "pipeline: job %s: unknown kind %q", j.Name, j.Kind)
	}
	ul, br, sp, err := j.box()
	if err != nil {
		return nil, err
	}
	return p.ScalarSlice(ctx, ScalarRequest{
		Mode: mode, Model: j.Model, UpperLeft: ul, BottomRight: br, Spacing: sp,
		VsThreshold: j.VsThreshold, Base: j.Base, Title: j.Title,
	})
}

// JobResult pairs a job with its outcome.
type JobResult struct {
	Job    Job
	Output *Output
	Err    error
}

// RunBatch runs jobs concurrently, at most concurrency at a time. A failed
// job is reported in its JobResult and does not stop the others. Results
// are in job order.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job, concurrency int) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	if len(jobs) == 0 {
		zap.L().Info("pipeline: no batch jobs")
		return results, nil
	}
	zap.L().Info("pipeline: processing batch",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var succeeded, failed atomic.Int64
	for i, j := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("job", j.Name))
			out, err := p.Run(gctx, j)
			results[i] = JobResult{Job: j, Output: out, Err: err}
			if err != nil {
				failed.Add(1)
				log.Error("pipeline: job failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			log.Info("pipeline: job complete", zap.Bool("cached", out.Cached))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "pipeline: batch processing")
	}

	zap.L().Info("pipeline: batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}
