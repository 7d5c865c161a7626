package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
	"github.com/sells-group/cvmgrid/internal/store"
)

// SliceRequest is a horizontal slice of a material property.
type SliceRequest struct {
	Model       string
	UpperLeft   model.Point
	BottomRight model.Point
	Spacing     grid.Spacing
	Property    string
	// Base names the cache artifact; empty disables caching.
	Base  string
	Title string
}

// HorizontalSlice queries a material property over a lat/lon box at a
// single depth or elevation.
func (p *Pipeline) HorizontalSlice(ctx context.Context, req SliceRequest) (*Output, error) {
	property, err := checkProperty(req.Property)
	if err != nil {
		return nil, err
	}
	plan, err := grid.Box(req.UpperLeft, req.BottomRight, req.Spacing, p.boxOptions()...)
	if err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s Horizontal Slice at %.0fm", model.DescribeModel(req.Model), req.UpperLeft.Z())
	}
	return p.run(ctx, job{
		kind:     store.KindSlice,
		base:     req.Base,
		model:    req.Model,
		property: property,
		title:    title,
		plan:     plan,
		query: func(ctx context.Context) (*result.Grid, error) {
			return p.materials(ctx, req.Model, plan, property)
		},
	})
}

// CrossRequest is a vertical cross section along a straight line.
type CrossRequest struct {
	Model    string
	Start    model.Point
	End      model.Point
	Section  grid.Section
	Property string
	Base     string
	Title    string
}

// CrossSection queries a material property along a line at every vertical
// level. Grid rows are levels and columns are positions along the line.
func (p *Pipeline) CrossSection(ctx context.Context, req CrossRequest) (*Output, error) {
	property, err := checkProperty(req.Property)
	if err != nil {
		return nil, err
	}
	plan, err := grid.CrossSection(req.Start, req.End, req.Section)
	if err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s Cross Section from %s to %s", model.DescribeModel(req.Model), req.Start, req.End)
	}
	return p.run(ctx, job{
		kind:     store.KindCross,
		base:     req.Base,
		model:    req.Model,
		property: property,
		title:    title,
		plan:     plan,
		query: func(ctx context.Context) (*result.Grid, error) {
			return p.materials(ctx, req.Model, plan, property)
		},
	})
}

// ProfileRequest is a vertical profile at one location.
type ProfileRequest struct {
	Model    string
	Point    model.Point
	Section  grid.Section
	Property string
	Base     string
	Title    string
}

// DepthProfile queries every material property down a single column. The
// full records are cached in <base>_matprops.json so any property can be
// reselected later without querying, as long as the model and levels match.
func (p *Pipeline) DepthProfile(ctx context.Context, req ProfileRequest) (*Output, error) {
	property, err := checkProperty(req.Property)
	if err != nil {
		return nil, err
	}
	plan, err := grid.Profile(req.Point, req.Section)
	if err != nil {
		return nil, err
	}
	j := job{
		kind:     store.KindProfile,
		base:     req.Base,
		model:    req.Model,
		property: property,
		title:    req.Title,
		plan:     plan,
	}
	log := zap.L().With(zap.String("base", req.Base), zap.String("model", req.Model))

	mats, hit, err := p.cachedProfile(j)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Info("pipeline: reusing cached profile")
	} else {
		records, err := p.query(ctx, engine.Request{Mode: engine.ModeMaterial, Model: req.Model, Points: plan.Points})
		if err != nil {
			return nil, err
		}
		mats = make([]model.MaterialProperty, len(records))
		for i, r := range records {
			mats[i] = r.Material
		}
		log.Info("pipeline: profile queried", zap.Int("levels", len(mats)))
	}

	g, err := result.FromMaterials(mats, plan.NumX, plan.NumY, property)
	if err != nil {
		return nil, err
	}
	out := &Output{Plan: plan, Grid: g, Materials: mats, Cached: hit}
	if req.Base != "" && !hit {
		if out.Meta, err = p.persistProfile(g, mats, j); err != nil {
			return nil, err
		}
	} else {
		st := g.Stats()
		out.Meta = p.metaFor(j)
		out.Meta.NumX, out.Meta.NumY, out.Meta.Datapoints = g.NumX, g.NumY, g.Len()
		out.Meta.Min = optionalStat(st.Min, st.Count)
		out.Meta.Max = optionalStat(st.Max, st.Count)
		out.Meta.Mean = optionalStat(st.Mean, st.Count)
	}
	if out.Colorbar, err = p.colorbar(g); err != nil {
		return nil, err
	}
	if req.Base != "" && !hit {
		if out.Artifact, err = p.record(ctx, j, out.Meta); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// cachedProfile returns the records cached at j.base when they were queried
// from j's model at j's levels. A profile cache without its meta sidecar
// cannot be checked and is queried again.
func (p *Pipeline) cachedProfile(j job) ([]model.MaterialProperty, bool, error) {
	if j.base == "" || p.cfg.Cache.Refresh || !p.codec.HasMatprops(j.base) {
		return nil, false, nil
	}
	if !p.codec.Exists(j.base) {
		zap.L().Info("pipeline: cached profile has no meta, querying", zap.String("base", j.base))
		return nil, false, nil
	}
	meta, err := p.codec.LoadMeta(j.base)
	if err != nil {
		return nil, false, err
	}
	if !sameSource(meta, j) {
		return nil, false, nil
	}
	mats, err := p.codec.ImportMatprops(j.base)
	if err != nil {
		return nil, false, err
	}
	if len(mats) != j.plan.Len() {
		return nil, false, eris.Wrapf(model.ErrCacheFormat,
			"pipeline: %s holds %d records for a %d level profile", j.base, len(mats), j.plan.Len())
	}
	return mats, true, nil
}

// persistProfile writes the material records ahead of the selected
// property's grid, whose meta commits the profile.
func (p *Pipeline) persistProfile(g *result.Grid, mats []model.MaterialProperty, j job) (cache.Meta, error) {
	if err := p.codec.Invalidate(j.base); err != nil {
		return cache.Meta{}, err
	}
	if err := p.codec.ExportMatprops(j.base, mats); err != nil {
		return cache.Meta{}, err
	}
	return p.persist(g, j)
}

// ScalarRequest is a horizontal slice of a per-location scalar such as
// Vs30 or basin depth.
type ScalarRequest struct {
	Mode        engine.Mode
	Model       string
	UpperLeft   model.Point
	BottomRight model.Point
	Spacing     grid.Spacing
	// VsThreshold applies to basin depth, in m/s. Zero uses the configured default.
	VsThreshold float64
	Base        string
	Title       string
}

// ScalarProperty names the grid property produced by a scalar mode.
func ScalarProperty(mode engine.Mode) string {
	switch mode.Name {
	case engine.ModeBasinDepth.Name:
		return "basin_depth"
	case engine.ModeVs30.Name, engine.ModeVs30Etree.Name:
		return "vs30"
	default:
		return mode.Name
	}
}

// ScalarSlice queries a scalar mode over a lat/lon box.
func (p *Pipeline) ScalarSlice(ctx context.Context, req ScalarRequest) (*Output, error) {
	if req.Mode.Output != engine.OutputScalar {
		return nil, eris.Wrapf(model.ErrConfiguration, "pipeline: %q is not a scalar query mode", req.Mode.Name)
	}
	plan, err := grid.Box(req.UpperLeft, req.BottomRight, req.Spacing, p.boxOptions()...)
	if err != nil {
		return nil, err
	}
	property := ScalarProperty(req.Mode)
	var threshold float64
	if req.Mode.Threshold {
		threshold = req.VsThreshold
		if threshold == 0 {
			threshold = p.cfg.Engine.VsThreshold
		}
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s %s Map", model.DescribeModel(req.Model), property)
	}
	return p.run(ctx, job{
		kind:      store.KindSlice,
		base:      req.Base,
		model:     req.Model,
		property:  property,
		title:     title,
		plan:      plan,
		threshold: threshold,
		query: func(ctx context.Context) (*result.Grid, error) {
			records, err := p.query(ctx, engine.Request{
				Mode:        req.Mode,
				Model:       req.Model,
				Points:      plan.Points,
				VsThreshold: threshold,
			})
			if err != nil {
				return nil, err
			}
			values := make([]model.Optional, len(records))
			for i, r := range records {
				values[i] = r.Value
			}
			return result.FromOptional(values, plan.NumX, plan.NumY, property)
		},
	})
}

// Difference subtracts the cached grid b from the cached grid a and
// writes the result to out. Both artifacts must already exist.
func (p *Pipeline) Difference(ctx context.Context, a, b, out, title string) (*Output, error) {
	ga, ma, err := p.codec.Open(a)
	if err != nil {
		return nil, err
	}
	gb, _, err := p.codec.Open(b)
	if err != nil {
		return nil, err
	}
	diff, err := result.Difference(ga, gb)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = fmt.Sprintf("Difference %s - %s", a, b)
	}
	meta := cache.Meta{
		LonList:   ma.LonList,
		LatList:   ma.LatList,
		DepthList: ma.DepthList,
		Title:     title,
		Units:     ma.Units,
		Property:  ma.Property,
		Model:     ma.Model,
	}
	res := &Output{Grid: diff}
	if out != "" {
		if res.Meta, err = p.codec.Export(diff, out, meta); err != nil {
			return nil, err
		}
		j := job{kind: store.KindDiff, base: out, model: ma.Model, property: ma.Property}
		if res.Artifact, err = p.record(ctx, j, res.Meta); err != nil {
			return nil, err
		}
	} else {
		res.Meta = meta
	}
	if res.Colorbar, err = p.colorbar(diff); err != nil {
		return nil, err
	}
	return res, nil
}

// Load opens a cached artifact and lays out its colorbar without querying.
func (p *Pipeline) Load(base string) (*Output, error) {
	g, meta, err := p.codec.Open(base)
	if err != nil {
		return nil, err
	}
	if meta.Property != "" {
		g.Property = meta.Property
	}
	out := &Output{Grid: g, Meta: meta, Cached: true}
	if out.Colorbar, err = p.colorbar(g); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) boxOptions() []grid.BoxOption {
	if p.cfg.Grid.NorthFirst {
		return []grid.BoxOption{grid.NorthFirst()}
	}
	return nil
}

func checkProperty(property string) (string, error) {
	if property == "" {
		return model.PropVs, nil
	}
	property = strings.ToLower(property)
	if err := model.CheckProperty(property); err != nil {
		return "", err
	}
	return property, nil
}

func optionalStat(v float64, count int) model.Optional {
	if count == 0 {
		return model.None()
	}
	return model.Some(v)
}
