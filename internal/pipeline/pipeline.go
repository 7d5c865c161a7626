// Package pipeline runs grid queries end to end: build the point grid,
// query the engine, reshape the reply, and persist it as a cache artifact
// that later runs reuse instead of querying again.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cvmgrid/internal/bounds"
	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/config"
	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/export"
	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
	"github.com/sells-group/cvmgrid/internal/store"
)

// Querier runs one engine query. *engine.Client implements it.
type Querier interface {
	Query(ctx context.Context, req engine.Request) ([]engine.Record, error)
}

// Pipeline wires the engine, the cache codec and the artifact catalog.
type Pipeline struct {
	cfg     *config.Config
	engine  Querier
	codec   *cache.Codec
	store   store.Store
	limiter *rate.Limiter
}

// New creates a Pipeline. st may be nil to skip cataloguing. Engine spawns
// are throttled when cfg.Engine.RatePerSec is positive.
func New(cfg *config.Config, q Querier, codec *cache.Codec, st store.Store) *Pipeline {
	p := &Pipeline{cfg: cfg, engine: q, codec: codec, store: st}
	if rps := cfg.Engine.RatePerSec; rps > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(rps), max(cfg.Engine.RateBurst, 1))
	}
	return p
}

// Output is the product of one pipeline run.
type Output struct {
	Plan      *grid.Plan
	Grid      *result.Grid
	Materials []model.MaterialProperty
	Meta      cache.Meta
	Colorbar  bounds.Colorbar
	Cached    bool
	Artifact  *store.Artifact
}

// job is one grid to produce.
type job struct {
	kind      string
	base      string
	model     string
	property  string
	title     string
	plan      *grid.Plan
	// threshold is the basin depth Vs threshold, zero for other modes.
	threshold float64
	query     func(ctx context.Context) (*result.Grid, error)
}

// wait blocks until the rate limiter allows one engine spawn.
func (p *Pipeline) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Pipeline) query(ctx context.Context, req engine.Request) ([]engine.Record, error) {
	if err := p.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pipeline: wait for engine slot")
	}
	return p.engine.Query(ctx, req)
}

// materials queries the material mode and reshapes the reply.
func (p *Pipeline) materials(ctx context.Context, modelName string, plan *grid.Plan, property string) (*result.Grid, error) {
	records, err := p.query(ctx, engine.Request{Mode: engine.ModeMaterial, Model: modelName, Points: plan.Points})
	if err != nil {
		return nil, err
	}
	mats := make([]model.MaterialProperty, len(records))
	for i, r := range records {
		mats[i] = r.Material
	}
	return result.FromMaterials(mats, plan.NumX, plan.NumY, property)
}

// cached returns the artifact at j.base when it can stand in for a query.
func (p *Pipeline) cached(j job) (*result.Grid, cache.Meta, bool, error) {
	meta, ok, err := p.reusable(j)
	if err != nil || !ok {
		return nil, meta, false, err
	}
	g, meta, err := p.codec.Import(j.base, j.plan.NumX, j.plan.NumY)
	if err != nil {
		return nil, meta, false, err
	}
	g.Property = j.property
	return g, meta, true, nil
}

// reusable loads the meta at j.base and reports whether it was written for
// the same property, model and sample points as j. Anything else is
// queried again and overwritten.
func (p *Pipeline) reusable(j job) (cache.Meta, bool, error) {
	if j.base == "" || p.cfg.Cache.Refresh || !p.codec.Exists(j.base) {
		return cache.Meta{}, false, nil
	}
	meta, err := p.codec.LoadMeta(j.base)
	if err != nil {
		return meta, false, err
	}
	if meta.Property != j.property {
		zap.L().Info("pipeline: cached property differs, querying",
			zap.String("base", j.base), zap.String("cached", meta.Property), zap.String("want", j.property))
		return meta, false, nil
	}
	return meta, sameSource(meta, j), nil
}

// sameSource reports whether meta was queried from j's model at j's
// sample points.
func sameSource(meta cache.Meta, j job) bool {
	log := zap.L().With(zap.String("base", j.base))
	switch {
	case meta.Model != j.model:
		log.Info("pipeline: cached model differs, querying",
			zap.String("cached", meta.Model), zap.String("want", j.model))
		return false
	case !meta.Geometry.Equal(geometryOf(j)):
		log.Info("pipeline: cached sample points differ, querying")
		return false
	}
	return true
}

// run produces one grid, from cache when possible, and persists it.
func (p *Pipeline) run(ctx context.Context, j job) (*Output, error) {
	log := zap.L().With(
		zap.String("kind", j.kind),
		zap.String("model", j.model),
		zap.String("property", j.property),
		zap.String("base", j.base),
	)

	g, meta, hit, err := p.cached(j)
	if err != nil {
		return nil, err
	}
	out := &Output{Plan: j.plan, Cached: hit}
	if hit {
		log.Info("pipeline: reusing cached artifact")
		out.Grid, out.Meta = g, meta
	} else {
		start := time.Now()
		g, err = j.query(ctx)
		if err != nil {
			return nil, err
		}
		out.Grid = g
		out.Materials = g.Materials()
		log.Info("pipeline: grid queried",
			zap.Int("num_x", g.NumX),
			zap.Int("num_y", g.NumY),
			zap.Duration("elapsed", time.Since(start)),
		)
		if j.base != "" {
			if out.Meta, err = p.persist(g, j); err != nil {
				return nil, err
			}
		}
	}

	if out.Colorbar, err = p.colorbar(out.Grid); err != nil {
		return nil, err
	}
	if j.base != "" && !hit {
		if out.Artifact, err = p.record(ctx, j, out.Meta); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// persist writes the exports for j and then the artifact itself. The
// artifact's meta is dropped first and written last, so a failure at any
// step leaves nothing that a later run would reuse.
func (p *Pipeline) persist(g *result.Grid, j job) (cache.Meta, error) {
	if err := p.codec.Invalidate(j.base); err != nil {
		return cache.Meta{}, err
	}
	if err := p.writeExports(j.base, j.plan, g); err != nil {
		return cache.Meta{}, err
	}
	return p.codec.Export(g, j.base, p.metaFor(j))
}

func geometryOf(j job) *cache.Geometry {
	if j.plan == nil {
		return nil
	}
	return &cache.Geometry{
		Kind:        string(j.plan.Kind),
		Vertical:    j.plan.Vertical.Label(),
		LonList:     j.plan.LonList,
		LatList:     j.plan.LatList,
		ZList:       j.plan.ZList,
		VsThreshold: j.threshold,
	}
}

func (p *Pipeline) metaFor(j job) cache.Meta {
	meta := cache.Meta{
		Title:    j.title,
		Units:    export.Units(j.property),
		Property: j.property,
		Model:    j.model,
	}
	if j.plan == nil {
		return meta
	}
	meta.LonList = j.plan.LonList
	meta.LatList = j.plan.LatList
	meta.Geometry = geometryOf(j)
	if j.plan.RowLevels() {
		meta.DepthList = j.plan.ZList
	}
	return meta
}

func (p *Pipeline) colorbar(g *result.Grid) (bounds.Colorbar, error) {
	scale, err := bounds.ParseScale(p.cfg.Colorbar.Scale)
	if err != nil {
		return bounds.Colorbar{}, err
	}
	return bounds.ForGrid(g, p.cfg.Colorbar.Steps, p.cfg.Colorbar.SubSteps, scale, p.cfg.Colorbar.Gate)
}

// record indexes a freshly written artifact. Catalog failures are logged
// and otherwise ignored.
func (p *Pipeline) record(ctx context.Context, j job, meta cache.Meta) (*store.Artifact, error) {
	if p.store == nil {
		return nil, nil
	}
	a, err := p.store.RecordArtifact(ctx, store.Artifact{
		Base:     j.base,
		Kind:     j.kind,
		Model:    j.model,
		Property: j.property,
		NumX:     meta.NumX,
		NumY:     meta.NumY,
		Min:      meta.Min,
		Max:      meta.Max,
		Mean:     meta.Mean,
	})
	if err != nil {
		zap.L().Warn("pipeline: catalog artifact", zap.String("base", j.base), zap.Error(err))
		return nil, nil
	}
	return a, nil
}

// writeExports writes the optional GIS and spreadsheet files for base.
func (p *Pipeline) writeExports(base string, plan *grid.Plan, g *result.Grid) error {
	if plan == nil {
		return nil
	}
	paths := export.PathsFor(p.codec.Paths(base).Stem)
	if p.cfg.Export.GeoJSON {
		if err := export.WriteGeoJSON(paths.GeoJSON, plan, g); err != nil {
			return err
		}
	}
	if p.cfg.Export.Shapefile {
		if err := export.WriteShapefile(paths.Shapefile, plan, g); err != nil {
			return err
		}
	}
	if p.cfg.Export.XLSX {
		if err := export.WriteXLSX(paths.XLSX, plan, g); err != nil {
			return err
		}
	}
	return nil
}
