package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Config locates the engine installation. Empty fields fall back to the
// standard layout under InstallDir.
type Config struct {
	InstallDir string
	BinDir     string
	ConfigFile string
	ModelDir   string
	// ZRange is passed to coordinate-mode queries as -z when set, e.g. "0,350".
	ZRange  string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	root := c.InstallDir
	if root == "" {
		root = ".."
	}
	if c.BinDir == "" {
		c.BinDir = filepath.Join(root, "bin")
	}
	if c.ConfigFile == "" {
		c.ConfigFile = filepath.Join(root, "conf", "ucvm.conf")
	}
	if c.ModelDir == "" {
		c.ModelDir = filepath.Join(root, "model")
	}
	return c
}

// Request is one engine query.
type Request struct {
	Mode   Mode
	Model  string
	Points []model.Point
	// VsThreshold is required by ModeBasinDepth, in m/s.
	VsThreshold float64
}

// Client sends point lists to the engine and parses its replies.
type Client struct {
	cfg     Config
	backend Backend
}

// NewClient creates a Client. A nil backend runs the real engine.
func NewClient(cfg Config, backend Backend) *Client {
	cfg = cfg.withDefaults()
	if backend == nil {
		backend = NewExecBackend(cfg.Timeout)
	}
	return &Client{cfg: cfg, backend: backend}
}

// Config returns the resolved engine configuration.
func (c *Client) Config() Config { return c.cfg }

// Invocation builds the process launch for a request.
func (c *Client) Invocation(req Request) Invocation {
	args := []string{"-f", c.cfg.ConfigFile, "-m", req.Model}
	if req.Mode.CoordMode {
		vertical := model.Depth
		if len(req.Points) > 0 {
			vertical = req.Points[0].Vertical()
		}
		args = append(args, "-c", vertical.String())
		if c.cfg.ZRange != "" {
			args = append(args, "-z", c.cfg.ZRange)
		}
	}
	if req.Mode.Threshold {
		args = append(args, "-v", fmt.Sprintf("%.0f", req.VsThreshold))
	}
	return Invocation{Program: filepath.Join(c.cfg.BinDir, req.Mode.Program), Args: args}
}

func (c *Client) validate(req Request) error {
	if len(req.Points) == 0 {
		return eris.Wrap(model.ErrConfiguration, "engine: no points to query")
	}
	if req.Model == "" {
		return eris.Wrap(model.ErrConfiguration, "engine: model is required")
	}
	if req.Mode.Program == "" {
		return eris.Wrap(model.ErrConfiguration, "engine: query mode is required")
	}
	if req.Mode.Threshold && req.VsThreshold <= 0 {
		return eris.Wrapf(model.ErrConfiguration, "engine: vs threshold must be positive, got %v", req.VsThreshold)
	}
	v := req.Points[0].Vertical()
	for i, p := range req.Points {
		if p.Vertical() != v {
			return eris.Wrapf(model.ErrConfiguration, "engine: point %d mixes depth and elevation", i)
		}
	}
	return nil
}

// Query runs the engine once over req.Points and returns one record per
// point, in the order the points were given. Failures are never retried.
func (c *Client) Query(ctx context.Context, req Request) ([]Record, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	inv := c.Invocation(req)
	log := zap.L().With(
		zap.String("mode", req.Mode.Name),
		zap.String("model", req.Model),
		zap.Int("points", len(req.Points)),
	)
	log.Debug("engine: query", zap.String("cmd", inv.String()))

	start := time.Now()
	out, err := c.backend.Run(ctx, inv, EncodePoints(req.Points, req.Mode.LonLatOnly))
	if err != nil {
		return nil, err
	}
	records, err := ParseOutput(out, req.Mode, len(req.Points))
	if err != nil {
		return nil, err
	}

	log.Info("engine: query complete", zap.Duration("elapsed", time.Since(start)))
	return records, nil
}

// QueryOne queries a single point and returns its record unwrapped.
func (c *Client) QueryOne(ctx context.Context, mode Mode, modelName string, p model.Point) (Record, error) {
	records, err := c.Query(ctx, Request{Mode: mode, Model: modelName, Points: []model.Point{p}})
	if err != nil {
		return Record{}, err
	}
	return records[0], nil
}

// Materials returns the material properties at each point.
func (c *Client) Materials(ctx context.Context, modelName string, points []model.Point) ([]model.MaterialProperty, error) {
	records, err := c.Query(ctx, Request{Mode: ModeMaterial, Model: modelName, Points: points})
	if err != nil {
		return nil, err
	}
	out := make([]model.MaterialProperty, len(records))
	for i, r := range records {
		out[i] = r.Material
	}
	return out, nil
}

// Vs30 returns the Vs30 value at each surface location.
func (c *Client) Vs30(ctx context.Context, modelName string, points []model.Point) ([]model.Optional, error) {
	return c.scalars(ctx, Request{Mode: ModeVs30, Model: modelName, Points: points})
}

// BasinDepth returns the depth at which vs first reaches threshold m/s.
func (c *Client) BasinDepth(ctx context.Context, modelName string, points []model.Point, threshold float64) ([]model.Optional, error) {
	return c.scalars(ctx, Request{Mode: ModeBasinDepth, Model: modelName, Points: points, VsThreshold: threshold})
}

// Elevation returns the etree surface elevation at each point.
func (c *Client) Elevation(ctx context.Context, modelName string, points []model.Point) ([]model.Optional, error) {
	return c.scalars(ctx, Request{Mode: ModeElevation, Model: modelName, Points: points})
}

// Vs30Etree returns the etree Vs30 at each point.
func (c *Client) Vs30Etree(ctx context.Context, modelName string, points []model.Point) ([]model.Optional, error) {
	return c.scalars(ctx, Request{Mode: ModeVs30Etree, Model: modelName, Points: points})
}

// Raw returns the engine's data lines untouched.
func (c *Client) Raw(ctx context.Context, modelName string, points []model.Point) ([]string, error) {
	records, err := c.Query(ctx, Request{Mode: ModeRaw, Model: modelName, Points: points})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Line
	}
	return out, nil
}

func (c *Client) scalars(ctx context.Context, req Request) ([]model.Optional, error) {
	records, err := c.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]model.Optional, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out, nil
}

// Models lists the models installed alongside the engine.
func (c *Client) Models() ([]string, error) {
	entries, err := os.ReadDir(c.cfg.ModelDir)
	if err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "engine: list models in %s: %v", c.cfg.ModelDir, err)
	}
	var models []string
	for _, e := range entries {
		if e.Name() == "ucvm" {
			continue
		}
		models = append(models, e.Name())
	}
	slices.Sort(models)
	return models, nil
}
