package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/pipeline"
	"github.com/sells-group/cvmgrid/internal/store"
)

// gridEnv holds the engine client, cache and catalog used by the query
// commands.
type gridEnv struct {
	Engine   *engine.Client
	Codec    *cache.Codec
	Store    store.Store // may be nil
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *gridEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func engineConfig() engine.Config {
	return engine.Config{
		InstallDir: cfg.Engine.InstallDir,
		BinDir:     cfg.Engine.BinDir,
		ConfigFile: cfg.Engine.ConfigFile,
		ModelDir:   cfg.Engine.ModelDir,
		ZRange:     cfg.Engine.ZRange,
		Timeout:    cfg.Engine.Timeout(),
	}
}

// initStore opens and migrates the artifact catalog. An empty catalog
// path disables cataloguing.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Cache.CatalogPath == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Cache.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "open catalog")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate catalog")
	}
	return st, nil
}

// initEnv builds the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context) (*gridEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	client := engine.NewClient(engineConfig(), nil)
	codec := cache.NewCodec(cfg.Cache.Dir)

	zap.L().Debug("environment ready",
		zap.String("bin_dir", client.Config().BinDir),
		zap.String("cache_dir", cfg.Cache.Dir),
		zap.String("catalog", cfg.Cache.CatalogPath),
	)
	return &gridEnv{
		Engine:   client,
		Codec:    codec,
		Store:    st,
		Pipeline: pipeline.New(cfg, client, codec, st),
	}, nil
}
