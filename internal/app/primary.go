package app

import (
	"go.trai.ch/stitch/internal/adapters/sourcemap"
	"go.trai.ch/stitch/internal/adapters/store"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/engine/concat"
)

// primary holds the state only the primary process owns.
type primary struct {
	cache  *store.Store
	engine *concat.Engine
}

func (a *App) newPrimary(cfg *domain.Config) *primary {
	cache := store.Open(cfg.RecordPath(), a.logger)
	a.recorder.SetCacheEntries(cache.Len())

	var opts []sourcemap.BuilderOption
	if cfg.IncludeSourcesContent {
		opts = append(opts, sourcemap.WithSourcesContent())
	}

	engine := concat.NewEngine(
		cache,
		a.oracle,
		sourcemap.NewConcatenator(a.reader, opts...),
		a.writer,
		a.tracer,
		a.recorder,
		a.logger,
	)
	return &primary{cache: cache, engine: engine}
}
