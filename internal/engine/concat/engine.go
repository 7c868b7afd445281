// Package concat implements the request path of the primary process: cache
// update, freshness check, concatenation and write.
package concat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
)

var (
	_ ports.Dispatcher = (*Engine)(nil)
	_ ports.Builder    = (*Engine)(nil)
)

// flight marks a destination whose build is running. Requests arriving while
// it runs join next instead of starting a second build.
type flight struct {
	next  *run
	force bool
}

// run is one queued re-run of a destination. done is closed once the run has
// finished and its outcome is set.
type run struct {
	done    chan struct{}
	id      string
	outcome ports.BuildOutcome
	err     error
}

// Engine builds destinations on behalf of every caller of the primary.
type Engine struct {
	cache       ports.BuildCache
	oracle      ports.FreshnessOracle
	concatenate ports.Concatenator
	writer      ports.ArtifactWriter
	tracer      ports.Tracer
	metrics     ports.Metrics
	logger      ports.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// NewEngine creates a new Engine with the given dependencies.
func NewEngine(
	cache ports.BuildCache,
	oracle ports.FreshnessOracle,
	concatenate ports.Concatenator,
	writer ports.ArtifactWriter,
	tracer ports.Tracer,
	metrics ports.Metrics,
	logger ports.Logger,
) *Engine {
	return &Engine{
		cache:       cache,
		oracle:      oracle,
		concatenate: concatenate,
		writer:      writer,
		tracer:      tracer,
		metrics:     metrics,
		logger:      logger,
		flights:     make(map[string]*flight),
	}
}

// Dispatch builds req in this process.
func (e *Engine) Dispatch(ctx context.Context, req domain.ConcatRequest) error {
	_, err := e.Build(ctx, req, false)
	return err
}

// Build records req as the destination's entry, persists the cache and then
// rebuilds the destination if it is stale or force is set.
//
// The entry is updated even when the build is skipped or fails. A failure to
// persist the cache does not stop the build; it is joined into the returned
// error. When a build of the same destination is already running, Build waits
// for the re-run that picks up the latest entry and returns its outcome, with
// Coalesced set.
func (e *Engine) Build(ctx context.Context, req domain.ConcatRequest, force bool) (ports.BuildResult, error) {
	ctx = context.WithoutCancel(ctx)
	result := ports.BuildResult{ID: uuid.NewString()}
	start := time.Now()

	persistErr := e.cache.Put(req.Entry())
	if persistErr != nil {
		e.logger.Warn(fmt.Sprintf("cache update for %s not persisted: %v", req.Destination, persistErr))
	}
	e.metrics.SetCacheEntries(len(e.cache.Entries()))

	if joined := e.claim(req.Destination, force); joined != nil {
		<-joined.done
		result.ID, result.Outcome, result.Coalesced = joined.id, joined.outcome, true
		result.Duration = time.Since(start)
		e.metrics.ObserveBuild(ports.OutcomeCoalesced, result.Duration)
		return result, errors.Join(joined.err, persistErr)
	}

	var buildErr error
	var waiting *run
	for {
		current := req
		if entry, ok := e.cache.Get(req.Destination); ok {
			current = entry.Request()
		}

		if waiting == nil {
			result.Outcome, buildErr = e.buildOnce(ctx, result.ID, current, force)
		} else {
			waiting.outcome, waiting.err = e.buildOnce(ctx, waiting.id, current, force)
			close(waiting.done)
		}

		waiting, force = e.release(req.Destination)
		if waiting == nil {
			break
		}
	}

	result.Duration = time.Since(start)
	e.metrics.ObserveBuild(result.Outcome, result.Duration)
	return result, errors.Join(buildErr, persistErr)
}

// InFlight reports whether a build of destination is running.
func (e *Engine) InFlight(destination string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.flights[destination]
	return ok
}

// claim sets the in-flight marker for destination and returns nil. When a
// build is already running it returns the queued re-run to wait on instead.
func (e *Engine) claim(destination string, force bool) *run {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.flights[destination]
	if !ok {
		e.flights[destination] = &flight{}
		return nil
	}
	if f.next == nil {
		f.next = &run{done: make(chan struct{}), id: uuid.NewString()}
	}
	f.force = f.force || force
	return f.next
}

// release clears the marker unless a re-run was queued meanwhile. In that case
// the marker stays and the re-run is handed to the caller with its force flag.
func (e *Engine) release(destination string) (*run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.flights[destination]
	if f == nil || f.next == nil {
		delete(e.flights, destination)
		return nil, false
	}
	next, force := f.next, f.force
	f.next, f.force = nil, false
	return next, force
}

func (e *Engine) buildOnce(
	ctx context.Context,
	id string,
	req domain.ConcatRequest,
	force bool,
) (ports.BuildOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "concat.build")
	defer span.End()

	span.SetAttribute("build.id", id)
	span.SetAttribute("concat.destination", req.Destination)
	span.SetAttribute("concat.sources", len(req.Sources))
	span.SetAttribute("concat.sourcemap", req.Sourcemap)
	span.SetAttribute("concat.force", force)

	if !force && !e.oracle.IsStale(req.Sources, req.Destination) {
		span.SetAttribute("concat.outcome", string(ports.OutcomeSkipped))
		return ports.OutcomeSkipped, nil
	}

	artifact, err := e.concatenate.Concat(ctx, req)
	if err == nil {
		err = e.writer.Write(ctx, artifact)
	}
	if err != nil {
		err = &domain.BuildError{BuildID: id, Destination: req.Destination, Err: err}
		span.RecordError(err)
		span.SetAttribute("concat.outcome", string(ports.OutcomeFailed))
		return ports.OutcomeFailed, err
	}

	span.SetAttribute("concat.outcome", string(ports.OutcomeBuilt))
	e.logger.Info(fmt.Sprintf("built %s from %d sources", req.Destination, len(req.Sources)))
	return ports.OutcomeBuilt, nil
}
