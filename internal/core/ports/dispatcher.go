package ports

import (
	"context"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
)

// Dispatcher runs a normalized concat request to completion, either in this
// process or in the primary process.
//
//go:generate mockgen -source=dispatcher.go -destination=mocks/mock_dispatcher.go -package=mocks
type Dispatcher interface {
	// Dispatch returns once the build attempt has completed or failed.
	Dispatch(ctx context.Context, req domain.ConcatRequest) error
}

// BuildResult describes one build attempt of a destination.
type BuildResult struct {
	ID       string
	Outcome  BuildOutcome
	Duration time.Duration
	// Coalesced is set when the attempt was run by a build already in flight
	// for the same destination. ID and Outcome are those of that run.
	Coalesced bool
}

// Builder runs the request path in the primary process.
type Builder interface {
	// Build records req in the cache and rebuilds the destination when it is
	// stale. force skips the freshness check.
	Build(ctx context.Context, req domain.ConcatRequest, force bool) (BuildResult, error)
}
