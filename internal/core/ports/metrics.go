package ports

import (
	"time"

	"go.trai.ch/stitch/internal/core/domain"
)

// BuildOutcome labels the result of one build attempt.
type BuildOutcome string

const (
	// OutcomeBuilt means the artifact was written.
	OutcomeBuilt BuildOutcome = "built"
	// OutcomeSkipped means the destination was fresh.
	OutcomeSkipped BuildOutcome = "skipped"
	// OutcomeCoalesced means the request was served by a build already in flight.
	OutcomeCoalesced BuildOutcome = "coalesced"
	// OutcomeFailed means the build failed.
	OutcomeFailed BuildOutcome = "failed"
)

// Metrics records engine activity.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	ObserveBuild(outcome BuildOutcome, d time.Duration)
	SetCacheEntries(n int)
	IncInvalidation(kind domain.ChangeKind, matched int)
}
