package ports

import (
	"context"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
)

//go:generate mockgen -source=daemon.go -destination=mocks/mock_daemon.go -package=mocks

// DaemonStatus represents the current state of the primary.
type DaemonStatus struct {
	Running       bool
	PID           int
	Uptime        time.Duration
	LastActivity  time.Time
	IdleRemaining time.Duration
	CacheEntries  int
}

// DaemonClient is the secondary's view of the primary.
type DaemonClient interface {
	// Ping checks if the primary is alive and resets its inactivity timer.
	Ping(ctx context.Context) error

	// Status returns the current primary status.
	Status(ctx context.Context) (*DaemonStatus, error)

	// Build forwards a normalized request and returns once the primary's attempt has completed.
	Build(ctx context.Context, req domain.ConcatRequest) error

	// Shutdown requests a graceful primary shutdown.
	Shutdown(ctx context.Context) error

	// Close releases client resources.
	Close() error
}

// DaemonConnector locates or starts the primary from a secondary's perspective.
type DaemonConnector interface {
	// Dial returns a client to the primary serving stateDir, verified with a ping.
	Dial(ctx context.Context, stateDir string) (DaemonClient, error)

	// IsRunning reports whether a primary answers for stateDir.
	IsRunning(ctx context.Context, stateDir string) bool

	// Spawn starts a background primary in workDir and waits until it answers.
	Spawn(ctx context.Context, workDir, stateDir string) error
}

// Elector decides which process is the primary for a state directory.
type Elector interface {
	// Acquire takes the primary role. It fails with domain.ErrPrimaryRunning
	// when another process holds it.
	Acquire(stateDir string) (Lease, error)
}

// Lease is a held primary role.
type Lease interface {
	// Release gives up the primary role.
	Release() error
}
