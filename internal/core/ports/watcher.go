package ports

import (
	"context"
	"iter"

	"go.trai.ch/stitch/internal/core/domain"
)

// Watcher defines the interface for watching the output tree.
type Watcher interface {
	// Start begins watching the given root directory recursively.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator of change events.
	Events() iter.Seq[domain.ChangeEvent]
}
