package watcher

import (
	"context"
	"time"

	"github.com/grindlemire/graft"
	"go.trai.ch/stitch/internal/adapters/logger"
	"go.trai.ch/stitch/internal/core/ports"
)

// FactoryNodeID is the unique identifier for the watcher factory Graft node.
const FactoryNodeID graft.ID = "adapter.watcher_factory"

// Factory creates a watcher once the debounce window is known from configuration.
type Factory func(window time.Duration) (ports.Watcher, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        FactoryNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(window time.Duration) (ports.Watcher, error) {
				return NewWatcher(window, log)
			}, nil
		},
	})
}
