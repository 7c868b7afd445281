package daemon

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stitch/internal/core/ports"
)

const (
	// ConnectorNodeID is the unique identifier for the daemon connector Graft node.
	ConnectorNodeID graft.ID = "adapter.daemon_connector"
	// ElectorNodeID is the unique identifier for the primary elector Graft node.
	ElectorNodeID graft.ID = "adapter.daemon_elector"
)

func init() {
	graft.Register(graft.Node[ports.DaemonConnector]{
		ID:        ConnectorNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.DaemonConnector, error) {
			return NewConnector()
		},
	})

	graft.Register(graft.Node[ports.Elector]{
		ID:        ElectorNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Elector, error) {
			return FlockElector{}, nil
		},
	})
}
