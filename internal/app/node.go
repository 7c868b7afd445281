package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stitch/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/daemon"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/metrics"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/stitch/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			daemon.ConnectorNodeID,
			daemon.ElectorNodeID,
			fs.OracleNodeID,
			fs.ReaderNodeID,
			fs.WriterNodeID,
			telemetry.TracerNodeID,
			metrics.NodeID,
			watcher.FactoryNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

//nolint:cyclop // one lookup per dependency
func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	connector, err := graft.Dep[ports.DaemonConnector](ctx)
	if err != nil {
		return nil, err
	}

	elector, err := graft.Dep[ports.Elector](ctx)
	if err != nil {
		return nil, err
	}

	oracle, err := graft.Dep[ports.FreshnessOracle](ctx)
	if err != nil {
		return nil, err
	}

	reader, err := graft.Dep[ports.SourceReader](ctx)
	if err != nil {
		return nil, err
	}

	writer, err := graft.Dep[ports.ArtifactWriter](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	recorder, err := graft.Dep[*metrics.Recorder](ctx)
	if err != nil {
		return nil, err
	}

	watchers, err := graft.Dep[watcher.Factory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, connector, elector, oracle, reader, writer, tracer, recorder, watchers), nil
}
