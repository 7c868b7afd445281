package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stitch/internal/core/ports"
)

const (
	// OracleNodeID is the unique identifier for the freshness oracle Graft node.
	OracleNodeID graft.ID = "adapter.fs.oracle"
	// ReaderNodeID is the unique identifier for the source reader Graft node.
	ReaderNodeID graft.ID = "adapter.fs.reader"
	// WriterNodeID is the unique identifier for the artifact writer Graft node.
	WriterNodeID graft.ID = "adapter.fs.writer"
)

func init() {
	graft.Register(graft.Node[ports.FreshnessOracle]{
		ID:        OracleNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FreshnessOracle, error) {
			return NewOracle(), nil
		},
	})

	graft.Register(graft.Node[ports.SourceReader]{
		ID:        ReaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SourceReader, error) {
			return NewReader(), nil
		},
	})

	graft.Register(graft.Node[ports.ArtifactWriter]{
		ID:        WriterNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ArtifactWriter, error) {
			return NewWriter(), nil
		},
	})
}
