// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/stitch/internal/core/domain"
)

// SourceReader reads source files.
type SourceReader interface {
	// ReadAll reads every path and returns the contents in the order of paths,
	// whatever order the reads complete in.
	ReadAll(ctx context.Context, paths []string) ([][]byte, error)
}

// Concatenator assembles the artifact of a request.
type Concatenator interface {
	// Concat reads the request's sources and returns the concatenated artifact.
	Concat(ctx context.Context, req domain.ConcatRequest) (*domain.Artifact, error)
}

// ArtifactWriter writes an artifact and its source map.
type ArtifactWriter interface {
	// Write creates the destination directory and writes the artifact files.
	Write(ctx context.Context, artifact *domain.Artifact) error
}
