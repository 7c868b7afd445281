package sourcemap

import (
	"context"
	"path/filepath"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
)

var _ ports.Concatenator = (*Concatenator)(nil)

// URLPrefix starts the trailing comment that links an artifact to its map.
const URLPrefix = "//# sourceMappingURL="

// Concatenator joins source files into an artifact and, when requested,
// produces the matching source map.
type Concatenator struct {
	reader ports.SourceReader
	opts   []BuilderOption
}

// NewConcatenator creates a Concatenator reading sources through reader.
func NewConcatenator(reader ports.SourceReader, opts ...BuilderOption) *Concatenator {
	return &Concatenator{reader: reader, opts: opts}
}

// Concat reads the sources in order and joins them with Separator. The
// trailing map reference is always appended, with or without a map.
func (c *Concatenator) Concat(ctx context.Context, req domain.ConcatRequest) (*domain.Artifact, error) {
	contents, err := c.reader.ReadAll(ctx, req.Sources)
	if err != nil {
		return nil, err
	}

	mapPath := domain.MapPath(req.Destination)
	outDir := filepath.Dir(req.Destination)

	b := NewBuilder(req.Sourcemap, filepath.Base(req.Destination), c.opts...)
	for i, src := range req.Sources {
		b.Add(SourceID(outDir, src), contents[i])
	}
	b.Add("", []byte(URLPrefix+filepath.Base(mapPath)))

	artifact := &domain.Artifact{
		Destination: req.Destination,
		Content:     b.Content(),
		MapPath:     mapPath,
	}
	if req.Sourcemap {
		artifact.Map, err = b.SourceMap()
		if err != nil {
			return nil, err
		}
	}
	return artifact, nil
}

// SourceID names src in a map that lives in outDir: the slash-separated path
// of src relative to outDir.
func SourceID(outDir, src string) string {
	rel, err := filepath.Rel(outDir, src)
	if err != nil {
		return filepath.ToSlash(src)
	}
	return filepath.ToSlash(rel)
}
