package fs

import (
	"context"
	"os"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.SourceReader = (*Reader)(nil)

// Reader reads source files concurrently.
type Reader struct{}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadAll reads every path at once. Each result is stored at its path's
// index, so the returned order is the request order.
func (r *Reader) ReadAll(ctx context.Context, paths []string) ([][]byte, error) {
	contents := make([][]byte, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			//nolint:gosec // Sources are resolved under the output root by the normalizer
			data, err := os.ReadFile(path)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrSourceReadFailed.Error()), "path", path)
			}
			contents[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}
