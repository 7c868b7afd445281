package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ArtifactWriter = (*Writer)(nil)

// Writer writes artifacts to disk.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write creates the destination directory, then writes the source map, when
// present, and the content last. Each file is replaced atomically, so a failed
// write never leaves a destination that looks fresh.
func (w *Writer) Write(ctx context.Context, artifact *domain.Artifact) error {
	dir := filepath.Dir(artifact.Destination)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArtifactWriteFailed.Error()), "path", dir)
	}

	if artifact.Map != nil {
		if err := writeFile(ctx, artifact.MapPath, artifact.Map, domain.ErrSourceMapWriteFailed); err != nil {
			return err
		}
	}
	return writeFile(ctx, artifact.Destination, artifact.Content, domain.ErrArtifactWriteFailed)
}

// writeFile replaces path with data through a temporary file in the same
// directory and a rename.
func writeFile(ctx context.Context, path string, data []byte, sentinel error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fail := func(err error) error {
		return zerr.With(zerr.Wrap(err, sentinel.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fail(err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fail(err)
	}

	//nolint:gosec // Artifacts are public build outputs
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return fail(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fail(err)
	}
	return nil
}
