// Package normalizer validates concat calls and resolves their paths against
// the output root.
package normalizer

import (
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/zerr"
)

// Normalize validates raw and resolves it for doc. Validation failures are
// returned as *domain.ConfigError without touching the filesystem.
func Normalize(doc domain.Document, raw domain.RawRequest, outputRoot string) (domain.ConcatRequest, error) {
	sources, err := SourceList(raw.Sources)
	if err != nil {
		return domain.ConcatRequest{}, domain.NewConfigError(err)
	}
	if raw.Destination == "" {
		return domain.ConcatRequest{}, domain.NewConfigError(domain.ErrUndefinedDestination)
	}

	resolved := make([]string, len(sources))
	for i, src := range sources {
		resolved[i] = filepath.Join(outputRoot, doc.Share, src)
	}

	dest, err := resolveDestination(doc, raw.Destination, SourceExt(sources), outputRoot)
	if err != nil {
		return domain.ConcatRequest{}, domain.NewConfigError(err)
	}

	return domain.ConcatRequest{
		Sources:     resolved,
		Destination: dest,
		Sourcemap:   raw.Sourcemap,
	}, nil
}

// SourceList turns a single path or a list of paths into a list.
// Empty strings are dropped; an empty result is ErrUndefinedSources.
func SourceList(v any) ([]string, error) {
	var list []string
	switch s := v.(type) {
	case nil:
	case string:
		list = []string{s}
	case []string:
		list = s
	case []any:
		list = make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, zerr.With(domain.ErrUndefinedSources, "item", item)
			}
			list = append(list, str)
		}
	default:
		return nil, zerr.With(domain.ErrUndefinedSources, "type", v)
	}

	out := make([]string, 0, len(list))
	for _, src := range list {
		if src != "" {
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrUndefinedSources
	}
	return out, nil
}

// SourceExt is the conventional extension of a source list: the first
// source's extension, or DefaultSourceExt when it has none.
func SourceExt(sources []string) string {
	if len(sources) > 0 {
		if ext := filepath.Ext(sources[0]); ext != "" {
			return ext
		}
	}
	return domain.DefaultSourceExt
}

func resolveDestination(doc domain.Document, dest, ext, outputRoot string) (string, error) {
	if filepath.Ext(dest) == ext {
		return filepath.Join(outputRoot, dest), nil
	}

	layout := doc.LayoutBaseName()
	if layout == "" {
		return "", zerr.With(domain.ErrMissingLayout, "destination", dest)
	}
	return filepath.Join(outputRoot, dest, layout+domain.AllInfix+ext), nil
}

// URL returns the reference of dest handed back to callers: its path under
// outputRoot, slash-separated and prefixed with baseURL.
func URL(baseURL, outputRoot, dest string) string {
	rel, err := filepath.Rel(outputRoot, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = dest
	}
	if baseURL == "" {
		baseURL = "/"
	}
	if strings.Contains(baseURL, "://") {
		return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(filepath.ToSlash(rel), "/")
	}
	return path.Join("/", baseURL, filepath.ToSlash(rel))
}
