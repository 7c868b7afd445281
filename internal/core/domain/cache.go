// Package domain contains the core types of the concat engine.
package domain

import "slices"

// ConcatRequest is a fully normalized request: absolute sources in output
// order, an absolute destination file and whether a source map is wanted.
type ConcatRequest struct {
	Sources     []string
	Destination string
	Sourcemap   bool
}

// Entry returns the cache entry recording this request.
func (r ConcatRequest) Entry() CacheEntry {
	return CacheEntry{
		Destination: r.Destination,
		Sources:     slices.Clone(r.Sources),
		Sourcemap:   r.Sourcemap,
	}
}

// CacheEntry is the last requested build configuration of one destination.
type CacheEntry struct {
	Sources     []string `json:"sources"`
	Sourcemap   bool     `json:"sourcemap"`
	Destination string   `json:"destination"`
}

// Request rebuilds the concat request this entry records.
func (e CacheEntry) Request() ConcatRequest {
	return ConcatRequest{
		Sources:     slices.Clone(e.Sources),
		Destination: e.Destination,
		Sourcemap:   e.Sourcemap,
	}
}

// References reports whether path is one of the entry's sources.
func (e CacheEntry) References(path string) bool {
	return slices.Contains(e.Sources, path)
}

// Without returns a copy of the entry with every occurrence of path removed from its sources.
func (e CacheEntry) Without(path string) CacheEntry {
	sources := make([]string, 0, len(e.Sources))
	for _, src := range e.Sources {
		if src != path {
			sources = append(sources, src)
		}
	}
	e.Sources = sources
	return e
}

// RawRequest is a concat call as issued by a document, before normalization.
// Sources holds a single path (string) or an ordered list ([]string or []any
// of strings). Paths are relative to the output root.
type RawRequest struct {
	Sources     any
	Destination string
	Sourcemap   bool
}
