package ports

import "go.trai.ch/stitch/internal/core/domain"

// BuildCache is the destination -> entry mapping owned by the primary process.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildCache interface {
	// Put overwrites the entry for entry.Destination and persists the whole cache.
	// On a persistence failure the in-memory update is kept and a
	// *domain.PersistenceError is returned.
	Put(entry domain.CacheEntry) error

	// Get returns the entry for destination.
	Get(destination string) (domain.CacheEntry, bool)

	// Match returns every entry whose sources contain path, ordered by destination.
	Match(path string) []domain.CacheEntry

	// RemoveSource drops path from the sources of destination's entry and persists the cache.
	RemoveSource(destination, path string) (domain.CacheEntry, error)

	// Entries returns a snapshot of all entries, ordered by destination.
	Entries() []domain.CacheEntry
}
