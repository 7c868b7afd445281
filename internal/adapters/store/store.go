// Package store implements the primary's build cache and its durable record.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildCache = (*Store)(nil)

// Store implements ports.BuildCache using a flat JSON file keyed by destination.
// The whole cache is rewritten on every mutation.
type Store struct {
	path    string
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// Open loads the record at path. A missing or unparsable record yields an
// empty cache; the problem is logged as a warning when log is not nil.
func Open(path string, log ports.Logger) *Store {
	s := &Store{
		path:    filepath.Clean(path),
		entries: make(map[string]domain.CacheEntry),
	}

	entries, err := ReadRecord(s.path)
	if err != nil {
		if log != nil {
			log.Warn(fmt.Sprintf("ignoring cache record %s: %v", s.path, err))
		}
		return s
	}
	for _, entry := range entries {
		s.entries[entry.Destination] = entry
	}
	return s
}

// ReadRecord parses the record at path without taking ownership of it.
// A missing record is not an error and yields no entries.
func ReadRecord(path string) ([]domain.CacheEntry, error) {
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrRecordReadFailed.Error())
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw map[string]domain.CacheEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(err, domain.ErrRecordReadFailed.Error())
	}

	entries := make([]domain.CacheEntry, 0, len(raw))
	for key, entry := range raw {
		// The key is authoritative; older records may omit the field.
		entry.Destination = key
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

// Path returns the location of the durable record.
func (s *Store) Path() string {
	return s.path
}

// save writes the record. Callers must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordMarshalFailed.Error()))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordCreateFailed.Error()))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()))
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()))
	}

	//nolint:gosec // Record is not secret; other local tools may read it
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()))
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return s.persistenceError(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()))
	}

	return nil
}

func (s *Store) persistenceError(err error) error {
	return &domain.PersistenceError{Path: s.path, Err: err}
}

// Put overwrites the entry for entry.Destination and persists the cache.
func (s *Store) Put(entry domain.CacheEntry) error {
	entry.Sources = slices.Clone(entry.Sources)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Destination] = entry
	return s.save()
}

// Get returns the entry for destination.
func (s *Store) Get(destination string) (domain.CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[destination]
	if !ok {
		return domain.CacheEntry{}, false
	}
	entry.Sources = slices.Clone(entry.Sources)
	return entry, true
}

// Match returns every entry whose sources contain path.
func (s *Store) Match(path string) []domain.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.CacheEntry
	for _, entry := range s.entries {
		if entry.References(path) {
			entry.Sources = slices.Clone(entry.Sources)
			matched = append(matched, entry)
		}
	}
	sortEntries(matched)
	return matched
}

// RemoveSource drops path from destination's sources and persists the cache.
func (s *Store) RemoveSource(destination, path string) (domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[destination]
	if !ok {
		return domain.CacheEntry{}, zerr.With(domain.ErrEntryNotFound, "destination", destination)
	}

	entry = entry.Without(path)
	s.entries[destination] = entry

	out := entry
	out.Sources = slices.Clone(entry.Sources)
	return out, s.save()
}

// Entries returns a snapshot of all entries.
func (s *Store) Entries() []domain.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entry.Sources = slices.Clone(entry.Sources)
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries
}

// Len returns the number of cached destinations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func sortEntries(entries []domain.CacheEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Destination < entries[j].Destination
	})
}
