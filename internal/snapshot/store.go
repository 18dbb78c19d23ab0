// Package snapshot holds the entity collections the pipeline reads, caches
// them on disk, and refreshes them from the hosted database.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"qms-mcp/internal/entity"
)

// Snapshot is an immutable set of collections fetched at one instant.
type Snapshot struct {
	Source      string             `json:"source"`
	FetchedAt   time.Time          `json:"fetchedAt"`
	Collections entity.Collections `json:"collections"`
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// Store provides thread-safe storage of the latest snapshot per source.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]*Snapshot),
	}
}

// Put replaces the snapshot of its source.
func (s *Store) Put(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Source] = snap
}

// Get returns the snapshot of a source, or nil.
func (s *Store) Get(source string) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[source]
}

// Clear forgets the snapshot of a source.
func (s *Store) Clear(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, source)
}

// Sources returns the sources currently held.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.snapshots))
	for k := range s.snapshots {
		out = append(out, k)
	}
	return out
}

// CachePath is the file a source is cached in.
func CachePath(cacheDir, source string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%s.json", source))
}

// Load reads a cached snapshot into the store. A missing cache file is not
// an error and leaves the store unchanged.
func (s *Store) Load(cacheDir, source string) error {
	snap, err := ReadFile(CachePath(cacheDir, source))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if snap.Source == "" {
		snap.Source = source
	}

	log.Info().Str("source", source).Int("records", snap.Collections.Total()).Time("fetched_at", snap.FetchedAt).Msg("Loaded snapshot from cache")
	s.Put(snap)
	return nil
}

// ReadFile decodes a snapshot file. Numbers are kept as json.Number so
// monetary values are not rounded through float64.
func ReadFile(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec := json.NewDecoder(bufio.NewReader(file))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if snap.Collections == nil {
		snap.Collections = entity.Collections{}
	}
	return &snap, nil
}

// Save persists the snapshot of a source to its cache file.
func (s *Store) Save(cacheDir, source string) error {
	snap := s.Get(source)
	if snap == nil {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := WriteFile(CachePath(cacheDir, source), snap); err != nil {
		return err
	}
	log.Info().Str("source", source).Int("records", snap.Collections.Total()).Msg("Snapshot saved to cache")
	return nil
}

// WriteFile writes a snapshot through a temp file and an atomic rename.
func WriteFile(path string, snap *Snapshot) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := json.NewEncoder(writer).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// DeleteCache removes the cache file of a source.
func DeleteCache(cacheDir, source string) error {
	err := os.Remove(CachePath(cacheDir, source))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
