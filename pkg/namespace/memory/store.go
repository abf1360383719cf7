// Package memory implements namespace.Service with in-memory data
// structures.
//
// The store doubles as a miniature cluster simulation: besides the read-side
// Service contract it exposes mutators that flip replica liveness, inject
// corruption reports and toggle leases, so tests can reproduce the replica
// states a live cluster would reach only after node failures.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dfsck/pkg/namespace"
)

type entryData struct {
	entry  namespace.Entry
	record *namespace.FileRecord // nil for directories
}

// Store implements namespace.Service using in-memory storage.
//
// Storage Model:
//
// The store maintains two interconnected maps that together represent the
// complete namespace:
//
//  1. Entries (entries):
//     Maps canonical paths to entry metadata and, for files, the owned
//     FileRecord. This is the primary storage.
//
//  2. Directory Hierarchy (children):
//     Maps each directory path to the set of child names. Kept denormalized
//     so ListChildren is a single map lookup plus a sort, and renames of
//     whole subtrees only rewrite affected keys.
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the
// store safe for concurrent access from multiple goroutines. Coarse-grained
// locking is simple and correct; the checker's walk is single-threaded
// anyway.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entryData
	children map[string]map[string]struct{}

	// unavailable simulates a metadata service outage: every operation
	// fails with ErrUnavailable while set.
	unavailable bool
}

// NewStore creates an empty store containing only the root directory.
func NewStore() *Store {
	s := &Store{
		entries:  make(map[string]*entryData),
		children: make(map[string]map[string]struct{}),
	}
	s.entries[namespace.RootPath] = &entryData{
		entry: namespace.Entry{
			ID:    uuid.New(),
			Path:  namespace.RootPath,
			Kind:  namespace.KindDirectory,
			Mtime: time.Now(),
		},
	}
	s.children[namespace.RootPath] = make(map[string]struct{})
	return s
}

// Ensure Store satisfies the Service contract.
var _ namespace.Service = (*Store)(nil)

func (s *Store) checkAvailable() error {
	if s.unavailable {
		return namespace.NewError(namespace.ErrUnavailable, "namespace service unavailable", "")
	}
	return nil
}

// Resolve looks up the entry at path.
func (s *Store) Resolve(ctx context.Context, path string) (*namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	data, ok := s.entries[namespace.CleanPath(path)]
	if !ok {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}

	entry := data.entry
	return &entry, nil
}

// ListChildren returns the direct children of the directory at path, sorted
// lexicographically by name.
func (s *Store) ListChildren(ctx context.Context, path string) ([]*namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	clean := namespace.CleanPath(path)
	data, ok := s.entries[clean]
	if !ok {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if data.entry.Kind != namespace.KindDirectory {
		return nil, namespace.NewError(namespace.ErrNotDirectory, "not a directory", path)
	}

	names := make([]string, 0, len(s.children[clean]))
	for name := range s.children[clean] {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]*namespace.Entry, 0, len(names))
	for _, name := range names {
		segments := append(namespace.SplitPath(clean), name)
		child := s.entries[namespace.JoinPath(segments...)]
		entry := child.entry
		entries = append(entries, &entry)
	}
	return entries, nil
}

// GetBlockLocations returns a deep copy of the file's block-location
// metadata so callers can never observe in-place simulation updates.
func (s *Store) GetBlockLocations(ctx context.Context, path string) (*namespace.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	data, ok := s.entries[namespace.CleanPath(path)]
	if !ok {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if data.entry.Kind != namespace.KindFile {
		return nil, namespace.NewError(namespace.ErrIsDirectory, "not a file", path)
	}

	return copyRecord(data.record), nil
}

// MkdirAll creates the directory at path along with any missing parents.
func (s *Store) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAvailable(); err != nil {
		return err
	}

	return s.mkdirAllLocked(path)
}

func (s *Store) mkdirAllLocked(path string) error {
	segments := namespace.SplitPath(path)
	current := namespace.RootPath
	for i, name := range segments {
		next := namespace.JoinPath(segments[:i+1]...)
		if data, ok := s.entries[next]; ok {
			if data.entry.Kind != namespace.KindDirectory {
				return namespace.NewError(namespace.ErrAlreadyExists, "path exists and is not a directory", next)
			}
			current = next
			continue
		}
		s.entries[next] = &entryData{
			entry: namespace.Entry{
				ID:    uuid.New(),
				Path:  next,
				Kind:  namespace.KindDirectory,
				Mtime: time.Now(),
			},
		}
		s.children[next] = make(map[string]struct{})
		s.children[current][name] = struct{}{}
		current = next
	}
	return nil
}

// Rename atomically moves the entry at oldPath to newPath. Directories move
// with their whole subtree.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAvailable(); err != nil {
		return err
	}

	from := namespace.CleanPath(oldPath)
	to := namespace.CleanPath(newPath)

	if from == namespace.RootPath {
		return namespace.NewError(namespace.ErrInvalidArgument, "cannot rename the root", from)
	}
	if from == to {
		return nil
	}
	if namespace.IsUnder(from, to) {
		return namespace.NewError(namespace.ErrInvalidArgument, "cannot rename a directory into itself", from)
	}

	data, ok := s.entries[from]
	if !ok {
		return namespace.NewError(namespace.ErrNotFound, "path does not exist", from)
	}
	if _, occupied := s.entries[to]; occupied {
		return namespace.NewError(namespace.ErrAlreadyExists, "destination already exists", to)
	}
	newParent := namespace.ParentPath(to)
	parentData, ok := s.entries[newParent]
	if !ok {
		return namespace.NewError(namespace.ErrNotFound, "destination parent does not exist", newParent)
	}
	if parentData.entry.Kind != namespace.KindDirectory {
		return namespace.NewError(namespace.ErrNotDirectory, "destination parent is not a directory", newParent)
	}

	// Detach from the old parent, attach under the new one.
	delete(s.children[namespace.ParentPath(from)], namespace.BaseName(from))
	s.children[newParent][namespace.BaseName(to)] = struct{}{}

	// Rewrite the entry and, for directories, every descendant key.
	s.relocateLocked(from, to)
	data = s.entries[to]
	data.entry.Mtime = time.Now()
	return nil
}

// relocateLocked rewrites the path keys for from and all its descendants.
func (s *Store) relocateLocked(from, to string) {
	moved := []string{from}
	for path := range s.entries {
		if path != from && namespace.IsUnder(from, path) {
			moved = append(moved, path)
		}
	}
	for _, path := range moved {
		rel, _ := namespace.RelativeTo(from, path)
		dest := namespace.JoinPath(append(namespace.SplitPath(to), rel...)...)

		data := s.entries[path]
		delete(s.entries, path)
		data.entry.Path = dest
		if data.record != nil {
			data.record.Path = dest
		}
		s.entries[dest] = data

		if kids, ok := s.children[path]; ok {
			delete(s.children, path)
			s.children[dest] = kids
		}
	}
}

// ListCorruptFiles returns the paths of closed files with at least one
// corrupt or missing block, sorted lexicographically. This mirrors the
// service-side cached corrupt index of a live cluster, which also excludes
// files under construction.
func (s *Store) ListCorruptFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	var paths []string
	for path, data := range s.entries {
		if data.record == nil || data.record.OpenForWrite {
			continue
		}
		if recordHasUnrecoverableBlock(data.record) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Healthcheck reports whether the simulated service is reachable.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkAvailable()
}

// recordHasUnrecoverableBlock reports whether any block has zero live
// non-corrupt replicas.
func recordHasUnrecoverableBlock(rec *namespace.FileRecord) bool {
	for i := range rec.Blocks {
		live := 0
		for _, rep := range rec.Blocks[i].Replicas {
			if rep.Live && !rep.Corrupt {
				live++
			}
		}
		if live == 0 {
			return true
		}
	}
	return false
}

func copyRecord(rec *namespace.FileRecord) *namespace.FileRecord {
	out := *rec
	out.Blocks = make([]namespace.BlockRecord, len(rec.Blocks))
	for i, blk := range rec.Blocks {
		out.Blocks[i] = blk
		out.Blocks[i].Replicas = append([]namespace.ReplicaLocation(nil), blk.Replicas...)
	}
	return &out
}

// pathKey normalizes user-supplied paths for map access in mutators.
func pathKey(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return namespace.CleanPath(path)
}
