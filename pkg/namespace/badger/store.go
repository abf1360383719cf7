// Package badger implements namespace.Service over a BadgerDB namespace
// snapshot.
//
// An offline fsck runs against a captured metadata image instead of a live
// cluster: the snapshot is loaded once (see pkg/namespace/image) and then
// queried like any other service. Rename is supported so move mode works
// against a snapshot too; the resulting database is the repaired namespace
// to feed back into the cluster.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Config contains configuration for the snapshot store.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the whole snapshot in RAM (tests, one-shot runs over
	// a freshly imported image)
	InMemory bool
}

// Store implements namespace.Service backed by BadgerDB.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store adds no locking of its
// own and is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a snapshot store. A fresh database is
// bootstrapped with an empty root directory.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	// Badger's own logger writes to stderr unconditionally; a diagnostic
	// CLI owns its output, so database internals stay quiet.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger snapshot: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureRoot(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ namespace.Service = (*Store)(nil)

func (s *Store) ensureRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(namespace.RootPath))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		root := namespace.Entry{
			ID:    uuid.New(),
			Path:  namespace.RootPath,
			Kind:  namespace.KindDirectory,
			Mtime: time.Now(),
		}
		return putJSON(txn, entryKey(namespace.RootPath), &root)
	})
}

// Resolve looks up the entry at path.
func (s *Store) Resolve(ctx context.Context, path string) (*namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry namespace.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entryKey(namespace.CleanPath(path)), &entry)
	})
	if err == badger.ErrKeyNotFound {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if err != nil {
		return nil, s.wrap(err, path)
	}
	return &entry, nil
}

// ListChildren returns the direct children of the directory at path, sorted
// lexicographically by name.
func (s *Store) ListChildren(ctx context.Context, path string) ([]*namespace.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := namespace.CleanPath(path)
	var entries []*namespace.Entry

	err := s.db.View(func(txn *badger.Txn) error {
		var dir namespace.Entry
		if err := getJSON(txn, entryKey(clean), &dir); err != nil {
			return err
		}
		if dir.Kind != namespace.KindDirectory {
			return namespace.NewError(namespace.ErrNotDirectory, "not a directory", path)
		}

		prefix := childScanPrefix(clean)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var names []string
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, string(prefix)))
		}
		sort.Strings(names)

		for _, name := range names {
			childPath := namespace.JoinPath(append(namespace.SplitPath(clean), name)...)
			var child namespace.Entry
			if err := getJSON(txn, entryKey(childPath), &child); err != nil {
				return fmt.Errorf("child %s indexed but missing: %w", childPath, err)
			}
			entries = append(entries, &child)
		}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if err != nil {
		return nil, s.wrap(err, path)
	}
	return entries, nil
}

// GetBlockLocations returns the file record stored for path.
func (s *Store) GetBlockLocations(ctx context.Context, path string) (*namespace.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := namespace.CleanPath(path)
	var rec namespace.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		var entry namespace.Entry
		if err := getJSON(txn, entryKey(clean), &entry); err != nil {
			return err
		}
		if entry.Kind != namespace.KindFile {
			return namespace.NewError(namespace.ErrIsDirectory, "not a file", path)
		}
		return getJSON(txn, recordKey(clean), &rec)
	})
	if err == badger.ErrKeyNotFound {
		return nil, namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if err != nil {
		return nil, s.wrap(err, path)
	}
	return &rec, nil
}

// ListCorruptFiles scans the stored file records for closed files with at
// least one unrecoverable block.
func (s *Store) ListCorruptFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(recordPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec namespace.FileRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if rec.OpenForWrite {
				continue
			}
			if hasUnrecoverableBlock(&rec) {
				paths = append(paths, rec.Path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, "")
	}
	sort.Strings(paths)
	return paths, nil
}

// Healthcheck reports whether the database is still usable.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return namespace.NewError(namespace.ErrUnavailable, "snapshot database is closed", "")
	}
	return nil
}

func (s *Store) wrap(err error, path string) error {
	var nsErr *namespace.Error
	if errors.As(err, &nsErr) {
		return err
	}
	if s.db.IsClosed() {
		return namespace.NewError(namespace.ErrUnavailable, "snapshot database is closed", path)
	}
	return namespace.NewError(namespace.ErrIOError, err.Error(), path)
}

func hasUnrecoverableBlock(rec *namespace.FileRecord) bool {
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

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func putJSON(txn *badger.Txn, key []byte, in any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}
