package badger

import (
	"context"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Write-side operations. CreateFile and MkdirAll exist for snapshot import
// (pkg/namespace/image loads a captured cluster image through them); Rename
// is part of the Service contract so quarantine moves work against a
// snapshot.

// CreateFile adds a file entry owning rec, creating missing parent
// directories. rec.Path names the file.
func (s *Store) CreateFile(ctx context.Context, rec namespace.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := namespace.CleanPath(rec.Path)
	if !namespace.IsValidPath(path) || path == namespace.RootPath {
		return namespace.NewError(namespace.ErrInvalidArgument, "invalid file path", rec.Path)
	}
	rec.Path = path
	if rec.Mtime.IsZero() {
		rec.Mtime = time.Now()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey(path)); err == nil {
			return namespace.NewError(namespace.ErrAlreadyExists, "path already exists", path)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		parent := namespace.ParentPath(path)
		if err := mkdirAllTxn(txn, parent); err != nil {
			return err
		}

		entry := namespace.Entry{
			ID:    uuid.New(),
			Path:  path,
			Kind:  namespace.KindFile,
			Mtime: rec.Mtime,
		}
		if err := putJSON(txn, entryKey(path), &entry); err != nil {
			return err
		}
		if err := putJSON(txn, recordKey(path), &rec); err != nil {
			return err
		}
		return txn.Set(childKey(parent, namespace.BaseName(path)), nil)
	})
	return s.wrapNil(err, path)
}

// MkdirAll creates the directory at path along with any missing parents.
func (s *Store) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return mkdirAllTxn(txn, namespace.CleanPath(path))
	})
	return s.wrapNil(err, path)
}

func mkdirAllTxn(txn *badger.Txn, path string) error {
	segments := namespace.SplitPath(path)
	for i := range segments {
		current := namespace.JoinPath(segments[:i+1]...)

		var existing namespace.Entry
		err := getJSON(txn, entryKey(current), &existing)
		if err == nil {
			if existing.Kind != namespace.KindDirectory {
				return namespace.NewError(namespace.ErrAlreadyExists, "path exists and is not a directory", current)
			}
			continue
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		entry := namespace.Entry{
			ID:    uuid.New(),
			Path:  current,
			Kind:  namespace.KindDirectory,
			Mtime: time.Now(),
		}
		if err := putJSON(txn, entryKey(current), &entry); err != nil {
			return err
		}
		if err := txn.Set(childKey(namespace.ParentPath(current), segments[i]), nil); err != nil {
			return err
		}
	}
	return nil
}

// Rename atomically moves the entry at oldPath to newPath inside a single
// transaction. Directories move with their whole subtree.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
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

	err := s.db.Update(func(txn *badger.Txn) error {
		var src namespace.Entry
		if err := getJSON(txn, entryKey(from), &src); err != nil {
			if err == badger.ErrKeyNotFound {
				return namespace.NewError(namespace.ErrNotFound, "path does not exist", from)
			}
			return err
		}
		if _, err := txn.Get(entryKey(to)); err == nil {
			return namespace.NewError(namespace.ErrAlreadyExists, "destination already exists", to)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		newParent := namespace.ParentPath(to)
		var parent namespace.Entry
		if err := getJSON(txn, entryKey(newParent), &parent); err != nil {
			if err == badger.ErrKeyNotFound {
				return namespace.NewError(namespace.ErrNotFound, "destination parent does not exist", newParent)
			}
			return err
		}
		if parent.Kind != namespace.KindDirectory {
			return namespace.NewError(namespace.ErrNotDirectory, "destination parent is not a directory", newParent)
		}

		if err := txn.Delete(childKey(namespace.ParentPath(from), namespace.BaseName(from))); err != nil {
			return err
		}
		if err := txn.Set(childKey(newParent, namespace.BaseName(to)), nil); err != nil {
			return err
		}
		return relocateTxn(txn, from, to)
	})
	return s.wrapNil(err, from)
}

// relocateTxn rewrites the keys for from and all its descendants.
func relocateTxn(txn *badger.Txn, from, to string) error {
	// Collect the subtree first; mutating while iterating the same prefix
	// would invalidate the iterator.
	var paths []string
	prefix := []byte(entryPrefix + from)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	for it.Rewind(); it.Valid(); it.Next() {
		path := strings.TrimPrefix(string(it.Item().Key()), entryPrefix)
		if path == from || namespace.IsUnder(from, path) {
			paths = append(paths, path)
		}
	}
	it.Close()

	for _, path := range paths {
		rel, _ := namespace.RelativeTo(from, path)
		dest := namespace.JoinPath(append(namespace.SplitPath(to), rel...)...)

		var entry namespace.Entry
		if err := getJSON(txn, entryKey(path), &entry); err != nil {
			return err
		}
		entry.Path = dest
		if err := txn.Delete(entryKey(path)); err != nil {
			return err
		}
		if err := putJSON(txn, entryKey(dest), &entry); err != nil {
			return err
		}

		if entry.Kind == namespace.KindFile {
			var rec namespace.FileRecord
			if err := getJSON(txn, recordKey(path), &rec); err != nil {
				return err
			}
			rec.Path = dest
			if err := txn.Delete(recordKey(path)); err != nil {
				return err
			}
			if err := putJSON(txn, recordKey(dest), &rec); err != nil {
				return err
			}
			continue
		}

		// Rewrite the directory's children index keys.
		childPrefix := childScanPrefix(path)
		cit := txn.NewIterator(badger.IteratorOptions{Prefix: childPrefix})
		var names []string
		for cit.Rewind(); cit.Valid(); cit.Next() {
			names = append(names, strings.TrimPrefix(string(cit.Item().Key()), string(childPrefix)))
		}
		cit.Close()
		for _, name := range names {
			if err := txn.Delete(childKey(path, name)); err != nil {
				return err
			}
			if err := txn.Set(childKey(dest, name), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// wrapNil is wrap that passes nil through.
func (s *Store) wrapNil(err error, path string) error {
	if err == nil {
		return nil
	}
	return s.wrap(err, path)
}
