package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Cluster simulation surface. These mutators let tests and local tooling
// drive the store into the replica states a real cluster reaches through
// node failures, checksum reports and lease activity. None of them are part
// of the namespace.Service contract the checker consumes.

// CreateFile adds a file entry owning rec, creating missing parent
// directories. rec.Path names the file.
func (s *Store) CreateFile(ctx context.Context, rec namespace.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAvailable(); err != nil {
		return err
	}

	path := pathKey(rec.Path)
	if !namespace.IsValidPath(path) {
		return namespace.NewError(namespace.ErrInvalidArgument, "invalid file path", rec.Path)
	}
	if _, ok := s.entries[path]; ok {
		return namespace.NewError(namespace.ErrAlreadyExists, "path already exists", path)
	}
	if err := s.mkdirAllLocked(namespace.ParentPath(path)); err != nil {
		return err
	}

	rec.Path = path
	if rec.Mtime.IsZero() {
		rec.Mtime = time.Now()
	}
	stored := copyRecord(&rec)

	s.entries[path] = &entryData{
		entry: namespace.Entry{
			ID:    uuid.New(),
			Path:  path,
			Kind:  namespace.KindFile,
			Mtime: rec.Mtime,
		},
		record: stored,
	}
	s.children[namespace.ParentPath(path)][namespace.BaseName(path)] = struct{}{}
	return nil
}

// SetUnavailable toggles a simulated service outage.
func (s *Store) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// SetOpenForWrite toggles the active-lease flag on a file.
func (s *Store) SetOpenForWrite(ctx context.Context, path string, open bool) error {
	return s.mutateRecord(ctx, path, func(rec *namespace.FileRecord) error {
		rec.OpenForWrite = open
		return nil
	})
}

// SetNodeLive marks every replica hosted on nodeID as live or dead,
// simulating a storage node going down or coming back.
func (s *Store) SetNodeLive(ctx context.Context, nodeID string, live bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, data := range s.entries {
		if data.record == nil {
			continue
		}
		for i := range data.record.Blocks {
			for j := range data.record.Blocks[i].Replicas {
				if data.record.Blocks[i].Replicas[j].NodeID == nodeID {
					data.record.Blocks[i].Replicas[j].Live = live
				}
			}
		}
	}
	return nil
}

// MarkReplicaCorrupt records a node-reported checksum mismatch for one
// replica of the given block.
func (s *Store) MarkReplicaCorrupt(ctx context.Context, path string, blockIndex int, nodeID string) error {
	return s.mutateBlock(ctx, path, blockIndex, func(blk *namespace.BlockRecord) error {
		for i := range blk.Replicas {
			if blk.Replicas[i].NodeID == nodeID {
				blk.Replicas[i].Corrupt = true
				return nil
			}
		}
		return namespace.NewError(namespace.ErrNotFound,
			fmt.Sprintf("no replica on node %s", nodeID), path)
	})
}

// MarkBlockCorrupt records a client-reported checksum mismatch for a block
// and marks all its replicas corrupt, simulating the converged state after
// every copy failed verification.
func (s *Store) MarkBlockCorrupt(ctx context.Context, path string, blockIndex int) error {
	return s.mutateBlock(ctx, path, blockIndex, func(blk *namespace.BlockRecord) error {
		blk.Corrupt = true
		for i := range blk.Replicas {
			blk.Replicas[i].Corrupt = true
		}
		return nil
	})
}

// RemoveBlockReplicas drops every replica of a block, simulating total loss
// with no corruption report (the MISSING condition).
func (s *Store) RemoveBlockReplicas(ctx context.Context, path string, blockIndex int) error {
	return s.mutateBlock(ctx, path, blockIndex, func(blk *namespace.BlockRecord) error {
		blk.Replicas = nil
		return nil
	})
}

// SetBlockLength overwrites a block's declared length. Tests use a negative
// value to fabricate the malformed-metadata fault.
func (s *Store) SetBlockLength(ctx context.Context, path string, blockIndex int, length int64) error {
	return s.mutateBlock(ctx, path, blockIndex, func(blk *namespace.BlockRecord) error {
		blk.Length = length
		return nil
	})
}

func (s *Store) mutateRecord(ctx context.Context, path string, fn func(*namespace.FileRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAvailable(); err != nil {
		return err
	}

	data, ok := s.entries[pathKey(path)]
	if !ok {
		return namespace.NewError(namespace.ErrNotFound, "path does not exist", path)
	}
	if data.record == nil {
		return namespace.NewError(namespace.ErrIsDirectory, "not a file", path)
	}
	return fn(data.record)
}

func (s *Store) mutateBlock(ctx context.Context, path string, blockIndex int, fn func(*namespace.BlockRecord) error) error {
	return s.mutateRecord(ctx, path, func(rec *namespace.FileRecord) error {
		if blockIndex < 0 || blockIndex >= len(rec.Blocks) {
			return namespace.NewError(namespace.ErrInvalidArgument,
				fmt.Sprintf("block index %d out of range", blockIndex), path)
		}
		return fn(&rec.Blocks[blockIndex])
	})
}
