// Package namespace defines the metadata model of a distributed block-based
// file system and the query contract the consistency checker runs against.
//
// The checker is a metadata consumer: it never touches block bytes and it
// mutates the namespace only through Rename (quarantine moves). Everything
// here is a view onto state owned by the cluster's metadata service, and that
// view may lag reality: replica liveness and corruption reports are only
// eventually consistent after a corruption is first detected.
package namespace

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind is the kind of a namespace entry.
type EntryKind int

const (
	// KindFile is a regular file owning an ordered block sequence
	KindFile EntryKind = iota

	// KindDirectory is a directory containing zero or more child entries
	KindDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is one node of the namespace tree: a file or a directory.
//
// Identity Fields:
//   - ID: Unique UUID identifier for this entry, stable across renames
//   - Path: Full path from the namespace root (e.g., "/srcdat/file1")
//
// The checker treats entries as read-only; the only mutation it ever issues
// is a Rename of a corrupt file into the quarantine subtree, which changes
// Path but not ID.
type Entry struct {
	// ID is a unique identifier for this entry.
	// Generated using UUID v4 (random) for collision resistance.
	ID uuid.UUID `json:"id"`

	// Path is the full path from the namespace root.
	// Always starts with "/" and uses "/" as the segment separator.
	Path string `json:"path"`

	// Kind is the entry kind (file or directory)
	Kind EntryKind `json:"kind"`

	// Mtime is the last modification time reported by the metadata service
	Mtime time.Time `json:"mtime"`
}

// ReplicaLocation is one stored copy of a block on a specific storage node.
//
// A replica is "live" when its hosting node is currently reachable. A live
// replica may still be unusable if the node independently marked it corrupt
// after a checksum mismatch.
type ReplicaLocation struct {
	// NodeID identifies the storage node hosting this replica
	NodeID string `json:"node_id"`

	// ReportedLength is the replica length last reported by the node
	ReportedLength int64 `json:"reported_length"`

	// Live is true while the hosting node is reachable
	Live bool `json:"live"`

	// Corrupt is true when the hosting node reported a checksum mismatch
	// for this replica
	Corrupt bool `json:"corrupt"`
}

// BlockRecord identifies one block of a file.
//
// Length must be >= 0 for a well-formed block. A negative length is a
// metadata-integrity fault, not a health condition; the evaluator surfaces
// it as a FAILURE outcome distinct from CORRUPT.
type BlockRecord struct {
	// ID is the block identifier
	ID uuid.UUID `json:"id"`

	// Length is the declared block length in bytes
	Length int64 `json:"length"`

	// Replicas are the known locations of this block.
	// Not owned by the checker: a view onto storage-node state.
	Replicas []ReplicaLocation `json:"replicas"`

	// Corrupt is set when a client read reported a checksum mismatch for
	// this block, independent of any per-replica corruption flag
	Corrupt bool `json:"corrupt"`
}

// FileRecord is one file's checkable unit: the block-location metadata the
// service returns for a single file path.
//
// Invariant: Blocks are ordered by byte offset and contiguous; the sum of
// block lengths equals Length once the file is closed. While a writer holds
// an active lease the last block may still be growing.
type FileRecord struct {
	// Path is the full path of the file
	Path string `json:"path"`

	// Length is the total declared byte length
	Length int64 `json:"length"`

	// Replication is the target replication factor (>= 1)
	Replication uint32 `json:"replication"`

	// Blocks is the ordered block sequence
	Blocks []BlockRecord `json:"blocks"`

	// OpenForWrite is true while a writer holds an active lease
	OpenForWrite bool `json:"open_for_write"`

	// Mtime is the last modification time
	Mtime time.Time `json:"mtime"`
}
