package namespace

import "context"

// Service is the metadata query contract the checker consumes.
//
// The service is the cluster's metadata authority: it owns the directory
// tree, lease state and block-location maps. The checker layers on top of it
// and assumes nothing about its implementation beyond this interface: a
// live RPC client, an in-memory simulation and an offline BadgerDB snapshot
// all satisfy it.
//
// Consistency:
// Results are snapshots that may lag real time. In particular, after a
// corruption is first detected by a reader, the corrupt/replica-count fields
// returned by GetBlockLocations converge only eventually. All read
// operations are idempotent and side-effect-free, so callers needing a
// post-action verdict poll them on a bounded interval (see pkg/fsck Poll).
//
// Error Handling:
// Operations return *Error for business logic failures (ErrNotFound for a
// missing path, ErrAlreadyExists for an occupied rename destination) and
// ErrUnavailable when the service cannot be reached at all.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Service interface {
	// Resolve looks up the entry at path.
	//
	// Returns:
	//   - *Entry: The entry at path
	//   - error: ErrNotFound if the path doesn't exist
	Resolve(ctx context.Context, path string) (*Entry, error)

	// ListChildren returns the direct children of the directory at path,
	// sorted lexicographically by name. The ordering contract matters:
	// repeated walks over an unchanged tree must produce byte-identical
	// reports.
	//
	// Returns:
	//   - []*Entry: Sorted child entries (empty for an empty directory)
	//   - error: ErrNotFound if path doesn't exist, ErrNotDirectory if it
	//     resolves to a file
	ListChildren(ctx context.Context, path string) ([]*Entry, error)

	// GetBlockLocations returns the block-location metadata for the file at
	// path, including lease/open-for-write status.
	//
	// Returns:
	//   - *FileRecord: The file's checkable unit
	//   - error: ErrNotFound if path doesn't exist, ErrIsDirectory if it
	//     resolves to a directory
	GetBlockLocations(ctx context.Context, path string) (*FileRecord, error)

	// Rename atomically moves the entry at oldPath to newPath. Parent
	// directories of newPath must already exist. Only the path-to-record
	// mapping changes; block identities are untouched.
	//
	// Returns:
	//   - error: ErrNotFound if oldPath doesn't exist, ErrAlreadyExists if
	//     newPath is occupied, ErrNotFound if newPath's parent is missing
	Rename(ctx context.Context, oldPath, newPath string) error

	// MkdirAll creates the directory at path along with any missing
	// parents. Existing directories are left untouched.
	//
	// Returns:
	//   - error: ErrAlreadyExists if path resolves to a file
	MkdirAll(ctx context.Context, path string) error

	// ListCorruptFiles returns the service-side cached index of file paths
	// with at least one corrupt or missing block, sorted lexicographically.
	// The index may lag the per-file truth; the lister cross-checks it
	// against its own walk.
	ListCorruptFiles(ctx context.Context) ([]string, error)

	// Healthcheck verifies the service is reachable.
	//
	// Returns:
	//   - error: ErrUnavailable when the service cannot serve queries
	Healthcheck(ctx context.Context) error
}
