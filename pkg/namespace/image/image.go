// Package image provides an XDR codec for whole-namespace snapshots.
//
// A snapshot captures the directory tree and per-file block metadata of a
// live cluster so an offline fsck can run against it: Dump walks a
// namespace service and serializes everything it sees; Load reads the
// stream back and Import replays it into any writable backend (the
// in-memory store or a BadgerDB snapshot).
//
// XDR keeps the image portable across the cluster's tooling, which already
// speaks XDR on the wire.
package image

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/dfsck/pkg/namespace"
)

// FormatVersion is bumped whenever the image layout changes.
const FormatVersion = 1

// imageMagic identifies a dfsck namespace image stream.
const imageMagic = 0x64664349 // "dfCI"

// Snapshot is the in-memory form of one namespace image.
type Snapshot struct {
	Magic   uint32
	Version uint32

	// Directories lists every directory path, parents before children
	Directories []Directory

	// Files lists every file with its full block metadata
	Files []File
}

// Directory is one directory entry in the image.
type Directory struct {
	Path string
}

// Replica mirrors namespace.ReplicaLocation in wire form.
type Replica struct {
	NodeID         string
	ReportedLength int64
	Live           bool
	Corrupt        bool
}

// Block mirrors namespace.BlockRecord in wire form. IDs travel as strings:
// XDR has no native UUID type and opaque bytes would hide them from
// inspection tooling.
type Block struct {
	ID       string
	Length   int64
	Corrupt  bool
	Replicas []Replica
}

// File mirrors namespace.FileRecord in wire form.
type File struct {
	Path         string
	Length       int64
	Replication  uint32
	OpenForWrite bool
	MtimeUnix    int64
	Blocks       []Block
}

// Dump walks the namespace service from root and writes the complete image
// to w. Directories are emitted parents-first so Import can replay the
// stream in order.
func Dump(ctx context.Context, w io.Writer, svc namespace.Service, root string) error {
	snap := &Snapshot{Magic: imageMagic, Version: FormatVersion}

	entry, err := svc.Resolve(ctx, namespace.CleanPath(root))
	if err != nil {
		return fmt.Errorf("resolve image root: %w", err)
	}
	if err := collect(ctx, svc, entry, snap); err != nil {
		return err
	}

	if _, err := xdr.Marshal(w, snap); err != nil {
		return fmt.Errorf("marshal namespace image: %w", err)
	}
	return nil
}

func collect(ctx context.Context, svc namespace.Service, entry *namespace.Entry, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.Kind == namespace.KindFile {
		rec, err := svc.GetBlockLocations(ctx, entry.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Path, err)
		}
		snap.Files = append(snap.Files, fromRecord(rec))
		return nil
	}

	snap.Directories = append(snap.Directories, Directory{Path: entry.Path})
	children, err := svc.ListChildren(ctx, entry.Path)
	if err != nil {
		return fmt.Errorf("list %s: %w", entry.Path, err)
	}
	for _, child := range children {
		if err := collect(ctx, svc, child, snap); err != nil {
			return err
		}
	}
	return nil
}

// Load reads one namespace image from r.
func Load(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if _, err := xdr.Unmarshal(r, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal namespace image: %w", err)
	}
	if snap.Magic != imageMagic {
		return nil, fmt.Errorf("not a namespace image (magic %#x)", snap.Magic)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported image version %d", snap.Version)
	}
	return &snap, nil
}

// Importer is the writable-backend surface Import replays a snapshot into.
// Both the in-memory store and the BadgerDB snapshot store satisfy it.
type Importer interface {
	MkdirAll(ctx context.Context, path string) error
	CreateFile(ctx context.Context, rec namespace.FileRecord) error
}

// Import replays snap into dst.
func Import(ctx context.Context, snap *Snapshot, dst Importer) error {
	for _, dir := range snap.Directories {
		if err := dst.MkdirAll(ctx, dir.Path); err != nil {
			return fmt.Errorf("import directory %s: %w", dir.Path, err)
		}
	}
	for _, file := range snap.Files {
		rec, err := toRecord(&file)
		if err != nil {
			return err
		}
		if err := dst.CreateFile(ctx, *rec); err != nil {
			return fmt.Errorf("import file %s: %w", file.Path, err)
		}
	}
	return nil
}

func fromRecord(rec *namespace.FileRecord) File {
	file := File{
		Path:         rec.Path,
		Length:       rec.Length,
		Replication:  rec.Replication,
		OpenForWrite: rec.OpenForWrite,
		MtimeUnix:    rec.Mtime.Unix(),
	}
	for _, blk := range rec.Blocks {
		wire := Block{
			ID:      blk.ID.String(),
			Length:  blk.Length,
			Corrupt: blk.Corrupt,
		}
		for _, rep := range blk.Replicas {
			wire.Replicas = append(wire.Replicas, Replica(rep))
		}
		file.Blocks = append(file.Blocks, wire)
	}
	return file
}

func toRecord(file *File) (*namespace.FileRecord, error) {
	rec := &namespace.FileRecord{
		Path:         file.Path,
		Length:       file.Length,
		Replication:  file.Replication,
		OpenForWrite: file.OpenForWrite,
		Mtime:        time.Unix(file.MtimeUnix, 0),
	}
	for _, blk := range file.Blocks {
		id, err := uuid.Parse(blk.ID)
		if err != nil {
			return nil, fmt.Errorf("file %s: bad block id %q: %w", file.Path, blk.ID, err)
		}
		record := namespace.BlockRecord{
			ID:      id,
			Length:  blk.Length,
			Corrupt: blk.Corrupt,
		}
		for _, rep := range blk.Replicas {
			record.Replicas = append(record.Replicas, namespace.ReplicaLocation(rep))
		}
		rec.Blocks = append(rec.Blocks, record)
	}
	return rec, nil
}
