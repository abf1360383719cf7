package fsck

import (
	"fmt"

	"github.com/marmos91/dfsck/pkg/namespace"
)

// BlockDetail is the per-block outcome of evaluating one file.
type BlockDetail struct {
	// ID is the block identifier
	ID string

	// Verdict is this block's health classification
	Verdict Verdict

	// LiveReplicas is the count of live non-corrupt replicas
	LiveReplicas int

	// CorruptReports is the count of corruption reports against this block
	// (node-reported replica mismatches plus a client-reported block flag)
	CorruptReports int

	// OverReplicated is true when live replicas exceed the target. Noted
	// in the detail but never downgrades the verdict.
	OverReplicated bool
}

// FileResult is the outcome of evaluating one file.
type FileResult struct {
	// Path is the file path
	Path string

	// Length is the declared file length in bytes
	Length int64

	// Replication is the target replication factor
	Replication uint32

	// Verdict is the worst verdict among the file's evaluated blocks
	Verdict Verdict

	// Blocks holds the per-block detail, in block order
	Blocks []BlockDetail

	// OpenForWrite is true when the file holds an active lease and the
	// caller requested open-for-write visibility
	OpenForWrite bool

	// Skipped is true when the file holds an active lease and the caller
	// did not request visibility: the file is excluded from CORRUPT and
	// MISSING classification entirely
	Skipped bool
}

// Evaluate classifies the blocks of one file and folds them into a file
// verdict.
//
// Classification per block, from the count of live non-corrupt replicas:
//   - zero live, zero corruption reports: MISSING
//   - zero live, at least one corruption report: CORRUPT
//   - at least one live but fewer than the target: UNDER-REPLICATED
//   - at or above the target: HEALTHY (above target is noted as
//     over-replication without affecting the verdict)
//
// Open-for-write handling: a file being actively appended legitimately has
// a transiently short replica set on its last block, so open files are
// never classified from in-flight data. Without visibility the whole file
// is skipped; with visibility it is tagged OPENFORWRITE and its verdict is
// computed from the closed blocks only (the last, possibly-incomplete block
// is excluded).
//
// A negative declared block length is a metadata-integrity fault, not a
// health condition: Evaluate returns an ErrInvalidMetadata namespace error
// and the caller surfaces a FAILURE outcome distinct from CORRUPT.
func Evaluate(rec *namespace.FileRecord, openForWriteVisible bool) (*FileResult, error) {
	for i := range rec.Blocks {
		if rec.Blocks[i].Length < 0 {
			return nil, namespace.NewError(namespace.ErrInvalidMetadata,
				fmt.Sprintf("block %s declares negative length %d",
					rec.Blocks[i].ID, rec.Blocks[i].Length), rec.Path)
		}
	}

	result := &FileResult{
		Path:        rec.Path,
		Length:      rec.Length,
		Replication: rec.Replication,
		Verdict:     VerdictHealthy,
	}

	if rec.OpenForWrite && !openForWriteVisible {
		result.Skipped = true
		return result, nil
	}

	blocks := rec.Blocks
	if rec.OpenForWrite {
		result.OpenForWrite = true
		if len(blocks) > 0 {
			// The last block is still being written; its replica set is
			// not authoritative yet.
			blocks = blocks[:len(blocks)-1]
		}
	}

	for i := range blocks {
		detail := evaluateBlock(&blocks[i], rec.Replication)
		result.Blocks = append(result.Blocks, detail)
		result.Verdict = worse(result.Verdict, detail.Verdict)
	}
	return result, nil
}

func evaluateBlock(blk *namespace.BlockRecord, target uint32) BlockDetail {
	detail := BlockDetail{ID: blk.ID.String()}

	for _, rep := range blk.Replicas {
		if rep.Corrupt {
			detail.CorruptReports++
			continue
		}
		if rep.Live {
			detail.LiveReplicas++
		}
	}
	if blk.Corrupt {
		detail.CorruptReports++
	}

	switch {
	case detail.LiveReplicas == 0 && detail.CorruptReports == 0:
		detail.Verdict = VerdictMissing
	case detail.LiveReplicas == 0:
		detail.Verdict = VerdictCorrupt
	case uint32(detail.LiveReplicas) < target:
		detail.Verdict = VerdictUnderReplicated
	default:
		detail.Verdict = VerdictHealthy
		detail.OverReplicated = uint32(detail.LiveReplicas) > target
	}
	return detail
}
