package fsck

import (
	"fmt"
	"io"
	"strings"
)

// Status markers. Exactly one of HEALTHY, CORRUPT or FAILURE appears
// verbatim in every rendered report so automated tooling can grep for it.
const (
	// StatusHealthy is appended to the final status line of a clean walk
	StatusHealthy = "is HEALTHY"

	// StatusCorrupt is appended when at least one corrupt or missing block
	// was found
	StatusCorrupt = "is CORRUPT"

	// StatusFailure marks an invocation that hit an internal fault:
	// malformed metadata, an unresolvable target path, a failed quarantine
	// move or an unreachable metadata service
	StatusFailure = "FAILURE"
)

// Exit codes of one checker invocation.
const (
	ExitHealthy = 0
	ExitCorrupt = 1
	ExitFailure = -1
)

// ClusterSummary holds the aggregate counters built incrementally during a
// walk. It is mutated only by the report builder and becomes read-only once
// the walk completes.
type ClusterSummary struct {
	TotalDirs  int64 `yaml:"total_dirs"`
	TotalFiles int64 `yaml:"total_files"`
	TotalBytes int64 `yaml:"total_bytes"`

	// TotalBlocks counts validated blocks: blocks of closed files plus
	// closed blocks of tagged open files
	TotalBlocks int64 `yaml:"total_blocks"`

	CorruptBlocks         int64 `yaml:"corrupt_blocks"`
	MissingBlocks         int64 `yaml:"missing_blocks"`
	UnderReplicatedBlocks int64 `yaml:"under_replicated_blocks"`
	OverReplicatedBlocks  int64 `yaml:"over_replicated_blocks"`

	CorruptFiles int64 `yaml:"corrupt_files"`
	OpenFiles    int64 `yaml:"open_files"`

	// FailedFiles counts files whose evaluation or quarantine move hit an
	// internal fault; any non-zero value turns the whole invocation into a
	// FAILURE
	FailedFiles int64 `yaml:"failed_files"`

	// MovedFiles counts successful quarantine moves (move mode only)
	MovedFiles int64 `yaml:"moved_files"`

	// MinReplication is the lowest live replica count observed on any
	// validated block; -1 until a block has been seen
	MinReplication int64 `yaml:"min_replication"`

	// liveReplicas accumulates live replica counts for the average
	liveReplicas int64
}

// AverageReplication returns the mean live replica count per validated
// block, or 0 when no blocks were seen.
func (s *ClusterSummary) AverageReplication() float64 {
	if s.TotalBlocks == 0 {
		return 0
	}
	return float64(s.liveReplicas) / float64(s.TotalBlocks)
}

// Builder accumulates file outcomes into a ClusterSummary and streams
// per-file detail lines to out as the walk proceeds, keeping the walk's
// aggregation state independent of tree size.
type Builder struct {
	target   string
	out      io.Writer
	summary  ClusterSummary
	notFound bool
}

// NewBuilder creates a Builder for a walk rooted at target. Detail lines
// are written to out as files are recorded.
func NewBuilder(target string, out io.Writer) *Builder {
	return &Builder{
		target:  target,
		out:     out,
		summary: ClusterSummary{MinReplication: -1},
	}
}

// RecordNotFound records that the target path itself does not resolve.
func (b *Builder) RecordNotFound() {
	b.notFound = true
	fmt.Fprintf(b.out, "Path '%s' does not exist.\n", b.target)
}

// RecordDirectory records one visited directory.
func (b *Builder) RecordDirectory(path string) {
	b.summary.TotalDirs++
}

// RecordFile folds one evaluated file into the summary and emits its
// detail lines.
func (b *Builder) RecordFile(res *FileResult) {
	b.summary.TotalFiles++
	b.summary.TotalBytes += res.Length

	if res.Skipped {
		return
	}

	if res.OpenForWrite {
		b.summary.OpenFiles++
		fmt.Fprintf(b.out, "%s %d bytes, %d block(s), OPENFORWRITE\n",
			res.Path, res.Length, len(res.Blocks))
	}

	for _, blk := range res.Blocks {
		b.summary.TotalBlocks++
		b.summary.liveReplicas += int64(blk.LiveReplicas)
		if b.summary.MinReplication < 0 || int64(blk.LiveReplicas) < b.summary.MinReplication {
			b.summary.MinReplication = int64(blk.LiveReplicas)
		}

		switch blk.Verdict {
		case VerdictMissing:
			b.summary.MissingBlocks++
			fmt.Fprintf(b.out, "%s: MISSING block %s: no replicas reported\n", res.Path, blk.ID)
		case VerdictCorrupt:
			b.summary.CorruptBlocks++
			fmt.Fprintf(b.out, "%s: CORRUPT block %s: 0 live replica(s), %d corruption report(s)\n",
				res.Path, blk.ID, blk.CorruptReports)
		case VerdictUnderReplicated:
			b.summary.UnderReplicatedBlocks++
			fmt.Fprintf(b.out, "%s: Under replicated block %s. Target replicas is %d but found %d replica(s).\n",
				res.Path, blk.ID, res.Replication, blk.LiveReplicas)
		default:
			if blk.OverReplicated {
				b.summary.OverReplicatedBlocks++
				fmt.Fprintf(b.out, "%s: Over replicated block %s. Target replicas is %d but found %d replica(s).\n",
					res.Path, blk.ID, res.Replication, blk.LiveReplicas)
			}
		}
	}

	if res.Verdict.Unrecoverable() {
		b.summary.CorruptFiles++
	}
}

// RecordFileFailure records an internal fault confined to one file:
// malformed block metadata or a failed quarantine move. The walk continues
// past it but the invocation's verdict becomes FAILURE.
func (b *Builder) RecordFileFailure(path string, err error) {
	b.summary.TotalFiles++
	b.summary.FailedFiles++
	fmt.Fprintf(b.out, "%s: %s: %v\n", path, StatusFailure, err)
}

// RecordMoveFailure records a quarantine move that could not complete.
// The file itself was already recorded; only the fault counter moves.
func (b *Builder) RecordMoveFailure(path string, err error) {
	b.summary.FailedFiles++
	fmt.Fprintf(b.out, "%s: %s: %v\n", path, StatusFailure, err)
}

// RecordMove records a successful quarantine move of a corrupt file.
func (b *Builder) RecordMove(path, dest string) {
	b.summary.MovedFiles++
	fmt.Fprintf(b.out, "%s: moved to %s\n", path, dest)
}

// Finalize closes the builder and produces the immutable report.
func (b *Builder) Finalize() *Report {
	report := &Report{
		Target:  b.target,
		Summary: b.summary,
	}

	switch {
	case b.notFound || b.summary.FailedFiles > 0:
		report.Status = StatusFailure
		report.ExitCode = ExitFailure
	case b.summary.CorruptBlocks > 0 || b.summary.MissingBlocks > 0:
		report.Status = StatusCorrupt
		report.ExitCode = ExitCorrupt
	default:
		report.Status = StatusHealthy
		report.ExitCode = ExitHealthy
	}
	return report
}

// Report is the finalized outcome of one walk: the summary counters, the
// status marker and the exit code. The per-file detail was already streamed
// through the builder's writer; Render emits the summary block and the
// terminal status line.
type Report struct {
	Target   string         `yaml:"target"`
	Summary  ClusterSummary `yaml:"summary"`
	Status   string         `yaml:"status"`
	ExitCode int            `yaml:"exit_code"`
}

// Render writes the summary block and the terminal status line.
func (r *Report) Render(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, " Total size:\t%d B\n", r.Summary.TotalBytes)
	fmt.Fprintf(&sb, " Total dirs:\t%d\n", r.Summary.TotalDirs)
	fmt.Fprintf(&sb, " Total files:\t%d\n", r.Summary.TotalFiles)
	fmt.Fprintf(&sb, " Total blocks (validated):\t%d\n", r.Summary.TotalBlocks)
	fmt.Fprintf(&sb, " Corrupt blocks:\t%d\n", r.Summary.CorruptBlocks)
	fmt.Fprintf(&sb, " Missing blocks:\t%d\n", r.Summary.MissingBlocks)
	fmt.Fprintf(&sb, " Under-replicated blocks:\t%d\n", r.Summary.UnderReplicatedBlocks)
	fmt.Fprintf(&sb, " Over-replicated blocks:\t%d\n", r.Summary.OverReplicatedBlocks)
	fmt.Fprintf(&sb, " Corrupt files:\t%d\n", r.Summary.CorruptFiles)
	fmt.Fprintf(&sb, " Files open for write:\t%d\n", r.Summary.OpenFiles)
	if r.Summary.MovedFiles > 0 {
		fmt.Fprintf(&sb, " Files moved to quarantine:\t%d\n", r.Summary.MovedFiles)
	}
	if r.Summary.FailedFiles > 0 {
		fmt.Fprintf(&sb, " Files with internal faults:\t%d\n", r.Summary.FailedFiles)
	}
	if r.Summary.MinReplication >= 0 {
		fmt.Fprintf(&sb, " Minimum block replication:\t%d\n", r.Summary.MinReplication)
		fmt.Fprintf(&sb, " Average block replication:\t%.1f\n", r.Summary.AverageReplication())
	}

	sb.WriteString("\n")
	if r.Status == StatusFailure {
		fmt.Fprintf(&sb, "Fsck on path '%s' %s\n", r.Target, StatusFailure)
	} else {
		fmt.Fprintf(&sb, "The filesystem under path '%s' %s\n", r.Target, r.Status)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
