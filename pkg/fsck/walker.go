package fsck

import (
	"context"
	"io"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Options selects the behavior of one checker invocation.
//
// Modes are additive except that ListCorruptFiles suppresses the full
// per-block report and is therefore incompatible with Move.
type Options struct {
	// Move relocates every unrecoverable file into the quarantine subtree
	// during the same traversal pass
	Move bool

	// OpenForWriteVisible includes files with an active lease in the
	// report, tagged OPENFORWRITE, with verdicts from closed blocks only
	OpenForWriteVisible bool

	// ListCorruptFiles emits only the paths of unrecoverable files plus a
	// summary sentence instead of the full health report
	ListCorruptFiles bool
}

// Validate rejects unsupported mode combinations at the call site.
func (o Options) Validate() error {
	if o.ListCorruptFiles && o.Move {
		return namespace.NewError(namespace.ErrInvalidArgument,
			"list-corruptfiles cannot be combined with move", "")
	}
	return nil
}

// Walker enumerates a namespace subtree depth-first, invoking the evaluator
// per file and folding outcomes into a report builder.
//
// Traversal is deterministic: children are visited in the lexicographic
// order the service guarantees, so repeated runs over an unchanged tree
// produce byte-identical reports. Aggregation state is O(depth): the walker
// holds no per-tree collections, only the recursion stack and the builder's
// counters.
type Walker struct {
	svc  namespace.Service
	log  *logger.Logger
	opts Options
}

// NewWalker creates a Walker over svc with the given options.
func NewWalker(svc namespace.Service, log *logger.Logger, opts Options) *Walker {
	return &Walker{svc: svc, log: log, opts: opts}
}

// Walk checks the subtree rooted at target, streaming per-file detail to
// out, and returns the finalized report.
//
// A target that does not resolve produces a report with the FAILURE marker
// and no error. A non-nil error means the invocation as a whole failed
// (metadata service unreachable, context cancelled): no partial report is
// trustworthy and none is returned.
func (w *Walker) Walk(ctx context.Context, target string, out io.Writer) (*Report, error) {
	target = namespace.CleanPath(target)
	builder := NewBuilder(target, out)

	entry, err := w.svc.Resolve(ctx, target)
	if namespace.IsNotFound(err) {
		builder.RecordNotFound()
		return builder.Finalize(), nil
	}
	if err != nil {
		return nil, err
	}

	var mover *Mover
	if w.opts.Move {
		// Quarantine lives at the root of the walked path. When the target
		// is a single file, its parent directory hosts the subtree.
		root := target
		if entry.Kind == namespace.KindFile {
			root = namespace.ParentPath(target)
		}
		mover = NewMover(w.svc, root, w.log)
	}

	// A previous move-mode run may have left a quarantine subtree under
	// the target; it is never re-walked.
	skip := namespace.JoinPath(append(namespace.SplitPath(target), QuarantineDirName)...)

	if err := w.visit(ctx, entry, builder, mover, skip); err != nil {
		return nil, err
	}
	return builder.Finalize(), nil
}

// visit handles one entry. A non-nil return aborts the whole walk; per-file
// health conditions and metadata faults never do.
func (w *Walker) visit(ctx context.Context, entry *namespace.Entry, builder *Builder, mover *Mover, skip string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.Kind == namespace.KindDirectory {
		return w.visitDirectory(ctx, entry, builder, mover, skip)
	}
	return w.visitFile(ctx, entry, builder, mover)
}

func (w *Walker) visitDirectory(ctx context.Context, entry *namespace.Entry, builder *Builder, mover *Mover, skip string) error {
	builder.RecordDirectory(entry.Path)

	children, err := w.svc.ListChildren(ctx, entry.Path)
	if namespace.IsNotFound(err) {
		// Deleted by a concurrent agent between Resolve and ListChildren.
		w.log.Debug("directory vanished mid-walk: %s", entry.Path)
		return nil
	}
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.Path == skip {
			w.log.Debug("skipping quarantine subtree %s", child.Path)
			continue
		}
		if err := w.visit(ctx, child, builder, mover, skip); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) visitFile(ctx context.Context, entry *namespace.Entry, builder *Builder, mover *Mover) error {
	rec, err := w.svc.GetBlockLocations(ctx, entry.Path)
	if namespace.IsNotFound(err) {
		w.log.Debug("file vanished mid-walk: %s", entry.Path)
		return nil
	}
	if namespace.IsUnavailable(err) {
		return err
	}
	if err != nil {
		builder.RecordFileFailure(entry.Path, err)
		return nil
	}

	result, err := Evaluate(rec, w.opts.OpenForWriteVisible)
	if err != nil {
		// Malformed metadata fails this file, not the walk.
		builder.RecordFileFailure(entry.Path, err)
		return nil
	}
	builder.RecordFile(result)

	if mover == nil || result.Skipped || !result.Verdict.Unrecoverable() {
		return nil
	}

	dest, err := mover.Move(ctx, entry.Path)
	if err != nil {
		if namespace.IsUnavailable(err) {
			return err
		}
		w.log.Warn("quarantine move failed for %s: %v", entry.Path, err)
		builder.RecordMoveFailure(entry.Path, err)
		return nil
	}
	builder.RecordMove(entry.Path, dest)
	return nil
}
