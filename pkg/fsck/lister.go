package fsck

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Summarize builds the terminal sentence of a list-corrupt-files run. The
// exact phrasing is part of the tool's interface: automated callers match
// it verbatim for the zero, singular and plural cases.
//
// A negative count is caller misuse and fails fast; the function never
// renders a negative number.
func Summarize(count int, path string) (string, error) {
	switch {
	case count < 0:
		return "", namespace.NewError(namespace.ErrInvalidArgument,
			fmt.Sprintf("corrupt file count must be non-negative, got %d", count), path)
	case count == 0:
		return fmt.Sprintf("Unable to locate any corrupt files under '%s'.\n\n"+
			"Please run a complete fsck to confirm if '%s' %s", path, path, StatusHealthy), nil
	case count == 1:
		return fmt.Sprintf("There is at least 1 corrupt file under '%s', which %s",
			path, StatusCorrupt), nil
	default:
		return fmt.Sprintf("There are at least %d corrupt files under '%s', which %s",
			count, path, StatusCorrupt), nil
	}
}

// CorruptListing is the outcome of a list-corrupt-files run: the ordered
// paths of files with at least one corrupt or missing block.
type CorruptListing struct {
	Target string
	Paths  []string
}

// Render writes the path list followed by the summary sentence.
func (l *CorruptListing) Render(w io.Writer) error {
	for _, path := range l.Paths {
		if _, err := fmt.Fprintln(w, path); err != nil {
			return err
		}
	}
	summary, err := Summarize(len(l.Paths), l.Target)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, summary)
	return err
}

// ExitCode maps the listing to the invocation exit code.
func (l *CorruptListing) ExitCode() int {
	if len(l.Paths) > 0 {
		return ExitCorrupt
	}
	return ExitHealthy
}

// Lister is the alternate traversal mode that collects only the paths of
// unrecoverable files instead of a full health dump.
type Lister struct {
	svc namespace.Service
	log *logger.Logger
}

// NewLister creates a Lister over svc.
func NewLister(svc namespace.Service, log *logger.Logger) *Lister {
	return &Lister{svc: svc, log: log}
}

// ListCorrupt walks the subtree at target and returns the sorted paths of
// files with at least one corrupt or missing block.
//
// The walk's own findings are cross-checked against the service-side cached
// corrupt index: the index may know of corruption the lagging per-file view
// does not show yet, and vice versa, so the listing is the union of both
// restricted to the target subtree.
func (l *Lister) ListCorrupt(ctx context.Context, target string) (*CorruptListing, error) {
	target = namespace.CleanPath(target)

	entry, err := l.svc.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	skip := namespace.JoinPath(append(namespace.SplitPath(target), QuarantineDirName)...)
	if err := l.collect(ctx, entry, found, skip); err != nil {
		return nil, err
	}

	indexed, err := l.svc.ListCorruptFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, path := range indexed {
		if namespace.IsUnder(target, path) && !namespace.IsUnder(skip, path) {
			found[path] = struct{}{}
		}
	}

	listing := &CorruptListing{Target: target}
	for path := range found {
		listing.Paths = append(listing.Paths, path)
	}
	sort.Strings(listing.Paths)
	return listing, nil
}

func (l *Lister) collect(ctx context.Context, entry *namespace.Entry, found map[string]struct{}, skip string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.Kind == namespace.KindFile {
		rec, err := l.svc.GetBlockLocations(ctx, entry.Path)
		if namespace.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		result, err := Evaluate(rec, false)
		if err != nil {
			// Malformed metadata is not corruption; it is surfaced by a
			// full fsck run, not by the listing.
			l.log.Warn("skipping %s: %v", entry.Path, err)
			return nil
		}
		if !result.Skipped && result.Verdict.Unrecoverable() {
			found[entry.Path] = struct{}{}
		}
		return nil
	}

	children, err := l.svc.ListChildren(ctx, entry.Path)
	if namespace.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.Path == skip {
			continue
		}
		if err := l.collect(ctx, child, found, skip); err != nil {
			return err
		}
	}
	return nil
}
