package fsck

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// Checker ties the traversal modes together behind a single entry point.
// One invocation of Run produces exactly one status marker on out and one
// exit code.
type Checker struct {
	svc namespace.Service
	log *logger.Logger
}

// New creates a Checker over the given namespace service.
func New(svc namespace.Service, log *logger.Logger) *Checker {
	return &Checker{svc: svc, log: log}
}

// Run checks target according to opts, writing the report to out.
//
// Returns:
//   - int: The invocation exit code (0 healthy, 1 corrupt, -1 failure)
//   - error: Non-nil for caller misuse (invalid target or mode combination,
//     reported without a marker since no check ran) and for collaborator
//     faults (the FAILURE marker was already written to out)
func (c *Checker) Run(ctx context.Context, target string, opts Options, out io.Writer) (int, error) {
	if err := opts.Validate(); err != nil {
		return ExitFailure, err
	}
	if !namespace.IsValidPath(target) {
		return ExitFailure, namespace.NewError(namespace.ErrInvalidArgument,
			"target must be an absolute namespace path", target)
	}

	if err := c.svc.Healthcheck(ctx); err != nil {
		c.failure(out, target, err)
		return ExitFailure, err
	}

	if opts.ListCorruptFiles {
		return c.runList(ctx, target, out)
	}
	return c.runWalk(ctx, target, opts, out)
}

// Wait re-runs the check through Poll until the verdict is no longer
// CORRUPT. The replica view served by the namespace service converges only
// eventually, so a caller that just quarantined or repaired damage polls
// the walk until the tree settles. Each attempt renders into a private
// buffer and only the last completed attempt's report reaches out, so one
// invocation still carries exactly one status marker.
//
// Returns:
//   - int: The last attempt's exit code
//   - error: ErrRetriesExhausted when the tree is still CORRUPT after the
//     policy's attempt budget, otherwise whatever the failing attempt
//     returned
func (c *Checker) Wait(ctx context.Context, target string, opts Options, policy RetryPolicy, out io.Writer) (int, error) {
	var (
		code = ExitFailure
		last bytes.Buffer
	)
	pollErr := Poll(ctx, policy, func(ctx context.Context) (bool, error) {
		last.Reset()
		var err error
		code, err = c.Run(ctx, target, opts, &last)
		if err != nil {
			return false, err
		}
		// A FAILURE verdict will not clear itself; only corruption that a
		// move or repair is draining is worth waiting on.
		return code != ExitCorrupt, nil
	})
	if _, err := last.WriteTo(out); err != nil {
		return ExitFailure, err
	}
	return code, pollErr
}

func (c *Checker) runWalk(ctx context.Context, target string, opts Options, out io.Writer) (int, error) {
	walker := NewWalker(c.svc, c.log, opts)
	report, err := walker.Walk(ctx, target, out)
	if err != nil {
		// Collaborator fault mid-walk: no partial report is trustworthy.
		c.failure(out, target, err)
		return ExitFailure, err
	}
	if err := report.Render(out); err != nil {
		return ExitFailure, err
	}
	return report.ExitCode, nil
}

func (c *Checker) runList(ctx context.Context, target string, out io.Writer) (int, error) {
	lister := NewLister(c.svc, c.log)
	listing, err := lister.ListCorrupt(ctx, target)
	if namespace.IsNotFound(err) {
		fmt.Fprintf(out, "Path '%s' does not exist.\n", target)
		c.failure(out, target, err)
		return ExitFailure, nil
	}
	if err != nil {
		c.failure(out, target, err)
		return ExitFailure, err
	}
	if err := listing.Render(out); err != nil {
		return ExitFailure, err
	}
	return listing.ExitCode(), nil
}

func (c *Checker) failure(out io.Writer, target string, err error) {
	c.log.Error("fsck on %s failed: %v", target, err)
	fmt.Fprintf(out, "Fsck on path '%s' %s\n", target, StatusFailure)
}
