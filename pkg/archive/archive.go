// Package archive persists rendered fsck reports for audit trails.
//
// Operators run fsck on schedules and want the full report of every
// invocation retrievable later, next to the exit code their automation
// recorded. A Sink receives the complete rendered report once the
// invocation finishes; the checker itself never depends on archival
// succeeding.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sink stores one rendered report under a caller-chosen name.
//
// Thread Safety: implementations must be safe for concurrent use.
type Sink interface {
	// Store persists report under name. Name is a relative identifier
	// such as "fsck-20260824-120000.txt"; sinks map it onto their own
	// storage layout.
	Store(ctx context.Context, name string, report []byte) error
}

// ReportName builds the conventional archive name for an invocation that
// started at ts.
func ReportName(ts time.Time) string {
	return "fsck-" + ts.UTC().Format("20060102-150405") + ".txt"
}

// FSSink stores reports as plain files under a base directory.
type FSSink struct {
	dir string
}

// NewFSSink creates a filesystem sink rooted at dir, creating it if needed.
func NewFSSink(dir string) (*FSSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &FSSink{dir: dir}, nil
}

// Store writes the report to dir/name.
func (s *FSSink) Store(ctx context.Context, name string, report []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, filepath.Clean(name))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return fmt.Errorf("write report archive: %w", err)
	}
	return nil
}
