package fsck

import (
	"context"
	"fmt"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/namespace"
)

// QuarantineDirName is the reserved subtree at the root of the walked path
// that unrecoverable files are moved into.
const QuarantineDirName = "lost+found"

// maxCollisionSuffix bounds the ".N" disambiguation attempts before a move
// is declared failed.
const maxCollisionSuffix = 1024

// Mover relocates the namespace entries of unrecoverable files into the
// quarantine subtree. It only changes the mapping from logical path to the
// same underlying block identities: no data is copied, repaired or deleted.
//
// The move is a two-phase contract: PlanDestination computes a free
// destination path, then Move performs the atomic rename through the
// injected service. Keeping the phases separate makes the
// collision-disambiguation logic unit-testable without a live cluster.
type Mover struct {
	svc  namespace.Service
	root string
	log  *logger.Logger
}

// NewMover creates a Mover quarantining under root/lost+found.
func NewMover(svc namespace.Service, root string, log *logger.Logger) *Mover {
	return &Mover{
		svc:  svc,
		root: namespace.CleanPath(root),
		log:  log,
	}
}

// QuarantinePath returns the root of the quarantine subtree.
func (m *Mover) QuarantinePath() string {
	return namespace.JoinPath(append(namespace.SplitPath(m.root), QuarantineDirName)...)
}

// PlanDestination computes the quarantine destination for filePath,
// preserving the file's path relative to the walk root so repeated runs do
// not collide. When the natural destination is occupied, a ".N" suffix is
// appended with the smallest free N.
//
// Returns:
//   - string: A destination path that was free at planning time
//   - error: ErrInvalidArgument if filePath is outside the walk root,
//     ErrAlreadyExists once disambiguation is exhausted
func (m *Mover) PlanDestination(ctx context.Context, filePath string) (string, error) {
	rel, ok := namespace.RelativeTo(m.root, namespace.CleanPath(filePath))
	if !ok || len(rel) == 0 {
		return "", namespace.NewError(namespace.ErrInvalidArgument,
			fmt.Sprintf("path is not under walk root %s", m.root), filePath)
	}

	segments := append(namespace.SplitPath(m.QuarantinePath()), rel...)
	base := namespace.JoinPath(segments...)

	candidate := base
	for n := 1; ; n++ {
		_, err := m.svc.Resolve(ctx, candidate)
		if namespace.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		if n > maxCollisionSuffix {
			return "", namespace.NewError(namespace.ErrAlreadyExists,
				"quarantine destination disambiguation exhausted", base)
		}
		candidate = fmt.Sprintf("%s.%d", base, n)
	}
}

// Move relocates filePath into the quarantine subtree and returns the
// destination path.
//
// The rename itself is a single atomic namespace operation; the preceding
// MkdirAll only creates directories and is idempotent. A failure here
// degrades this one file's outcome, never the rest of the walk.
func (m *Mover) Move(ctx context.Context, filePath string) (string, error) {
	dest, err := m.PlanDestination(ctx, filePath)
	if err != nil {
		return "", err
	}

	if err := m.svc.MkdirAll(ctx, namespace.ParentPath(dest)); err != nil {
		return "", fmt.Errorf("create quarantine directory: %w", err)
	}

	if err := m.svc.Rename(ctx, filePath, dest); err != nil {
		return "", fmt.Errorf("rename into quarantine: %w", err)
	}

	m.log.Info("moved %s to %s", filePath, dest)
	return dest, nil
}
