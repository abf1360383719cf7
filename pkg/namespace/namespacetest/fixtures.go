// Package namespacetest provides fixture builders shared by the checker and
// backend test suites. All fixtures produce fully healthy records; tests
// degrade them through the memory store's simulation mutators.
package namespacetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dfsck/pkg/namespace"
	"github.com/marmos91/dfsck/pkg/namespace/memory"
)

// Block returns a block of the given length with live healthy replicas on
// nodes "node-1" through "node-<replicas>".
func Block(length int64, replicas int) namespace.BlockRecord {
	blk := namespace.BlockRecord{
		ID:     uuid.New(),
		Length: length,
	}
	for i := 0; i < replicas; i++ {
		blk.Replicas = append(blk.Replicas, namespace.ReplicaLocation{
			NodeID:         nodeID(i),
			ReportedLength: length,
			Live:           true,
		})
	}
	return blk
}

// File returns a closed, fully replicated file record at path with one block
// per entry of blockLengths, each holding exactly replication live replicas.
func File(path string, replication uint32, blockLengths ...int64) namespace.FileRecord {
	rec := namespace.FileRecord{
		Path:        path,
		Replication: replication,
		Mtime:       time.Now(),
	}
	for _, length := range blockLengths {
		rec.Blocks = append(rec.Blocks, Block(length, int(replication)))
		rec.Length += length
	}
	return rec
}

// Seed creates every record in the store, failing the test on error. Parent
// directories are created implicitly.
func Seed(t *testing.T, store *memory.Store, records ...namespace.FileRecord) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range records {
		if err := store.CreateFile(ctx, rec); err != nil {
			t.Fatalf("seed %s: %v", rec.Path, err)
		}
	}
}

// nodeID returns the deterministic node name for replica slot i, so
// simulation mutators can address replicas by node.
func nodeID(i int) string {
	return fmt.Sprintf("node-%d", i+1)
}
