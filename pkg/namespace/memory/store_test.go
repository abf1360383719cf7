package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/marmos91/dfsck/pkg/namespace"
	"github.com/marmos91/dfsck/pkg/namespace/memory"
	"github.com/marmos91/dfsck/pkg/namespace/namespacetest"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) seed(records ...namespace.FileRecord) {
	for _, rec := range records {
		s.Require().NoError(s.store.CreateFile(s.ctx, rec))
	}
}

func (s *StoreSuite) TestResolveRoot() {
	entry, err := s.store.Resolve(s.ctx, "/")
	s.Require().NoError(err)
	s.Equal("/", entry.Path)
	s.Equal(namespace.KindDirectory, entry.Kind)
}

func (s *StoreSuite) TestResolveNotFound() {
	_, err := s.store.Resolve(s.ctx, "/missing")
	s.True(namespace.IsNotFound(err))
}

func (s *StoreSuite) TestCreateFileCreatesParents() {
	s.seed(namespacetest.File("/srcdat/audio/audio1", 2, 1024))

	entry, err := s.store.Resolve(s.ctx, "/srcdat/audio")
	s.Require().NoError(err)
	s.Equal(namespace.KindDirectory, entry.Kind)

	entry, err = s.store.Resolve(s.ctx, "/srcdat/audio/audio1")
	s.Require().NoError(err)
	s.Equal(namespace.KindFile, entry.Kind)
}

func (s *StoreSuite) TestCreateFileDuplicate() {
	s.seed(namespacetest.File("/srcdat/file1", 1, 512))

	err := s.store.CreateFile(s.ctx, namespacetest.File("/srcdat/file1", 1, 512))
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrAlreadyExists, code)
}

func (s *StoreSuite) TestListChildrenSorted() {
	s.seed(
		namespacetest.File("/srcdat/zebra", 1, 1),
		namespacetest.File("/srcdat/alpha", 1, 1),
		namespacetest.File("/srcdat/mango", 1, 1),
	)

	children, err := s.store.ListChildren(s.ctx, "/srcdat")
	s.Require().NoError(err)
	s.Require().Len(children, 3)
	s.Equal("/srcdat/alpha", children[0].Path)
	s.Equal("/srcdat/mango", children[1].Path)
	s.Equal("/srcdat/zebra", children[2].Path)
}

func (s *StoreSuite) TestListChildrenOnFile() {
	s.seed(namespacetest.File("/srcdat/file1", 1, 1))

	_, err := s.store.ListChildren(s.ctx, "/srcdat/file1")
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrNotDirectory, code)
}

func (s *StoreSuite) TestGetBlockLocationsReturnsCopy() {
	s.seed(namespacetest.File("/srcdat/file1", 2, 1024, 2048))

	rec, err := s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.Require().Len(rec.Blocks, 2)
	s.Equal(int64(3072), rec.Length)

	// Mutating the returned record must not leak into the store.
	rec.Blocks[0].Replicas[0].Corrupt = true

	again, err := s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.False(again.Blocks[0].Replicas[0].Corrupt)
}

func (s *StoreSuite) TestGetBlockLocationsOnDirectory() {
	s.Require().NoError(s.store.MkdirAll(s.ctx, "/srcdat"))

	_, err := s.store.GetBlockLocations(s.ctx, "/srcdat")
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrIsDirectory, code)
}

func (s *StoreSuite) TestMkdirAllIdempotent() {
	s.Require().NoError(s.store.MkdirAll(s.ctx, "/a/b/c"))
	s.Require().NoError(s.store.MkdirAll(s.ctx, "/a/b/c"))

	entry, err := s.store.Resolve(s.ctx, "/a/b/c")
	s.Require().NoError(err)
	s.Equal(namespace.KindDirectory, entry.Kind)
}

func (s *StoreSuite) TestRenameFile() {
	s.seed(namespacetest.File("/srcdat/file1", 1, 100))
	s.Require().NoError(s.store.MkdirAll(s.ctx, "/srcdat/lost+found"))

	s.Require().NoError(s.store.Rename(s.ctx, "/srcdat/file1", "/srcdat/lost+found/file1"))

	_, err := s.store.Resolve(s.ctx, "/srcdat/file1")
	s.True(namespace.IsNotFound(err))

	rec, err := s.store.GetBlockLocations(s.ctx, "/srcdat/lost+found/file1")
	s.Require().NoError(err)
	s.Equal("/srcdat/lost+found/file1", rec.Path)
	s.Equal(int64(100), rec.Length)
}

func (s *StoreSuite) TestRenamePreservesEntryID() {
	s.seed(namespacetest.File("/srcdat/file1", 1, 100))

	before, err := s.store.Resolve(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Rename(s.ctx, "/srcdat/file1", "/srcdat/file2"))

	after, err := s.store.Resolve(s.ctx, "/srcdat/file2")
	s.Require().NoError(err)
	s.Equal(before.ID, after.ID)
}

func (s *StoreSuite) TestRenameDirectorySubtree() {
	s.seed(
		namespacetest.File("/srcdat/audio/audio1", 1, 10),
		namespacetest.File("/srcdat/audio/audio2", 1, 20),
	)

	s.Require().NoError(s.store.Rename(s.ctx, "/srcdat/audio", "/srcdat/sound"))

	_, err := s.store.Resolve(s.ctx, "/srcdat/audio/audio1")
	s.True(namespace.IsNotFound(err))

	children, err := s.store.ListChildren(s.ctx, "/srcdat/sound")
	s.Require().NoError(err)
	s.Require().Len(children, 2)
	s.Equal("/srcdat/sound/audio1", children[0].Path)
	s.Equal("/srcdat/sound/audio2", children[1].Path)
}

func (s *StoreSuite) TestRenameIntoOwnSubtree() {
	s.Require().NoError(s.store.MkdirAll(s.ctx, "/a/b"))

	err := s.store.Rename(s.ctx, "/a", "/a/b/a")
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrInvalidArgument, code)
}

func (s *StoreSuite) TestRenameOccupiedDestination() {
	s.seed(
		namespacetest.File("/srcdat/file1", 1, 1),
		namespacetest.File("/srcdat/file2", 1, 1),
	)

	err := s.store.Rename(s.ctx, "/srcdat/file1", "/srcdat/file2")
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrAlreadyExists, code)
}

func (s *StoreSuite) TestListCorruptFiles() {
	s.seed(
		namespacetest.File("/srcdat/healthy", 2, 100),
		namespacetest.File("/srcdat/corrupt", 2, 100),
		namespacetest.File("/srcdat/open", 2, 100),
	)
	s.Require().NoError(s.store.MarkBlockCorrupt(s.ctx, "/srcdat/corrupt", 0))
	s.Require().NoError(s.store.MarkBlockCorrupt(s.ctx, "/srcdat/open", 0))
	s.Require().NoError(s.store.SetOpenForWrite(s.ctx, "/srcdat/open", true))

	paths, err := s.store.ListCorruptFiles(s.ctx)
	s.Require().NoError(err)
	// Files under construction never appear in the corrupt index.
	s.Equal([]string{"/srcdat/corrupt"}, paths)
}

func (s *StoreSuite) TestUnavailable() {
	s.seed(namespacetest.File("/srcdat/file1", 1, 1))
	s.store.SetUnavailable(true)

	_, err := s.store.Resolve(s.ctx, "/srcdat/file1")
	s.True(namespace.IsUnavailable(err))
	s.True(namespace.IsUnavailable(s.store.Healthcheck(s.ctx)))

	s.store.SetUnavailable(false)
	s.NoError(s.store.Healthcheck(s.ctx))
}

func (s *StoreSuite) TestSimulationMutators() {
	s.seed(namespacetest.File("/srcdat/file1", 3, 100))

	s.Require().NoError(s.store.SetNodeLive(s.ctx, "node-2", false))
	rec, err := s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.False(rec.Blocks[0].Replicas[1].Live)

	s.Require().NoError(s.store.MarkReplicaCorrupt(s.ctx, "/srcdat/file1", 0, "node-1"))
	rec, err = s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.True(rec.Blocks[0].Replicas[0].Corrupt)

	s.Require().NoError(s.store.RemoveBlockReplicas(s.ctx, "/srcdat/file1", 0))
	rec, err = s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.Empty(rec.Blocks[0].Replicas)

	s.Require().NoError(s.store.SetBlockLength(s.ctx, "/srcdat/file1", 0, -1))
	rec, err = s.store.GetBlockLocations(s.ctx, "/srcdat/file1")
	s.Require().NoError(err)
	s.Equal(int64(-1), rec.Blocks[0].Length)

	err = s.store.MarkReplicaCorrupt(s.ctx, "/srcdat/file1", 5, "node-1")
	code, ok := namespace.CodeOf(err)
	s.Require().True(ok)
	s.Equal(namespace.ErrInvalidArgument, code)
}
