package fsck

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/marmos91/dfsck/internal/logger"
	"github.com/marmos91/dfsck/pkg/namespace"
	"github.com/marmos91/dfsck/pkg/namespace/memory"
	"github.com/marmos91/dfsck/pkg/namespace/namespacetest"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  string
	}{
		{
			name:  "zero",
			count: 0,
			want: "Unable to locate any corrupt files under '/srcdat'.\n\n" +
				"Please run a complete fsck to confirm if '/srcdat' is HEALTHY",
		},
		{
			name:  "singular",
			count: 1,
			want:  "There is at least 1 corrupt file under '/srcdat', which is CORRUPT",
		},
		{
			name:  "plural",
			count: 3,
			want:  "There are at least 3 corrupt files under '/srcdat', which is CORRUPT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.count, "/srcdat")
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Summarize(%d) = %q, want %q", tt.count, got, tt.want)
			}
		})
	}
}

func TestSummarizeNegativeCount(t *testing.T) {
	_, err := Summarize(-1, "/srcdat")
	code, ok := namespace.CodeOf(err)
	if !ok || code != namespace.ErrInvalidArgument {
		t.Fatalf("Summarize(-1) error = %v, want ErrInvalidArgument", err)
	}
}

func TestListCorrupt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	namespacetest.Seed(t, store,
		namespacetest.File("/srcdat/healthy", 2, 100),
		namespacetest.File("/srcdat/bad1", 2, 100),
		namespacetest.File("/srcdat/sub/bad2", 2, 100),
		namespacetest.File("/elsewhere/bad3", 2, 100),
	)
	if err := store.MarkBlockCorrupt(ctx, "/srcdat/bad1", 0); err != nil {
		t.Fatal(err)
	}
	if err := store.RemoveBlockReplicas(ctx, "/srcdat/sub/bad2", 0); err != nil {
		t.Fatal(err)
	}
	// Corruption outside the target subtree never leaks into the listing.
	if err := store.MarkBlockCorrupt(ctx, "/elsewhere/bad3", 0); err != nil {
		t.Fatal(err)
	}

	lister := NewLister(store, logger.Nop())
	listing, err := lister.ListCorrupt(ctx, "/srcdat")
	if err != nil {
		t.Fatalf("ListCorrupt: %v", err)
	}

	want := []string{"/srcdat/bad1", "/srcdat/sub/bad2"}
	if !reflect.DeepEqual(listing.Paths, want) {
		t.Errorf("paths = %v, want %v", listing.Paths, want)
	}
	if listing.ExitCode() != ExitCorrupt {
		t.Errorf("exit code = %d, want %d", listing.ExitCode(), ExitCorrupt)
	}
}

func TestListCorruptExcludesQuarantineAndOpenFiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	namespacetest.Seed(t, store,
		namespacetest.File("/srcdat/lost+found/old", 2, 100),
		namespacetest.File("/srcdat/open", 2, 100),
	)
	if err := store.MarkBlockCorrupt(ctx, "/srcdat/lost+found/old", 0); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkBlockCorrupt(ctx, "/srcdat/open", 0); err != nil {
		t.Fatal(err)
	}
	if err := store.SetOpenForWrite(ctx, "/srcdat/open", true); err != nil {
		t.Fatal(err)
	}

	lister := NewLister(store, logger.Nop())
	listing, err := lister.ListCorrupt(ctx, "/srcdat")
	if err != nil {
		t.Fatalf("ListCorrupt: %v", err)
	}

	if len(listing.Paths) != 0 {
		t.Errorf("paths = %v, want none", listing.Paths)
	}
	if listing.ExitCode() != ExitHealthy {
		t.Errorf("exit code = %d, want %d", listing.ExitCode(), ExitHealthy)
	}
}

func TestCorruptListingRender(t *testing.T) {
	listing := &CorruptListing{
		Target: "/srcdat",
		Paths:  []string{"/srcdat/bad1", "/srcdat/bad2"},
	}

	var out bytes.Buffer
	if err := listing.Render(&out); err != nil {
		t.Fatalf("Render: %v", err)
	}

	text := out.String()
	if !strings.HasPrefix(text, "/srcdat/bad1\n/srcdat/bad2\n") {
		t.Errorf("paths not listed first:\n%s", text)
	}
	if !strings.Contains(text, "There are at least 2 corrupt files under '/srcdat', which is CORRUPT") {
		t.Errorf("summary sentence missing:\n%s", text)
	}
}
