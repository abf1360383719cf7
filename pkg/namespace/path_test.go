package namespace

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"root", "/", nil},
		{"single segment", "/srcdat", []string{"srcdat"}},
		{"nested", "/srcdat/audio/audio1", []string{"srcdat", "audio", "audio1"}},
		{"trailing slash", "/srcdat/", []string{"srcdat"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPath(tt.path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	if got := JoinPath(); got != "/" {
		t.Errorf("JoinPath() = %q, want /", got)
	}
	if got := JoinPath("a", "b"); got != "/a/b" {
		t.Errorf("JoinPath(a, b) = %q, want /a/b", got)
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/a/b/", "/a/b"},
		{"a/b", "/a/b"},
		{"//a//b", "/a/b"},
	}

	for _, tt := range tests {
		if got := CleanPath(tt.path); got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/srcdat", true},
		{"/srcdat/file1", true},
		{"", false},
		{"relative/path", false},
		{"/a//b", false},
		{"/a/./b", false},
		{"/a/../b", false},
	}

	for _, tt := range tests {
		if got := IsValidPath(tt.path); got != tt.want {
			t.Errorf("IsValidPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParentPathAndBaseName(t *testing.T) {
	tests := []struct {
		path   string
		parent string
		base   string
	}{
		{"/", "/", ""},
		{"/srcdat", "/", "srcdat"},
		{"/srcdat/audio/audio1", "/srcdat/audio", "audio1"},
	}

	for _, tt := range tests {
		if got := ParentPath(tt.path); got != tt.parent {
			t.Errorf("ParentPath(%q) = %q, want %q", tt.path, got, tt.parent)
		}
		if got := BaseName(tt.path); got != tt.base {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.base)
		}
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want bool
	}{
		{"path equals root", "/srcdat", "/srcdat", true},
		{"direct child", "/srcdat", "/srcdat/file1", true},
		{"deep descendant", "/", "/a/b/c", true},
		{"sibling", "/srcdat", "/other", false},
		// Segment matching: a raw string-prefix comparison would get
		// these wrong.
		{"prefix-distinct sibling", "/audio", "/audiobook", false},
		{"prefix-distinct nested", "/srcdat/audio", "/srcdat/audiobook/file", false},
		{"root above path", "/a/b", "/a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnder(tt.root, tt.path); got != tt.want {
				t.Errorf("IsUnder(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
			}
		})
	}
}

func TestRelativeTo(t *testing.T) {
	rel, ok := RelativeTo("/srcdat", "/srcdat/audio/audio1")
	if !ok {
		t.Fatal("RelativeTo returned false for a descendant")
	}
	if want := []string{"audio", "audio1"}; !reflect.DeepEqual(rel, want) {
		t.Errorf("RelativeTo = %v, want %v", rel, want)
	}

	if _, ok := RelativeTo("/audio", "/audiobook"); ok {
		t.Error("RelativeTo treated a prefix-distinct sibling as a descendant")
	}

	rel, ok = RelativeTo("/srcdat", "/srcdat")
	if !ok || len(rel) != 0 {
		t.Errorf("RelativeTo(root, root) = %v, %v, want empty, true", rel, ok)
	}
}
