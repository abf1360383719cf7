package namespace

import "strings"

// Path handling is segment-based throughout the checker. Matching paths by
// raw string prefix would make "/audiobook" look like a descendant of
// "/audio"; every containment and relativization decision below compares
// whole segments instead.

// RootPath is the namespace root.
const RootPath = "/"

// SplitPath splits an absolute path into its name segments.
// SplitPath("/") returns an empty slice.
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// JoinPath assembles name segments into an absolute path.
// JoinPath() returns "/".
func JoinPath(segments ...string) string {
	if len(segments) == 0 {
		return RootPath
	}
	return "/" + strings.Join(segments, "/")
}

// CleanPath normalizes a path to the canonical "/a/b/c" form.
func CleanPath(path string) string {
	return JoinPath(SplitPath(path)...)
}

// IsValidPath reports whether path is a usable absolute namespace path:
// non-empty, rooted, with no empty segments.
func IsValidPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	if path == RootPath {
		return true
	}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// ParentPath returns the parent directory path of path.
// The parent of "/" is "/".
func ParentPath(path string) string {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return RootPath
	}
	return JoinPath(segments[:len(segments)-1]...)
}

// BaseName returns the final name segment of path, or "" for the root.
func BaseName(path string) string {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// IsUnder reports whether path is root itself or a descendant of root,
// compared segment by segment.
func IsUnder(root, path string) bool {
	rootSegs := SplitPath(root)
	pathSegs := SplitPath(path)
	if len(pathSegs) < len(rootSegs) {
		return false
	}
	for i, seg := range rootSegs {
		if pathSegs[i] != seg {
			return false
		}
	}
	return true
}

// RelativeTo returns the segments of path below root.
// The second return is false when path is not under root.
func RelativeTo(root, path string) ([]string, bool) {
	if !IsUnder(root, path) {
		return nil, false
	}
	rootSegs := SplitPath(root)
	pathSegs := SplitPath(path)
	return pathSegs[len(rootSegs):], true
}
