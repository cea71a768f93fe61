package category

import (
	"path/filepath"
	"sort"
	"strings"
)

// Separator joins the path components of a category label.
const Separator = " > "

// Canonicalize resolves a path to an absolute, symlink-normalized form so
// that equivalent paths expressed differently always compare equal. Paths
// that do not exist are still normalized to a cleaned absolute form.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// CanonicalizeAll canonicalizes every path in the slice, preserving order.
func CanonicalizeAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = Canonicalize(p)
	}
	return out
}

// Of derives the category label for a folder relative to the given root
// paths. The first root containing the folder wins, so root order is
// significant and must match the order roots are listed elsewhere. A folder
// that is itself a root, or that lies under no root, has no category and
// ok is false.
func Of(folderPath string, rootPaths []string) (label string, ok bool) {
	folder := Canonicalize(folderPath)

	for _, root := range rootPaths {
		root = Canonicalize(root)

		rel, err := filepath.Rel(root, folder)
		if err != nil {
			continue
		}
		if rel == "." {
			// The root itself carries no category.
			return "", false
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		parts := strings.Split(rel, string(filepath.Separator))
		return strings.Join(parts, Separator), true
	}

	return "", false
}

// List returns the distinct category labels derived from the given folder
// paths, sorted lexicographically ascending. Folders without a category are
// dropped.
func List(folderPaths, rootPaths []string) []string {
	seen := make(map[string]struct{})
	for _, folder := range folderPaths {
		if label, ok := Of(folder, rootPaths); ok {
			seen[label] = struct{}{}
		}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Match returns the subset of folderPaths whose derived category equals
// label exactly. Original (non-canonicalized) folder paths are returned so
// callers can use them directly in store filters.
func Match(label string, folderPaths, rootPaths []string) []string {
	var matched []string
	for _, folder := range folderPaths {
		if got, ok := Of(folder, rootPaths); ok && got == label {
			matched = append(matched, folder)
		}
	}
	return matched
}
