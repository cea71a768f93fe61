package category

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestOf tests category derivation against non-existent absolute paths;
// canonicalization must fall back to cleaned absolute paths when symlink
// resolution is impossible.
func TestOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		folder string
		roots  []string
		want   string
		ok     bool
	}{
		{
			name:   "one level",
			folder: "/r/movies",
			roots:  []string{"/r"},
			want:   "movies",
			ok:     true,
		},
		{
			name:   "two levels",
			folder: "/r/a/b",
			roots:  []string{"/r"},
			want:   "a > b",
			ok:     true,
		},
		{
			name:   "deep nesting",
			folder: "/r/investments/stocks/tech",
			roots:  []string{"/r"},
			want:   "investments > stocks > tech",
			ok:     true,
		},
		{
			name:   "folder is the root",
			folder: "/r",
			roots:  []string{"/r"},
			ok:     false,
		},
		{
			name:   "outside any root",
			folder: "/other",
			roots:  []string{"/r"},
			ok:     false,
		},
		{
			name:   "sibling with shared prefix is not contained",
			folder: "/r-extra/x",
			roots:  []string{"/r"},
			ok:     false,
		},
		{
			name:   "first containing root wins",
			folder: "/a/b/c",
			roots:  []string{"/a", "/a/b"},
			want:   "b > c",
			ok:     true,
		},
		{
			name:   "second root used when first does not contain",
			folder: "/b/x",
			roots:  []string{"/a", "/b"},
			want:   "x",
			ok:     true,
		},
		{
			name:   "no roots",
			folder: "/r/a",
			roots:  nil,
			ok:     false,
		},
		{
			name:   "unclean paths agree",
			folder: "/r//a/./b",
			roots:  []string{"/r/"},
			want:   "a > b",
			ok:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Of(tt.folder, tt.roots)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Of(%q, %v) = (%q, %v), want (%q, %v)",
					tt.folder, tt.roots, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestOfSymlinkedRoot verifies that a folder addressed through a symlink
// resolves to the same category as its real path.
func TestOfSymlinkedRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	real := filepath.Join(dir, "library")
	if err := os.MkdirAll(filepath.Join(real, "movies"), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	got, ok := Of(filepath.Join(link, "movies"), []string{real})
	if !ok || got != "movies" {
		t.Errorf("Of(symlinked folder) = (%q, %v), want (movies, true)", got, ok)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	folders := []string{
		"/r/movies",
		"/r/movies/sub",
		"/r/audio",
		"/r", // the root itself, no category
		"/elsewhere/x",
	}

	got := List(folders, []string{"/r"})
	want := []string{"audio", "movies", "movies > sub"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	if got := List(nil, []string{"/r"}); len(got) != 0 {
		t.Errorf("List(nil) = %v, want empty", got)
	}
	if got := List([]string{"/r"}, []string{"/r"}); len(got) != 0 {
		t.Errorf("List(root only) = %v, want empty", got)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	folders := []string{"/r/movies", "/r/movies/sub", "/r/audio"}
	got := Match("movies", folders, []string{"/r"})
	want := []string{"/r/movies"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match(movies) = %v, want %v", got, want)
	}

	got = Match("movies > sub", folders, []string{"/r"})
	want = []string{"/r/movies/sub"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match(movies > sub) = %v, want %v", got, want)
	}

	if got := Match("absent", folders, []string{"/r"}); got != nil {
		t.Errorf("Match(absent) = %v, want nil", got)
	}
}
