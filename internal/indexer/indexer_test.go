package indexer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/database"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
)

func testStore(t *testing.T) *database.Database {
	t.Helper()
	d, err := database.New(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitComplete(t *testing.T, ch <-chan Completion) Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not complete")
		return Completion{}
	}
}

func TestScanEndToEnd(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	root := t.TempDir()

	writeStub(t, filepath.Join(root, "movies", "x.mp4"))
	writePNG(t, filepath.Join(root, "movies", "sub", "y.png"), 200, 100)
	writeStub(t, filepath.Join(root, "notes.txt")) // not media

	var mu sync.Mutex
	var events []Progress
	done := make(chan Completion, 1)

	ix := New(store, Options{
		OnProgress: func(p Progress) {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		},
		OnComplete: func(c Completion) { done <- c },
	})

	if err := ix.Start(context.Background(), []string{root}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c := waitComplete(t, done)
	if c.State != StateCompleted {
		t.Errorf("completion state = %s, want completed", c.State)
	}
	if c.Persisted != 2 {
		t.Errorf("persisted = %d, want 2", c.Persisted)
	}
	if ix.State() != StateCompleted {
		t.Errorf("indexer state = %s, want completed", ix.State())
	}

	// Final progress event has an empty current path and full counts
	mu.Lock()
	last := events[len(events)-1]
	mu.Unlock()
	if last.CurrentPath != "" {
		t.Errorf("final progress CurrentPath = %q, want empty", last.CurrentPath)
	}
	if last.Processed != 2 || last.Total != 2 {
		t.Errorf("final progress = %d/%d, want 2/2", last.Processed, last.Total)
	}

	// Records landed with the right kinds and dimensions
	ctx := context.Background()
	recs, err := store.QueryMediaRecords(ctx, database.QueryOptions{})
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("stored %d records, want 2", len(recs))
	}
	byName := map[string]database.MediaRecord{}
	for _, r := range recs {
		byName[r.Name] = r
	}
	if byName["x.mp4"].Kind != mediatypes.KindVideo {
		t.Errorf("x.mp4 kind = %s", byName["x.mp4"].Kind)
	}
	img := byName["y.png"]
	if img.Kind != mediatypes.KindImage {
		t.Errorf("y.png kind = %s", img.Kind)
	}
	if img.Width == nil || *img.Width != 200 || img.Height == nil || *img.Height != 100 {
		t.Errorf("y.png dimensions = %v x %v, want 200x100", img.Width, img.Height)
	}

	// Categories derive from the stored folder layout
	labels, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	want := map[string]bool{"movies": true, "movies > sub": true}
	if len(labels) != 2 || !want[labels[0]] || !want[labels[1]] {
		t.Errorf("categories = %v", labels)
	}
}

func TestStartWithNoRoots(t *testing.T) {
	t.Parallel()
	ix := New(testStore(t), Options{})

	if err := ix.Start(context.Background(), nil); err != ErrNoRoots {
		t.Errorf("Start() error = %v, want ErrNoRoots", err)
	}
	if ix.State() != StateIdle {
		t.Errorf("state = %s, want idle", ix.State())
	}
}

func TestStartUsesStoredRoots(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	root := t.TempDir()
	writeStub(t, filepath.Join(root, "a.mp4"))

	if _, err := store.AddRootFolder(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	done := make(chan Completion, 1)
	ix := New(store, Options{OnComplete: func(c Completion) { done <- c }})

	// No explicit roots: the registered root is scanned.
	if err := ix.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c := waitComplete(t, done)
	if c.State != StateCompleted || c.Persisted != 1 {
		t.Errorf("completion = %+v", c)
	}
}

func TestSecondStartWhileActive(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	root := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		writeStub(t, filepath.Join(root, name))
	}

	gate := make(chan struct{})
	var once sync.Once
	done := make(chan Completion, 1)

	ix := New(store, Options{
		OnProgress: func(Progress) {
			// Hold the scan on its first event so the second Start
			// observes it active.
			once.Do(func() { <-gate })
		},
		OnComplete: func(c Completion) { done <- c },
	})

	if err := ix.Start(context.Background(), []string{root}); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	deadline := time.After(10 * time.Second)
	for ix.State() != StateScanning {
		select {
		case <-deadline:
			t.Fatal("scan never became active")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := ix.Start(context.Background(), []string{root}); err != ErrScanActive {
		t.Errorf("second Start() error = %v, want ErrScanActive", err)
	}

	close(gate)
	waitComplete(t, done)

	// A finished scan can be started again
	if err := ix.Start(context.Background(), []string{root}); err != nil {
		t.Errorf("restart after completion error = %v", err)
	}
	waitComplete(t, done)
}

func TestCancelStopsNewFiles(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeStub(t, filepath.Join(root, string(rune('a'+i))+".mp4"))
	}

	done := make(chan Completion, 1)
	var ix *Indexer
	ix = New(store, Options{
		OnProgress: func(p Progress) {
			if p.Processed == 3 {
				ix.Cancel()
			}
		},
		OnComplete: func(c Completion) { done <- c },
	})

	if err := ix.Start(context.Background(), []string{root}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c := waitComplete(t, done)
	if c.State != StateCancelled {
		t.Errorf("completion state = %s, want cancelled", c.State)
	}
	if c.Persisted >= 20 {
		t.Errorf("persisted = %d, cancellation should have stopped the run early", c.Persisted)
	}

	// Every persisted record is fully in the store; cancellation never
	// leaves partial rows.
	count, err := store.GetMediaCount(context.Background(), database.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if count != c.Persisted {
		t.Errorf("store holds %d records, completion reported %d", count, c.Persisted)
	}
}

func TestScanRegistersRoots(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	root := t.TempDir()
	writeStub(t, filepath.Join(root, "a.mp4"))

	done := make(chan Completion, 1)
	ix := New(store, Options{OnComplete: func(c Completion) { done <- c }})
	if err := ix.Start(context.Background(), []string{root}); err != nil {
		t.Fatal(err)
	}
	waitComplete(t, done)

	roots, err := store.ListRootFolders(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 {
		t.Fatalf("roots = %+v, want the scanned root registered", roots)
	}
}
