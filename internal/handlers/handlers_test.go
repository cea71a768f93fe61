package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/vncgregorio/videoteka-media-center/internal/database"
)

func testServer(t *testing.T) (*httptest.Server, *database.Database) {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := mux.NewRouter()
	New(db, nil).RegisterRoutes(r, false)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &reqBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func seed(t *testing.T, db *database.Database, paths ...string) {
	t.Helper()
	for _, p := range paths {
		rec := database.NewMediaRecord(p)
		if err := db.UpsertMediaRecord(context.Background(), &rec); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListMedia(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/b.mp4", "/library/a.mp3")

	var records []database.MediaRecord
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/media", nil, &records); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(records) != 2 || records[0].Name != "a.mp3" {
		t.Errorf("records = %+v", records)
	}

	// Kind filter through the query string
	if doJSON(t, http.MethodGet, srv.URL+"/api/media?kind=audio", nil, &records); len(records) != 1 {
		t.Errorf("audio filter returned %d records", len(records))
	}
}

func TestMediaCount(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/a.mp4", "/library/b.jpg")

	var out map[string]int
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/media/count?kind=image", nil, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out["count"] != 1 {
		t.Errorf("count = %d, want 1", out["count"])
	}
}

func TestDeleteMedia(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/a.mp4")

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/media?path=/library/a.mp4", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/media?path=/library/a.mp4", nil, nil); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}

func TestRootsLifecycle(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	var root database.RootFolder
	code := doJSON(t, http.MethodPost, srv.URL+"/api/roots", map[string]string{"path": "/library"}, &root)
	if code != http.StatusCreated {
		t.Fatalf("add root status = %d", code)
	}
	if root.Path != "/library" || !root.Active {
		t.Errorf("root = %+v", root)
	}

	var roots []database.RootFolder
	doJSON(t, http.MethodGet, srv.URL+"/api/roots", nil, &roots)
	if len(roots) != 1 {
		t.Fatalf("roots = %+v", roots)
	}

	active := false
	code = doJSON(t, http.MethodPatch, srv.URL+"/api/roots/1", map[string]*bool{"active": &active}, nil)
	if code != http.StatusNoContent {
		t.Errorf("patch status = %d", code)
	}

	doJSON(t, http.MethodGet, srv.URL+"/api/roots", nil, &roots)
	if len(roots) != 0 {
		t.Errorf("active roots after deactivation = %+v", roots)
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/roots?all=1", nil, &roots)
	if len(roots) != 1 {
		t.Errorf("all roots = %+v", roots)
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/roots/99", nil, nil); code != http.StatusNotFound {
		t.Errorf("delete missing root status = %d", code)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/movies/a.mp4", "/library/music/b.mp3")
	doJSON(t, http.MethodPost, srv.URL+"/api/roots", map[string]string{"path": "/library"}, nil)

	var labels []string
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/categories", nil, &labels); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(labels) != 2 || labels[0] != "movies" || labels[1] != "music" {
		t.Errorf("labels = %v", labels)
	}

	var records []database.MediaRecord
	doJSON(t, http.MethodGet, srv.URL+"/api/media/by-category?category=music", nil, &records)
	if len(records) != 1 || records[0].Name != "b.mp3" {
		t.Errorf("by-category = %+v", records)
	}
}

func TestScanEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	// Nothing registered and no roots in the request
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/scan", nil, nil); code != http.StatusBadRequest {
		t.Errorf("scan with no roots status = %d, want 400", code)
	}

	var status map[string]interface{}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/scan", nil, &status); code != http.StatusOK {
		t.Fatalf("scan status code = %d", code)
	}
	if status["state"] != "idle" {
		t.Errorf("state = %v, want idle", status["state"])
	}

	// Cancel when idle is harmless
	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/scan", nil, nil); code != http.StatusAccepted {
		t.Errorf("cancel status = %d", code)
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	var out map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/api/prefs/theme?default=dark", nil, &out)
	if out["value"] != "dark" {
		t.Errorf("default value = %q", out["value"])
	}

	code := doJSON(t, http.MethodPut, srv.URL+"/api/prefs/theme", map[string]string{"value": "light"}, nil)
	if code != http.StatusNoContent {
		t.Errorf("put status = %d", code)
	}

	doJSON(t, http.MethodGet, srv.URL+"/api/prefs/theme", nil, &out)
	if out["value"] != "light" {
		t.Errorf("stored value = %q", out["value"])
	}
}

func TestResetLibrary(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/a.mp4")

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/library/reset", nil, nil); code != http.StatusNoContent {
		t.Fatalf("reset status = %d", code)
	}
	count, err := db.GetMediaCount(context.Background(), database.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count after reset = %d", count)
	}
}

func TestHealthAndVersion(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	var health map[string]string
	if code := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &health); code != http.StatusOK {
		t.Errorf("healthz status = %d", code)
	}
	if health["status"] != "ok" {
		t.Errorf("healthz = %v", health)
	}

	var info map[string]interface{}
	doJSON(t, http.MethodGet, srv.URL+"/version", nil, &info)
	if info["version"] == "" {
		t.Errorf("version = %v", info)
	}
}

func TestOpenPath(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)

	// A record whose file actually exists on disk
	real := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(real, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed(t, db, real, "/library/gone.mp4")

	var out map[string]string
	code := doJSON(t, http.MethodGet, srv.URL+"/api/media/open?path="+url.QueryEscape(real), nil, &out)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out["path"] != real || out["mimeType"] != "video/mp4" {
		t.Errorf("open = %v", out)
	}

	// Indexed but deleted from disk
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/media/open?path=/library/gone.mp4", nil, nil); code != http.StatusGone {
		t.Errorf("missing file status = %d, want 410", code)
	}

	// Never indexed
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/media/open?path=/nope.mp4", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown record status = %d, want 404", code)
	}
}

func TestPreviewDisabled(t *testing.T) {
	t.Parallel()
	srv, db := testServer(t)
	seed(t, db, "/library/a.jpg")

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/media/preview?path=/library/a.jpg", nil, nil); code != http.StatusNotImplemented {
		t.Errorf("preview status = %d, want 501", code)
	}
}
