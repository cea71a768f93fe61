package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterCapturesStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // second call ignored
	if _, err := rw.Write([]byte("missing")); err != nil {
		t.Fatal(err)
	}

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}
	if rw.bytesWritten != 7 {
		t.Errorf("bytesWritten = %d, want 7", rw.bytesWritten)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("recorded code = %d", rec.Code)
	}
}

func TestResponseWriterImplicitOK(t *testing.T) {
	t.Parallel()

	rw := newResponseWriter(httptest.NewRecorder())
	if _, err := rw.Write([]byte("ok")); err != nil {
		t.Fatal(err)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rw.statusCode)
	}
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	t.Parallel()

	handler := Logging(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestMetricsMiddlewareSkipsPaths(t *testing.T) {
	t.Parallel()

	called := false
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !called {
		t.Error("skipped path should still reach the handler")
	}
}

func TestSkipLogging(t *testing.T) {
	t.Parallel()

	cfg := DefaultLoggingConfig()
	tests := []struct {
		path string
		want bool
	}{
		{"/healthz", true},
		{"/metrics", true},
		{"/api/media", false},
	}
	for _, tt := range tests {
		if got := skipLogging(cfg, tt.path); got != tt.want {
			t.Errorf("skipLogging(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
