package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vncgregorio/videoteka-media-center/internal/category"
	"github.com/vncgregorio/videoteka-media-center/internal/database"
	"github.com/vncgregorio/videoteka-media-center/internal/indexer"
	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/previews"
	"github.com/vncgregorio/videoteka-media-center/internal/startup"
)

// Handlers wires the library store, scan orchestrator, and preview
// cache to the HTTP API.
type Handlers struct {
	db       *database.Database
	previews *previews.Cache
	indexer  *indexer.Indexer

	mu             sync.Mutex
	lastCompletion *indexer.Completion
}

// New builds the handler set and its scan orchestrator. previewCache
// may be nil when previews are disabled.
func New(db *database.Database, previewCache *previews.Cache) *Handlers {
	h := &Handlers{
		db:       db,
		previews: previewCache,
	}
	h.indexer = indexer.New(db, indexer.Options{
		OnComplete: func(c indexer.Completion) {
			h.mu.Lock()
			h.lastCompletion = &c
			h.mu.Unlock()
			if c.State == indexer.StateCompleted && c.Persisted > 0 {
				go h.warmPreviews()
			}
		},
	})
	return h
}

// warmPreviews pre-renders previews for recently indexed visual media
// in the background. Best-effort; errors are handled inside the cache.
func (h *Handlers) warmPreviews() {
	if h.previews == nil {
		return
	}
	ctx := context.Background()

	var items []previews.WarmItem
	for _, kind := range []mediatypes.Kind{mediatypes.KindImage, mediatypes.KindVideo} {
		records, err := h.db.QueryMediaRecords(ctx, database.QueryOptions{Kind: kind, Limit: 500})
		if err != nil {
			logging.Warn("preview warm query: %v", err)
			return
		}
		for _, rec := range records {
			items = append(items, previews.WarmItem{Path: rec.Path, Kind: rec.Kind})
		}
	}
	if n := h.previews.Warm(ctx, items); n > 0 {
		logging.Info("Pre-rendered %d preview(s)", n)
	}
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handlers) RegisterRoutes(r *mux.Router, metricsEnabled bool) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/media", h.listMedia).Methods(http.MethodGet)
	api.HandleFunc("/media", h.deleteMedia).Methods(http.MethodDelete)
	api.HandleFunc("/media/count", h.mediaCount).Methods(http.MethodGet)
	api.HandleFunc("/media/by-category", h.listMediaByCategory).Methods(http.MethodGet)
	api.HandleFunc("/media/{id:[0-9]+}/metadata", h.recordMetadata).Methods(http.MethodGet)
	api.HandleFunc("/media/preview", h.preview).Methods(http.MethodGet)
	api.HandleFunc("/media/open", h.openPath).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)

	api.HandleFunc("/roots", h.listRoots).Methods(http.MethodGet)
	api.HandleFunc("/roots", h.addRoot).Methods(http.MethodPost)
	api.HandleFunc("/roots/{id:[0-9]+}", h.updateRoot).Methods(http.MethodPatch)
	api.HandleFunc("/roots/{id:[0-9]+}", h.removeRoot).Methods(http.MethodDelete)

	api.HandleFunc("/scan", h.startScan).Methods(http.MethodPost)
	api.HandleFunc("/scan", h.scanStatus).Methods(http.MethodGet)
	api.HandleFunc("/scan", h.cancelScan).Methods(http.MethodDelete)

	api.HandleFunc("/prefs/{key}", h.getPreference).Methods(http.MethodGet)
	api.HandleFunc("/prefs/{key}", h.setPreference).Methods(http.MethodPut)

	api.HandleFunc("/library/reset", h.resetLibrary).Methods(http.MethodPost)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/version", h.version).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeStatus maps a store error to a status code: storage failures are
// 500s, everything else a 400.
func storeStatus(err error) int {
	var se *database.StorageError
	if errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func queryOptionsFromRequest(r *http.Request) database.QueryOptions {
	q := r.URL.Query()
	opts := database.QueryOptions{
		FolderPath:   q.Get("folder"),
		NameContains: q.Get("name"),
	}
	if kind := q.Get("kind"); kind != "" {
		opts.Kind = mediatypes.Kind(kind)
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = offset
	}
	return opts
}

func (h *Handlers) listMedia(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.QueryMediaRecords(r.Context(), queryOptionsFromRequest(r))
	if err != nil {
		logging.Error("list media: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) deleteMedia(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	// Stored paths are canonical, so normalize before matching
	ok, err := h.db.DeleteMediaRecord(r.Context(), category.Canonicalize(path))
	if err != nil {
		logging.Error("delete media: %v", err)
		writeError(w, storeStatus(err), "delete failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no record for path")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) mediaCount(w http.ResponseWriter, r *http.Request) {
	opts := database.QueryOptions{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		opts.Kind = mediatypes.Kind(kind)
	}
	count, err := h.db.GetMediaCount(r.Context(), opts)
	if err != nil {
		logging.Error("media count: %v", err)
		writeError(w, storeStatus(err), "count failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handlers) listMediaByCategory(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("category")
	records, err := h.db.QueryMediaRecordsByCategory(r.Context(), label, queryOptionsFromRequest(r))
	if err != nil {
		logging.Error("media by category: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) recordMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	values, err := h.db.GetRecordMetadata(r.Context(), id)
	if err != nil {
		logging.Error("record metadata: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	labels, err := h.db.ListCategories(r.Context())
	if err != nil {
		logging.Error("list categories: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (h *Handlers) preview(w http.ResponseWriter, r *http.Request) {
	if h.previews == nil {
		writeError(w, http.StatusNotImplemented, "previews disabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	rec, err := h.db.GetMediaRecordByPath(r.Context(), category.Canonicalize(path))
	if err != nil {
		logging.Error("preview lookup: %v", err)
		writeError(w, storeStatus(err), "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no record for path")
		return
	}

	file, err := h.previews.Get(r.Context(), rec.Path, rec.Kind)
	if err != nil {
		if errors.Is(err, previews.ErrUnsupported) {
			writeError(w, http.StatusUnsupportedMediaType, "no preview for this kind")
			return
		}
		logging.Error("preview render: %v", err)
		writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, file)
}

// openPath resolves a record to its current on-disk path so the caller
// can hand it to the platform's default handler. The engine itself
// never launches anything.
func (h *Handlers) openPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	rec, err := h.db.GetMediaRecordByPath(r.Context(), category.Canonicalize(path))
	if err != nil {
		logging.Error("open path lookup: %v", err)
		writeError(w, storeStatus(err), "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no record for path")
		return
	}
	if _, err := os.Stat(rec.Path); err != nil {
		writeError(w, http.StatusGone, "file no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path":     rec.Path,
		"mimeType": rec.MimeType,
	})
}

func (h *Handlers) listRoots(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	roots, err := h.db.ListRootFolders(r.Context(), activeOnly)
	if err != nil {
		logging.Error("list roots: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

func (h *Handlers) addRoot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	root, err := h.db.AddRootFolder(r.Context(), body.Path)
	if err != nil {
		logging.Error("add root: %v", err)
		writeError(w, storeStatus(err), "add failed")
		return
	}
	writeJSON(w, http.StatusCreated, root)
}

func (h *Handlers) updateRoot(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	ok, err := h.db.SetRootFolderActive(r.Context(), id, *body.Active)
	if err != nil {
		logging.Error("update root: %v", err)
		writeError(w, storeStatus(err), "update failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no such root")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeRoot(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	ok, err := h.db.RemoveRootFolder(r.Context(), id)
	if err != nil {
		logging.Error("remove root: %v", err)
		writeError(w, storeStatus(err), "remove failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no such root")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) startScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Roots []string `json:"roots"`
	}
	if r.Body != nil {
		// Empty body means "scan registered roots"
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	err := h.indexer.Start(r.Context(), body.Roots)
	switch {
	case errors.Is(err, indexer.ErrScanActive):
		writeError(w, http.StatusConflict, "a scan is already active")
	case errors.Is(err, indexer.ErrNoRoots):
		writeError(w, http.StatusBadRequest, "no roots to scan")
	case err != nil:
		logging.Error("start scan: %v", err)
		writeError(w, storeStatus(err), "scan start failed")
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"state": string(h.indexer.State())})
	}
}

func (h *Handlers) scanStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":    h.indexer.State(),
		"progress": h.indexer.Progress(),
	}
	h.mu.Lock()
	if h.lastCompletion != nil {
		resp["lastRun"] = h.lastCompletion
	}
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) cancelScan(w http.ResponseWriter, r *http.Request) {
	h.indexer.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(h.indexer.State())})
}

func (h *Handlers) getPreference(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	def := r.URL.Query().Get("default")
	value, err := h.db.GetPreference(r.Context(), key, def)
	if err != nil {
		logging.Error("get preference: %v", err)
		writeError(w, storeStatus(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *Handlers) setPreference(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.db.SetPreference(r.Context(), key, body.Value); err != nil {
		logging.Error("set preference: %v", err)
		writeError(w, storeStatus(err), "store failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) resetLibrary(w http.ResponseWriter, r *http.Request) {
	if h.indexer.State() == indexer.StateScanning {
		writeError(w, http.StatusConflict, "cannot reset while a scan is active")
		return
	}
	if err := h.db.ResetLibrary(r.Context()); err != nil {
		logging.Error("reset library: %v", err)
		writeError(w, storeStatus(err), "reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	h.db.UpdateDBMetrics()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, startup.GetBuildInfo())
}
