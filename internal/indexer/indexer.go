package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/category"
	"github.com/vncgregorio/videoteka-media-center/internal/database"
	"github.com/vncgregorio/videoteka-media-center/internal/extract"
	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/metrics"
	"github.com/vncgregorio/videoteka-media-center/internal/scanner"
)

// Scan lifecycle states.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

var (
	// ErrScanActive is returned when Start is called while a scan is
	// already running. One scan per store instance at a time.
	ErrScanActive = errors.New("a scan is already active")

	// ErrNoRoots is returned when neither the caller nor the store
	// provides any root folder to scan.
	ErrNoRoots = errors.New("no root folders to scan")
)

// Progress is emitted after each file in the processing pass. Processed
// counts successfully persisted records only; skipped files advance the
// tick without advancing the count. The final event before completion
// always carries an empty CurrentPath.
type Progress struct {
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	CurrentPath string `json:"currentPath"`
}

// Completion is emitted exactly once per run, after the final Progress.
type Completion struct {
	State     State         `json:"state"`
	Persisted int           `json:"persisted"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
	Err       error         `json:"-"`
}

// Options configures scan notifications. Callbacks fire on the scan
// goroutine; receivers marshal onto their own context as needed.
type Options struct {
	OnProgress func(Progress)
	OnComplete func(Completion)
}

// Indexer orchestrates library scans: it registers roots, enumerates
// files across them, extracts metadata, and persists records, reporting
// progress as it goes. The two passes run on a background goroutine so
// Start never blocks.
type Indexer struct {
	store     *database.Database
	scanner   *scanner.Scanner
	extractor *extract.Extractor
	opts      Options

	mu       sync.Mutex
	state    State
	progress Progress
	cancel   context.CancelFunc
}

// New returns an idle Indexer writing to store.
func New(store *database.Database, opts Options) *Indexer {
	return &Indexer{
		store:     store,
		scanner:   scanner.New(),
		extractor: extract.New(),
		opts:      opts,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (ix *Indexer) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.state
}

// Progress returns a snapshot of the current scan progress.
func (ix *Indexer) Progress() Progress {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.progress
}

// Start launches a scan over the given roots, or over the store's
// active roots when none are given. Returns ErrScanActive while a scan
// is running and ErrNoRoots when there is nothing to scan; otherwise it
// returns immediately and the scan proceeds in the background.
func (ix *Indexer) Start(ctx context.Context, roots []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.state == StateScanning {
		return ErrScanActive
	}

	if len(roots) == 0 {
		active, err := ix.store.ActiveRootPaths(ctx)
		if err != nil {
			return err
		}
		roots = active
	} else {
		roots = category.CanonicalizeAll(roots)
	}
	if len(roots) == 0 {
		return ErrNoRoots
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ix.cancel = cancel
	ix.state = StateScanning
	ix.progress = Progress{}
	metrics.ScanIsRunning.Set(1)

	go ix.run(runCtx, roots)
	return nil
}

// Cancel requests cooperative cancellation. The file being processed
// finishes; no new file starts afterwards. Safe to call when idle.
func (ix *Indexer) Cancel() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.cancel != nil {
		ix.cancel()
	}
}

func (ix *Indexer) run(ctx context.Context, roots []string) {
	start := time.Now()
	logging.Info("Scan started over %d root(s)", len(roots))

	// Register requested roots; re-adding an existing root is a no-op.
	// Storage failing here fails the whole run, unlike per-file errors.
	for _, root := range roots {
		if _, err := ix.store.AddRootFolder(ctx, root); err != nil {
			ix.finish(Completion{State: StateFailed, Err: err, Elapsed: time.Since(start)})
			return
		}
	}

	// First pass: full enumeration before any extraction, so progress
	// totals are exact.
	files, err := ix.enumerate(ctx, roots)
	if err != nil {
		final := Progress{Processed: 0, Total: len(files), CurrentPath: ""}
		ix.setProgress(final)
		ix.emitProgress(final)
		ix.finish(Completion{State: StateCancelled, Elapsed: time.Since(start)})
		return
	}

	total := len(files)
	metrics.ScanFilesDiscovered.Add(float64(total))
	logging.Info("Scan discovered %d media file(s)", total)

	// Second pass: extract and persist sequentially so cancellation
	// never leaves a half-processed file behind.
	processed, skipped := 0, 0
	cancelled := false
	for _, f := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if ix.processFile(ctx, f) {
			processed++
			metrics.ScanFilesPersisted.Inc()
		} else {
			skipped++
			metrics.ScanFilesSkipped.Inc()
		}
		p := Progress{Processed: processed, Total: total, CurrentPath: f.Path}
		ix.setProgress(p)
		ix.emitProgress(p)
	}

	final := Progress{Processed: processed, Total: total, CurrentPath: ""}
	ix.setProgress(final)
	ix.emitProgress(final)

	state := StateCompleted
	if cancelled || ctx.Err() != nil {
		state = StateCancelled
	}
	logging.Info("Scan %s: %d persisted, %d skipped in %s", state, processed, skipped, time.Since(start).Round(time.Millisecond))
	ix.finish(Completion{State: state, Persisted: processed, Skipped: skipped, Elapsed: time.Since(start)})
}

// enumerate runs the discovery pass. On cancellation the files found so
// far are returned alongside the error.
func (ix *Indexer) enumerate(ctx context.Context, roots []string) ([]scanner.FoundFile, error) {
	out := make(chan scanner.FoundFile, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- ix.scanner.WalkRoots(ctx, roots, out)
	}()

	var files []scanner.FoundFile
	for f := range out {
		files = append(files, f)
	}
	return files, <-errCh
}

// processFile extracts and persists one file. Returns false when the
// file was skipped; no failure here is fatal to the run.
func (ix *Indexer) processFile(ctx context.Context, f scanner.FoundFile) bool {
	rec := database.NewMediaRecord(f.Path)
	if !mediatypes.Valid(rec.Kind) {
		logging.Debug("scan: skipping unclassifiable %s", f.Path)
		return false
	}

	meta, err := ix.extractor.Extract(ctx, f.Path, rec.Kind)
	if err != nil {
		// File vanished between discovery and extraction.
		logging.Warn("scan: skipping %s: %v", f.Path, err)
		return false
	}

	rec.SizeBytes = &meta.SizeBytes
	rec.DurationSeconds = meta.DurationSeconds
	rec.Width = meta.Width
	rec.Height = meta.Height
	rec.DateModified = meta.ModifiedAt

	if err := ix.store.UpsertMediaRecord(ctx, &rec); err != nil {
		logging.Error("scan: persist failed for %s: %v", f.Path, err)
		return false
	}
	if len(meta.Tags) > 0 {
		if err := ix.store.SetRecordMetadata(ctx, rec.ID, meta.Tags); err != nil {
			// Record itself is stored; tags are best-effort.
			logging.Warn("scan: tag persist failed for %s: %v", f.Path, err)
		}
	}
	return true
}

func (ix *Indexer) setProgress(p Progress) {
	ix.mu.Lock()
	ix.progress = p
	ix.mu.Unlock()
}

func (ix *Indexer) emitProgress(p Progress) {
	if ix.opts.OnProgress != nil {
		ix.opts.OnProgress(p)
	}
}

func (ix *Indexer) finish(c Completion) {
	ix.mu.Lock()
	ix.state = c.State
	if ix.cancel != nil {
		ix.cancel()
		ix.cancel = nil
	}
	ix.mu.Unlock()

	metrics.ScanIsRunning.Set(0)
	metrics.ScanRunsTotal.WithLabelValues(string(c.State)).Inc()
	metrics.ScanLastRunTimestamp.SetToCurrentTime()
	metrics.ScanLastRunDuration.Set(c.Elapsed.Seconds())

	if c.Err != nil {
		logging.Error("Scan failed: %v", c.Err)
	}
	if ix.opts.OnComplete != nil {
		ix.opts.OnComplete(c)
	}
}
