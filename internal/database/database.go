package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// StorageError wraps underlying storage failures (disk full, corruption,
// lock timeouts) so callers can distinguish them from per-item scan
// failures, which are never surfaced.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err in a StorageError unless it is nil.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Database manages all persistent state for the media library: media
// records, root folders, per-record metadata, and preferences.
//
// Writes are serialized through an internal lock; reads may proceed
// concurrently while a scan is writing (WAL mode).
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates a new Database instance. dbPath is the full path to the
// database file; its parent directory is created if missing.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("create database directory", err)
		}
	}

	// WAL mode allows concurrent readers while a scan is writing;
	// busy_timeout prevents "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, storageErr("connect to database", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, storageErr("initialize schema", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Media records, one row per indexed file
	CREATE TABLE IF NOT EXISTS media_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER,
		duration REAL,
		width INTEGER,
		height INTEGER,
		folder_path TEXT NOT NULL,
		thumbnail_ref TEXT,
		mime_type TEXT,
		date_added INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		date_modified INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_media_files_type ON media_files(file_type);
	CREATE INDEX IF NOT EXISTS idx_media_files_folder ON media_files(folder_path);
	CREATE INDEX IF NOT EXISTS idx_media_files_name ON media_files(file_name COLLATE NOCASE);

	-- User-registered scan roots
	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_path TEXT NOT NULL UNIQUE,
		is_active INTEGER NOT NULL DEFAULT 1,
		date_added INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Per-record key/value metadata (audio tags and the like)
	CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		media_file_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		value TEXT,
		FOREIGN KEY (media_file_id) REFERENCES media_files(id) ON DELETE CASCADE,
		UNIQUE(media_file_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_metadata_file ON metadata(media_file_id);

	-- Process-wide preferences; survive library resets
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// ResetLibrary deletes all media records, root folders, and per-record
// metadata in a single transaction. Preferences are untouched. A failure
// partway rolls back, so readers never observe a partially cleared store.
func (d *Database) ResetLibrary(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("reset_library", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("reset library: begin", err)
	}

	for _, stmt := range []string{
		"DELETE FROM metadata",
		"DELETE FROM media_files",
		"DELETE FROM folders",
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("reset library rollback failed: %v", rbErr)
			}
			return storageErr("reset library", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storageErr("reset library: commit", err)
	}

	logging.Info("Library reset: media records, roots, and metadata cleared")
	return nil
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
