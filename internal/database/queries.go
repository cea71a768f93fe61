package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/category"
)

const recordColumns = `id, file_path, file_name, file_type, file_size, duration,
	width, height, folder_path, thumbnail_ref, mime_type, date_added, date_modified`

// UpsertMediaRecord inserts rec or, when a record with the same path
// already exists, updates it in place preserving its id and date_added.
// rec.ID is set to the stored id on success.
func (d *Database) UpsertMediaRecord(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_media_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().Unix()
	modified := now
	if !rec.DateModified.IsZero() {
		modified = rec.DateModified.Unix()
	}

	query := `
		INSERT INTO media_files (file_path, file_name, file_type, file_size,
			duration, width, height, folder_path, thumbnail_ref, mime_type,
			date_added, date_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			file_name = excluded.file_name,
			file_type = excluded.file_type,
			file_size = excluded.file_size,
			duration = excluded.duration,
			width = excluded.width,
			height = excluded.height,
			folder_path = excluded.folder_path,
			thumbnail_ref = excluded.thumbnail_ref,
			mime_type = excluded.mime_type,
			date_modified = excluded.date_modified
		RETURNING id`

	err = d.db.QueryRowContext(ctx, query,
		rec.Path, rec.Name, string(rec.Kind), rec.SizeBytes,
		rec.DurationSeconds, rec.Width, rec.Height, rec.FolderPath,
		nullable(rec.ThumbnailRef), nullable(rec.MimeType), now, modified,
	).Scan(&rec.ID)
	if err != nil {
		return storageErr("upsert media record", err)
	}
	return nil
}

// GetMediaRecordByPath retrieves a single record by its canonical path.
// Returns (nil, nil) when no record exists.
func (d *Database) GetMediaRecordByPath(ctx context.Context, path string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media_record_by_path", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM media_files WHERE file_path = ?", path)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get media record", err)
	}
	return rec, nil
}

// DeleteMediaRecord removes a record by path. Associated metadata rows
// are removed by the foreign key cascade. Returns true when a record
// was deleted.
func (d *Database) DeleteMediaRecord(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_media_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM media_files WHERE file_path = ?", path)
	if err != nil {
		return false, storageErr("delete media record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete media record", err)
	}
	return n > 0, nil
}

// QueryMediaRecords returns records matching opts, ordered by display
// name (case-insensitive) with path as tiebreaker so pagination is
// stable across identical names.
func (d *Database) QueryMediaRecords(ctx context.Context, opts QueryOptions) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("query_media_records", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := buildFilter(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + recordColumns + " FROM media_files" + where +
		" ORDER BY file_name COLLATE NOCASE ASC, file_path ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query media records", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, storageErr("query media records", err)
	}
	return records, nil
}

// QueryMediaRecordsByCategory returns records whose containing folder
// projects to the given category label under the active roots. An empty
// label means "all records": root-level folders have no category and are
// absorbed into the unfiltered view.
func (d *Database) QueryMediaRecordsByCategory(ctx context.Context, label string, opts QueryOptions) ([]MediaRecord, error) {
	if label == "" {
		opts.FolderPath = ""
		return d.QueryMediaRecords(ctx, opts)
	}

	roots, err := d.ActiveRootPaths(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := d.ListDistinctFolderPaths(ctx)
	if err != nil {
		return nil, err
	}

	matched := category.Match(label, folders, roots)
	if len(matched) == 0 {
		return []MediaRecord{}, nil
	}

	start := time.Now()
	defer func() { recordQuery("query_media_records_by_category", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := buildFilter(QueryOptions{Kind: opts.Kind, NameContains: opts.NameContains})
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(matched)), ",")
	clause := fmt.Sprintf("folder_path IN (%s)", placeholders)
	if where == "" {
		where = " WHERE " + clause
	} else {
		where += " AND " + clause
	}
	for _, f := range matched {
		args = append(args, f)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + recordColumns + " FROM media_files" + where +
		" ORDER BY file_name COLLATE NOCASE ASC, file_path ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query media records by category", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, storageErr("query media records by category", err)
	}
	return records, nil
}

// GetMediaCount returns the number of records matching opts, ignoring
// paging.
func (d *Database) GetMediaCount(ctx context.Context, opts QueryOptions) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media_count", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := buildFilter(opts)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_files"+where, args...).Scan(&count)
	if err != nil {
		return 0, storageErr("get media count", err)
	}
	return count, nil
}

// ListDistinctFolderPaths returns every distinct folder path that holds
// at least one media record.
func (d *Database) ListDistinctFolderPaths(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_distinct_folder_paths", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT folder_path FROM media_files ORDER BY folder_path")
	if err != nil {
		return nil, storageErr("list folder paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err = rows.Scan(&p); err != nil {
			return nil, storageErr("list folder paths", err)
		}
		paths = append(paths, p)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("list folder paths", err)
	}
	return paths, nil
}

// ListCategories projects the current folder paths onto the active
// roots and returns the sorted distinct category labels.
func (d *Database) ListCategories(ctx context.Context) ([]string, error) {
	roots, err := d.ActiveRootPaths(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := d.ListDistinctFolderPaths(ctx)
	if err != nil {
		return nil, err
	}
	return category.List(folders, roots), nil
}

// buildFilter translates opts into a WHERE clause. A Kind of KindAll or
// the zero value matches every kind.
func buildFilter(opts QueryOptions) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if opts.Kind != "" && opts.Kind != KindAll {
		clauses = append(clauses, "file_type = ?")
		args = append(args, string(opts.Kind))
	}
	if opts.FolderPath != "" {
		clauses = append(clauses, "folder_path = ?")
		args = append(args, opts.FolderPath)
	}
	if opts.NameContains != "" {
		clauses = append(clauses, `file_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.NameContains)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*MediaRecord, error) {
	var rec MediaRecord
	var kind string
	var size, width, height sql.NullInt64
	var duration sql.NullFloat64
	var thumbRef, mimeType sql.NullString
	var added, modified sql.NullInt64

	err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &kind, &size, &duration,
		&width, &height, &rec.FolderPath, &thumbRef, &mimeType, &added, &modified)
	if err != nil {
		return nil, err
	}

	rec.Kind = kindFromString(kind)
	if size.Valid {
		rec.SizeBytes = &size.Int64
	}
	if duration.Valid {
		rec.DurationSeconds = &duration.Float64
	}
	if width.Valid {
		rec.Width = &width.Int64
	}
	if height.Valid {
		rec.Height = &height.Int64
	}
	rec.ThumbnailRef = thumbRef.String
	rec.MimeType = mimeType.String
	if added.Valid {
		rec.DateAdded = time.Unix(added.Int64, 0)
	}
	if modified.Valid {
		rec.DateModified = time.Unix(modified.Int64, 0)
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]MediaRecord, error) {
	records := []MediaRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
