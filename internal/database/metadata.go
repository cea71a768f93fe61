package database

import (
	"context"
	"time"
)

// SetRecordMetadata stores key/value pairs against a media record,
// replacing existing values for the same keys. Used for extracted tag
// data (artist, album, title) that does not fit the fixed columns.
func (d *Database) SetRecordMetadata(ctx context.Context, recordID int64, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("set_record_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("set record metadata: begin", err)
	}

	query := `
		INSERT INTO metadata (media_file_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(media_file_id, key) DO UPDATE SET value = excluded.value`

	for k, v := range values {
		if _, err = tx.ExecContext(ctx, query, recordID, k, v); err != nil {
			tx.Rollback()
			return storageErr("set record metadata", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storageErr("set record metadata: commit", err)
	}
	return nil
}

// GetRecordMetadata returns all metadata pairs stored for a record.
func (d *Database) GetRecordMetadata(ctx context.Context, recordID int64) (map[string]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_record_metadata", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT key, value FROM metadata WHERE media_file_id = ?", recordID)
	if err != nil {
		return nil, storageErr("get record metadata", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, storageErr("get record metadata", err)
		}
		values[k] = v
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("get record metadata", err)
	}
	return values, nil
}
