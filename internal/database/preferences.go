package database

import (
	"context"
	"database/sql"
	"time"
)

// GetPreference returns the stored value for key, or def when no value
// has been set. A missing key is not an error.
func (d *Database) GetPreference(ctx context.Context, key, def string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_preference", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err = d.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		err = nil
		return def, nil
	}
	if err != nil {
		return "", storageErr("get preference", err)
	}
	return value, nil
}

// SetPreference stores value under key, replacing any previous value.
func (d *Database) SetPreference(ctx context.Context, key, value string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_preference", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err = d.db.ExecContext(ctx, query, key, value); err != nil {
		return storageErr("set preference", err)
	}
	return nil
}
