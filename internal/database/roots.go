package database

import (
	"context"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/category"
)

// AddRootFolder registers path as a scan root. The path is
// canonicalized first; re-adding an existing root reactivates it and
// returns the existing row.
func (d *Database) AddRootFolder(ctx context.Context, path string) (*RootFolder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_root_folder", start, err) }()

	canonical := category.Canonicalize(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO folders (folder_path, is_active)
		VALUES (?, 1)
		ON CONFLICT(folder_path) DO UPDATE SET is_active = 1
		RETURNING id, folder_path, is_active, date_added`

	root, err := scanRoot(d.db.QueryRowContext(ctx, query, canonical))
	if err != nil {
		return nil, storageErr("add root folder", err)
	}
	return root, nil
}

// ListRootFolders returns registered roots ordered by path. When
// activeOnly is set, deactivated roots are excluded.
func (d *Database) ListRootFolders(ctx context.Context, activeOnly bool) ([]RootFolder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_root_folders", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	query := "SELECT id, folder_path, is_active, date_added FROM folders"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY folder_path"

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list root folders", err)
	}
	defer rows.Close()

	roots := []RootFolder{}
	for rows.Next() {
		root, scanErr := scanRoot(rows)
		if scanErr != nil {
			err = scanErr
			return nil, storageErr("list root folders", err)
		}
		roots = append(roots, *root)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("list root folders", err)
	}
	return roots, nil
}

// ActiveRootPaths returns the canonical paths of active roots ordered
// by path. This order decides which root claims a folder reachable
// from more than one root, so it must stay stable.
func (d *Database) ActiveRootPaths(ctx context.Context) ([]string, error) {
	roots, err := d.ListRootFolders(ctx, true)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(roots))
	for i, r := range roots {
		paths[i] = r.Path
	}
	return paths, nil
}

// SetRootFolderActive toggles a root without forgetting it. Returns
// true when a root with the given id exists.
func (d *Database) SetRootFolderActive(ctx context.Context, id int64, active bool) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_root_folder_active", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "UPDATE folders SET is_active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return false, storageErr("set root folder active", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("set root folder active", err)
	}
	return n > 0, nil
}

// RemoveRootFolder deletes a root registration. Records indexed under
// it stay in the library until the next scan or reset.
func (d *Database) RemoveRootFolder(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_root_folder", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return false, storageErr("remove root folder", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("remove root folder", err)
	}
	return n > 0, nil
}

func scanRoot(row rowScanner) (*RootFolder, error) {
	var root RootFolder
	var active int
	var added int64
	if err := row.Scan(&root.ID, &root.Path, &active, &added); err != nil {
		return nil, err
	}
	root.Active = active != 0
	root.DateAdded = time.Unix(added, 0)
	return &root, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
