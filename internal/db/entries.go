package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Hussein-Mazeh/PassForge/store"
)

var _ store.Store = (*DB)(nil)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrStoreUnavailable, err)
}

// Exists reports whether an entry called name is stored.
func (d *DB) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, unavailable("select entry", err)
	}
	return n > 0, nil
}

// List returns every entry ordered by name.
func (d *DB) List(ctx context.Context) ([]store.Entry, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, name, encrypted_data, created_at
		 FROM entries
		 ORDER BY name`,
	)
	if err != nil {
		return nil, unavailable("select entries", err)
	}
	defer rows.Close()

	results := []store.Entry{}
	for rows.Next() {
		var (
			e       store.Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.EncryptedData, &created); err != nil {
			return nil, unavailable("scan entry row", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at of %q: %w", e.Name, err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate entry rows", err)
	}
	return results, nil
}

// Upsert inserts the entry or replaces the encrypted data of the existing
// entry with the same name, keeping its id and created_at.
func (d *DB) Upsert(ctx context.Context, name, encryptedData string) error {
	if name == "" || encryptedData == "" {
		return store.ErrInvalidEntry
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO entries (id, name, encrypted_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   encrypted_data = excluded.encrypted_data,
		   updated_at     = excluded.updated_at`,
		uuid.NewString(), name, encryptedData, now, now,
	)
	if err != nil {
		return unavailable("upsert entry", err)
	}
	return nil
}

// Delete removes the entry addressed by ref. It returns store.ErrNotFound if
// nothing was deleted.
func (d *DB) Delete(ctx context.Context, ref store.Ref) error {
	query := `DELETE FROM entries WHERE id = ?`
	if ref.Kind == store.ByName {
		query = `DELETE FROM entries WHERE name = ?`
	}

	res, err := d.sql.ExecContext(ctx, query, ref.Value)
	if err != nil {
		return unavailable("delete entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	}
	return nil
}
