package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/tinyland-inc/wishbot/pkg/logger"
)

// SQLiteStore implements Store using SQLite. The AUTOINCREMENT sequence
// guarantees monotonically increasing ids that survive Clear, and
// database/sql serializes concurrent writers so near-simultaneous
// inserts always receive distinct ids.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the item database at path. Parent
// directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps readers unblocked while an insert is in flight.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.InfoCF("store", "Item store initialized", map[string]any{"path": path})
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contributor TEXT NOT NULL,
			description TEXT NOT NULL,
			claimed INTEGER NOT NULL DEFAULT 0
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, contributor, description string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO items (contributor, description, claimed) VALUES (?, ?, 0)`,
		contributor, description,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}

	logger.DebugCF("store", "item inserted", map[string]any{"id": id, "contributor": contributor})
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := s.db.QueryRowContext(ctx,
		`SELECT id, contributor, description, claimed FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Contributor, &item.Description, &item.Claimed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return &item, nil
}

func (s *SQLiteStore) SetClaimed(ctx context.Context, id int64, claimed bool) (*Item, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET claimed = ? WHERE id = ?`, claimed, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	logger.DebugCF("store", "item claim updated", map[string]any{"id": id, "claimed": claimed})
	return s.Get(ctx, id)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contributor, description, claimed FROM items ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Contributor, &item.Description, &item.Claimed); err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item rows: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	// DELETE (not DROP) keeps the sqlite_sequence row, so ids assigned
	// after a reset continue from where the old sequence left off.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	logger.InfoC("store", "item store cleared")
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
