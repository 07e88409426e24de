package ledger

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS downloaded (
    link       TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLStore keeps ledger entries in a SQL table.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite ledger database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger database at %s", path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "setting pragma %q", pragma)
		}
	}

	store, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database and creates the schema if needed.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, errors.Wrap(err, "creating ledger schema")
	}
	return &SQLStore{db: db}, nil
}

// Load returns every stored link.
func (s *SQLStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link FROM downloaded`)
	if err != nil {
		return nil, errors.Wrap(err, "querying ledger")
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, errors.Wrap(err, "scanning ledger row")
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Append inserts a link; inserting an existing link is a no-op.
func (s *SQLStore) Append(ctx context.Context, link string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO downloaded (link) VALUES (?)`, link); err != nil {
		return errors.Wrap(err, "inserting ledger row")
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
