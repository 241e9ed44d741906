package state

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS published_stories (
	url          TEXT PRIMARY KEY,
	published_at TEXT NOT NULL
)`

// SQLiteStore keeps the dedup set in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and creates the table if needed.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, durability("open sqlite "+path, err)
	}

	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, durability("init sqlite", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// IsPublished implements Store.
func (s *SQLiteStore) IsPublished(ctx context.Context, url string) (bool, error) {
	var n int

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM published_stories WHERE url = ?", url).Scan(&n)
	if err != nil {
		return false, durability("read "+url, err)
	}

	return n > 0, nil
}

// MarkPublished implements Store.
func (s *SQLiteStore) MarkPublished(ctx context.Context, url string) error {
	_, err := s.TryMark(ctx, url)

	return err
}

// TryMark implements Store.
func (s *SQLiteStore) TryMark(ctx context.Context, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO published_stories (url, published_at) VALUES (?, ?)", url, stamp())
	if err != nil {
		return false, durability("mark "+url, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, durability("mark "+url, err)
	}

	return n == 1, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url, published_at FROM published_stories ORDER BY published_at, url")
	if err != nil {
		return nil, durability("list", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		var url, at string
		if err := rows.Scan(&url, &at); err != nil {
			return nil, durability("list", err)
		}

		out = append(out, Record{URL: url, PublishedAt: parseStamp(at)})
	}

	if err := rows.Err(); err != nil {
		return nil, durability("list", err)
	}

	return out, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return durability("close sqlite", err)
	}

	return nil
}
