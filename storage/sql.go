package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store over any sqlx-supported database. Queries
// are written with ? placeholders and rebound to the driver's
// placeholder style, so the same query text serves SQLite and
// Postgres.
type SQLStore struct {
	db *sqlx.DB
	id string
}

var memoryStoreSeq atomic.Int64

// OpenSQLite opens a SQLite schedule database. An in-memory database
// is pinned to a single connection so every query sees the same data.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}

	id := "sqlite3:" + path
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		id = fmt.Sprintf("sqlite3::memory:%d", memoryStoreSeq.Add(1))
	}

	return &SQLStore{db: db, id: id}, nil
}

// OpenPostgres opens a Postgres schedule database.
func OpenPostgres(connStr string) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	return &SQLStore{db: db, id: "postgres:" + connStr}, nil
}

// NewSQLStore wraps an existing handle. The id keys caches, so it must
// differ between databases.
func NewSQLStore(db *sqlx.DB, id string) *SQLStore {
	return &SQLStore{db: db, id: id}
}

func (s *SQLStore) ID() string {
	return s.id
}

// DB exposes the underlying handle for loaders and hosts. The core
// itself only reads.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying handle. The host owns the lifecycle;
// the query layer never calls this.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Get(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, &StoreError{Query: query, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &StoreError{Query: query, Err: err}
		}
		return nil, nil
	}

	row := Row{}
	if err := rows.MapScan(row); err != nil {
		return nil, &StoreError{Query: query, Err: err}
	}
	return row, nil
}

func (s *SQLStore) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, &StoreError{Query: query, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, &StoreError{Query: query, Err: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Query: query, Err: err}
	}
	return out, nil
}
