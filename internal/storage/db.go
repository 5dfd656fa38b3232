// Package storage keeps catalog documents in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite database operations
type DB struct {
	db *sqlx.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the web server read while a pipeline run writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	storage := &DB{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		app_url TEXT NOT NULL DEFAULT '',
		app_id TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		modified_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_app_url ON documents(collection, app_url, country);
	CREATE INDEX IF NOT EXISTS idx_app_id ON documents(collection, app_id, country);
	CREATE INDEX IF NOT EXISTS idx_modified ON documents(modified_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// EnsureCollection registers a collection. created is false when it already existed.
func (d *DB) EnsureCollection(ctx context.Context, name string) (created bool, err error) {
	res, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)",
		name, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("ensure collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure collection %s: %w", name, err)
	}
	return n > 0, nil
}

// Upsert inserts or replaces a document by (collection, id)
func (d *DB) Upsert(ctx context.Context, doc *Document) error {
	query := `
	INSERT INTO documents (collection, id, app_url, app_id, country, body, modified_at)
	VALUES (:collection, :id, :app_url, :app_id, :country, :body, :modified_at)
	ON CONFLICT(collection, id) DO UPDATE SET
		app_url = excluded.app_url,
		app_id = excluded.app_id,
		country = excluded.country,
		body = excluded.body,
		modified_at = excluded.modified_at
	`

	if _, err := d.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

const selectColumns = `SELECT collection, id, app_url, app_id, country, body, modified_at FROM documents`

// Get retrieves a document by ID. A missing document is (nil, nil).
func (d *DB) Get(ctx context.Context, collection, id string) (*Document, error) {
	doc := &Document{}
	err := d.db.GetContext(ctx, doc, selectColumns+" WHERE collection = ? AND id = ?", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Find returns the documents of a collection matching every non-empty filter field,
// newest first.
func (d *DB) Find(ctx context.Context, collection string, filter Filter, limit int) ([]*Document, error) {
	clauses := []string{"collection = ?"}
	args := []any{collection}
	if filter.AppURL != "" {
		clauses = append(clauses, "app_url = ?")
		args = append(args, filter.AppURL)
	}
	if filter.AppID != "" {
		clauses = append(clauses, "app_id = ?")
		args = append(args, filter.AppID)
	}
	if filter.Country != "" {
		clauses = append(clauses, "country = ?")
		args = append(args, filter.Country)
	}

	query := selectColumns + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY modified_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var docs []*Document
	if err := d.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return docs, nil
}

// List retrieves all documents of a collection, newest first
func (d *DB) List(ctx context.Context, collection string) ([]*Document, error) {
	return d.Find(ctx, collection, Filter{}, 0)
}

// Count returns the number of documents in a collection
func (d *DB) Count(ctx context.Context, collection string) (int, error) {
	var count int
	if err := d.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}
