package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/renderinc/keyword-planner/internal/search"
	"github.com/renderinc/keyword-planner/internal/storage"
)

// LocalBackend keeps documents in SQLite and mirrors them into a Bleve index for
// full-text search. SQLite is the source of truth; Reindex rebuilds the index from it.
type LocalBackend struct {
	db    *storage.DB
	index *search.Index
	log   logger.Logger
}

// OpenLocal opens (or creates) catalog.db and index.bleve under dir.
func OpenLocal(dir string, log logger.Logger) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := storage.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	idx, err := search.Open(filepath.Join(dir, "index.bleve"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	return NewLocalBackend(db, idx, log), nil
}

// NewLocalBackend wraps an open database and index.
func NewLocalBackend(db *storage.DB, idx *search.Index, log logger.Logger) *LocalBackend {
	if log == nil {
		log = logger.NewNop()
	}
	return &LocalBackend{db: db, index: idx, log: log}
}

// EnsureCollection registers the collection in the database.
func (b *LocalBackend) EnsureCollection(ctx context.Context, collection string) (bool, error) {
	return b.db.EnsureCollection(ctx, collection)
}

// Upsert writes the document to SQLite, then indexes it. An indexing failure is
// logged only; Reindex repairs the index.
func (b *LocalBackend) Upsert(ctx context.Context, rec *Record) error {
	doc := &storage.Document{
		Collection: rec.Collection,
		ID:         rec.ID,
		AppURL:     rec.AppURL,
		AppID:      rec.AppID,
		Country:    rec.Country,
		Body:       string(rec.Body),
		ModifiedAt: rec.ModifiedAt,
	}
	if err := b.db.Upsert(ctx, doc); err != nil {
		return err
	}

	indexDoc, err := search.FromDocument(doc)
	if err == nil {
		err = b.index.IndexDocument(indexDoc)
	}
	if err != nil {
		b.log.Warn("Failed to index document",
			logger.String("collection", rec.Collection),
			logger.String("id", rec.ID),
			logger.Error(err),
		)
	}
	return nil
}

// FindLatest returns the newest matching document from SQLite.
func (b *LocalBackend) FindLatest(ctx context.Context, collection string, q Query) (json.RawMessage, bool, error) {
	docs, err := b.db.Find(ctx, collection, storage.Filter{
		AppURL:  q.AppURL,
		AppID:   q.AppID,
		Country: q.Country,
	}, 1)
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return json.RawMessage(docs[0].Body), true, nil
}

// Search queries Bleve and loads each hit's document from SQLite.
func (b *LocalBackend) Search(ctx context.Context, collection, text string, limit int) ([]Hit, error) {
	results, err := b.index.Search(text, collection, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		doc, err := b.db.Get(ctx, r.Collection, r.ID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// stale index entry
			if err := b.index.Delete(r.Collection, r.ID); err != nil {
				b.log.Warn("Failed to drop stale index entry",
					logger.String("collection", r.Collection),
					logger.String("id", r.ID),
					logger.Error(err),
				)
			}
			continue
		}
		hits = append(hits, Hit{
			Collection: r.Collection,
			ID:         r.ID,
			Score:      r.Score,
			Document:   json.RawMessage(doc.Body),
			Fragments:  r.Fragments,
		})
	}
	return hits, nil
}

// Count returns the number of stored documents in a collection.
func (b *LocalBackend) Count(ctx context.Context, collection string) (int, error) {
	return b.db.Count(ctx, collection)
}

// Reindex rebuilds the full-text index from the database.
func (b *LocalBackend) Reindex(ctx context.Context) (int, error) {
	return b.index.IndexFromStorage(ctx, b.db, Collections()...)
}

// Close closes the index and the database.
func (b *LocalBackend) Close() error {
	return errors.Join(b.index.Close(), b.db.Close())
}
