package catalog

import (
	"context"
	"encoding/json"
)

// Record is one document as handed to a Backend: the JSON body plus copies of
// the fields backends filter on.
type Record struct {
	Collection string
	ID         string
	AppURL     string
	AppID      string
	Country    string
	ModifiedAt string
	Body       json.RawMessage
}

// Query selects documents by exact match on every non-empty field.
type Query struct {
	AppURL  string
	AppID   string
	Country string
}

// Hit is one full-text search result.
type Hit struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Score      float64         `json:"score"`
	Document   json.RawMessage `json:"document"`
	// Fragments holds highlighted snippets keyed by field, when the backend provides them.
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Backend is the document store behind a Catalog.
type Backend interface {
	// EnsureCollection declares a collection; created is false when it already existed.
	EnsureCollection(ctx context.Context, collection string) (created bool, err error)

	// Upsert writes a document, replacing any document with the same collection and ID.
	Upsert(ctx context.Context, rec *Record) error

	// FindLatest returns the body of the matching document with the newest
	// modified_datetime. found is false when nothing matches.
	FindLatest(ctx context.Context, collection string, q Query) (body json.RawMessage, found bool, err error)

	// Search runs a full-text query. An empty collection searches all of them.
	Search(ctx context.Context, collection, text string, limit int) ([]Hit, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
