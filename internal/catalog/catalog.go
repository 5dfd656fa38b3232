// Package catalog persists scraped listings and generated keyword sets, and
// answers the "already ingested?" lookup that lets the pipeline skip work.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/keywords"
	"github.com/renderinc/keyword-planner/internal/logger"
)

// ErrPersist is matched by every failed catalog write.
var ErrPersist = errors.New("persist document")

// PersistError describes a failed write to one collection.
type PersistError struct {
	Collection string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Collection, e.Err)
}

func (e *PersistError) Unwrap() []error {
	return []error{ErrPersist, e.Err}
}

// Catalog is the idempotent persistence layer over the two collections.
// It is safe for concurrent use when its Backend is.
type Catalog struct {
	backend Backend
	log     logger.Logger
	now     func() time.Time
	newUID  func() string
}

// New creates a catalog over backend
func New(backend Backend, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.NewNop()
	}
	return &Catalog{
		backend: backend,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newUID:  uuid.NewString,
	}
}

// Close releases the backend.
func (c *Catalog) Close() error {
	return c.backend.Close()
}

// EnsureSchema declares both collections. Collections that already exist are left untouched.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	for _, collection := range Collections() {
		created, err := c.backend.EnsureCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("ensure collection %s: %w", collection, err)
		}
		if created {
			c.log.Info("Collection created", logger.String("collection", collection))
		} else {
			c.log.Info("Collection already exists", logger.String("collection", collection))
		}
	}
	return nil
}

// Lookup finds the facts stored for (appURL, country) and, through their appid, the
// keyword set. Either result may be nil. Store failures are logged and read as "not found".
func (c *Catalog) Lookup(ctx context.Context, appURL, country string) (*AppDocument, *KeywordDocument) {
	country = strings.ToLower(country)
	normalized := appstore.NormalizeLocale(appURL, country)

	body, found, err := c.backend.FindLatest(ctx, AppCollection, Query{AppURL: normalized, Country: country})
	if err != nil {
		c.log.Warn("Lookup failed, treating as not found",
			logger.String("collection", AppCollection),
			logger.String("app_url", normalized),
			logger.Error(err),
		)
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	app := &AppDocument{}
	if err := json.Unmarshal(body, app); err != nil {
		c.log.Warn("Stored facts document is unreadable",
			logger.String("app_url", normalized),
			logger.Error(err),
		)
		return nil, nil
	}
	c.log.Debug("Found existing app details", logger.String("app_id", app.AppID))

	// Keyword sets join on appid; without a real id there is nothing to join on.
	if app.AppID == "" || app.AppID == appstore.UnknownAppID {
		return app, nil
	}

	body, found, err = c.backend.FindLatest(ctx, KeywordCollection, Query{AppID: app.AppID, Country: country})
	if err != nil {
		c.log.Warn("Keyword lookup failed, treating as not found",
			logger.String("collection", KeywordCollection),
			logger.String("app_id", app.AppID),
			logger.Error(err),
		)
		return app, nil
	}
	if !found {
		return app, nil
	}

	kw := &KeywordDocument{}
	if err := json.Unmarshal(body, kw); err != nil {
		c.log.Warn("Stored keyword document is unreadable",
			logger.String("app_id", app.AppID),
			logger.Error(err),
		)
		return app, nil
	}
	return app, kw
}

// UpsertAppRecord stores the facts of record under a fresh uid and returns it.
func (c *Catalog) UpsertAppRecord(ctx context.Context, record *appstore.AppRecord, country string) (string, error) {
	if record == nil {
		return "", &PersistError{Collection: AppCollection, Err: errors.New("nil app record")}
	}

	doc := newAppDocument(record, c.newUID(), strings.ToLower(country), c.now())
	body, err := json.Marshal(doc)
	if err != nil {
		return "", &PersistError{Collection: AppCollection, Err: err}
	}

	err = c.backend.Upsert(ctx, &Record{
		Collection: AppCollection,
		ID:         doc.UID,
		AppURL:     doc.AppURL,
		AppID:      doc.AppID,
		Country:    doc.Country,
		ModifiedAt: doc.ModifiedAt,
		Body:       body,
	})
	if err != nil {
		return "", &PersistError{Collection: AppCollection, Err: err}
	}

	c.log.Info("App details stored",
		logger.String("uid", doc.UID),
		logger.String("app_id", doc.AppID),
		logger.String("country", doc.Country),
	)
	return doc.UID, nil
}

// UpsertKeywordSet stores a keyword set linked to the facts document appUID.
func (c *Catalog) UpsertKeywordSet(ctx context.Context, set *keywords.KeywordSet, record *appstore.AppRecord, appUID, appID, country string) error {
	if set == nil {
		return &PersistError{Collection: KeywordCollection, Err: errors.New("nil keyword set")}
	}
	if appUID == "" {
		return &PersistError{Collection: KeywordCollection, Err: errors.New("missing app uid")}
	}

	doc := newKeywordDocument(set, record, c.newUID(), appUID, appID, strings.ToLower(country), c.now())
	body, err := json.Marshal(doc)
	if err != nil {
		return &PersistError{Collection: KeywordCollection, Err: err}
	}

	err = c.backend.Upsert(ctx, &Record{
		Collection: KeywordCollection,
		ID:         doc.UID,
		AppID:      doc.AppID,
		Country:    doc.Country,
		ModifiedAt: doc.ModifiedAt,
		Body:       body,
	})
	if err != nil {
		return &PersistError{Collection: KeywordCollection, Err: err}
	}

	c.log.Info("Keyword set stored",
		logger.String("uid", doc.UID),
		logger.String("app_uid", appUID),
		logger.Int("ai_keywords", len(doc.AIKeywords)),
	)
	return nil
}

// Search runs a full-text query over one collection, or all when collection is empty.
func (c *Catalog) Search(ctx context.Context, collection, text string, limit int) ([]Hit, error) {
	if collection != "" && collection != AppCollection && collection != KeywordCollection {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	if limit <= 0 {
		limit = 10
	}
	return c.backend.Search(ctx, collection, text, limit)
}

// Stats returns the document count of every collection.
func (c *Catalog) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, 2)
	for _, collection := range Collections() {
		n, err := c.backend.Count(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", collection, err)
		}
		stats[collection] = n
	}
	return stats, nil
}
