package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/renderinc/keyword-planner/internal/logger"
)

// ElasticsearchConfig configures the network document store.
type ElasticsearchConfig struct {
	URL      string
	APIKey   string
	Username string
	Password string
	// IndexPrefix is prepended to the lower-cased collection name.
	IndexPrefix string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// ElasticsearchBackend stores each collection in its own index.
type ElasticsearchBackend struct {
	client *es.Client
	prefix string
	log    logger.Logger
}

// NewElasticsearchBackend creates a new Elasticsearch backend
func NewElasticsearchBackend(cfg ElasticsearchConfig, log logger.Logger) (*ElasticsearchBackend, error) {
	if log == nil {
		log = logger.NewNop()
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("elasticsearch url is required")
	}

	clientConfig := es.Config{
		Addresses: []string{normalizeURL(cfg.URL)},
		Transport: cfg.Transport,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticsearchBackend{client: client, prefix: cfg.IndexPrefix, log: log}, nil
}

// normalizeURL adds https:// when the host was given without a scheme
func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return url
}

// indexName maps a collection to its index; index names must be lower case.
func (b *ElasticsearchBackend) indexName(collection string) string {
	return b.prefix + strings.ToLower(collection)
}

func (b *ElasticsearchBackend) collectionOf(index string) string {
	for _, collection := range Collections() {
		if b.indexName(collection) == index {
			return collection
		}
	}
	return index
}

var dateField = map[string]any{"type": "date", "format": "yyyy-MM-dd HH:mm:ss"}

// sequenceField orders documents written within the same second. It is stripped
// from every _source the backend returns.
const sequenceField = "indexed_at_ns"

var sequenceMapping = map[string]any{"type": "long"}

var mappings = map[string]map[string]any{
	AppCollection: {
		"uid":                map[string]any{"type": "keyword"},
		"appid":              map[string]any{"type": "keyword"},
		"country":            map[string]any{"type": "keyword"},
		"appurl":             map[string]any{"type": "keyword"},
		"appname":            map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
		"appsubtitle":        map[string]any{"type": "text"},
		"rating":             map[string]any{"type": "keyword"},
		"size":               map[string]any{"type": "keyword"},
		"category":           map[string]any{"type": "keyword"},
		"iphone_screenshots": map[string]any{"type": "keyword", "index": false},
		"description":        map[string]any{"type": "text"},
		"competitor_apps":    map[string]any{"type": "text"},
		"ingested_datetime":  dateField,
		"modified_datetime":  dateField,
		sequenceField:        sequenceMapping,
	},
	KeywordCollection: {
		"uid":                      map[string]any{"type": "keyword"},
		"app_uid":                  map[string]any{"type": "keyword"},
		"appid":                    map[string]any{"type": "keyword"},
		"country":                  map[string]any{"type": "keyword"},
		"keywords":                 map[string]any{"type": "text"},
		"competitor_apps":          map[string]any{"type": "text"},
		"competitor_apps_keywords": map[string]any{"type": "text"},
		"ai_keywords":              map[string]any{"type": "text"},
		"ai_comp_keywords":         map[string]any{"type": "text"},
		"ingested_datetime":        dateField,
		"modified_datetime":        dateField,
		sequenceField:              sequenceMapping,
	},
}

// EnsureCollection creates the collection's index with its mapping unless it exists
func (b *ElasticsearchBackend) EnsureCollection(ctx context.Context, collection string) (bool, error) {
	index := b.indexName(collection)

	res, err := b.client.Indices.Exists([]string{index}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return false, nil
	}

	props, ok := mappings[collection]
	if !ok {
		return false, fmt.Errorf("no mapping for collection %s", collection)
	}
	body, err := json.Marshal(map[string]any{
		"mappings": map[string]any{"properties": props},
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = b.client.Indices.Create(
		index,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, fmt.Errorf("error creating index %s: %s", index, res.String())
	}

	b.log.Debug("Index created", logger.String("index", index))
	return true, nil
}

// Upsert indexes the document by ID and waits until it is visible to searches
func (b *ElasticsearchBackend) Upsert(ctx context.Context, rec *Record) error {
	body, err := withSequence(rec.Body, time.Now())
	if err != nil {
		return err
	}

	res, err := b.client.Index(
		b.indexName(rec.Collection),
		bytes.NewReader(body),
		b.client.Index.WithContext(ctx),
		b.client.Index.WithDocumentID(rec.ID),
		b.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// withSequence adds the nanosecond write time to a document body.
func withSequence(body json.RawMessage, at time.Time) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	fields[sequenceField] = json.RawMessage(strconv.FormatInt(at.UnixNano(), 10))
	return json.Marshal(fields)
}

var sourceExcludes = map[string]any{"excludes": []string{sequenceField}}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Index     string              `json:"_index"`
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (b *ElasticsearchBackend) search(ctx context.Context, index string, query map[string]any) (*searchResponse, error) {
	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(index),
		b.client.Search.WithBody(bytes.NewReader(queryBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching: %s", res.String())
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &result, nil
}

// FindLatest filters on exact keyword fields and keeps the newest document
func (b *ElasticsearchBackend) FindLatest(ctx context.Context, collection string, q Query) (json.RawMessage, bool, error) {
	filters := []map[string]any{}
	if q.AppURL != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"appurl": q.AppURL}})
	}
	if q.AppID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"appid": q.AppID}})
	}
	if q.Country != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"country": q.Country}})
	}

	result, err := b.search(ctx, b.indexName(collection), map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
		"sort": []map[string]any{
			{"modified_datetime": map[string]any{"order": "desc"}},
			{sequenceField: map[string]any{"order": "desc", "unmapped_type": "long"}},
		},
		"_source": sourceExcludes,
		"size":    1,
	})
	if err != nil {
		return nil, false, err
	}
	if len(result.Hits.Hits) == 0 {
		return nil, false, nil
	}
	return result.Hits.Hits[0].Source, true, nil
}

// Search runs a multi_match query over the text fields
func (b *ElasticsearchBackend) Search(ctx context.Context, collection, text string, limit int) ([]Hit, error) {
	indices := make([]string, 0, 2)
	if collection != "" {
		indices = append(indices, b.indexName(collection))
	} else {
		for _, c := range Collections() {
			indices = append(indices, b.indexName(c))
		}
	}

	result, err := b.search(ctx, strings.Join(indices, ","), map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query": text,
				"fields": []string{
					"appname^3", "appsubtitle^2", "description", "competitor_apps",
					"keywords", "ai_keywords^2", "ai_comp_keywords", "competitor_apps_keywords",
				},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{"*": map[string]any{}},
		},
		"_source": sourceExcludes,
		"size":    limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		hits = append(hits, Hit{
			Collection: b.collectionOf(h.Index),
			ID:         h.ID,
			Score:      h.Score,
			Document:   h.Source,
			Fragments:  h.Highlight,
		})
	}
	return hits, nil
}

// Count returns the number of documents in the collection's index
func (b *ElasticsearchBackend) Count(ctx context.Context, collection string) (int, error) {
	res, err := b.client.Count(
		b.client.Count.WithContext(ctx),
		b.client.Count.WithIndex(b.indexName(collection)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error counting: %s", res.String())
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("error decoding response: %w", err)
	}
	return body.Count, nil
}

// Close is a no-op; the client holds no resources beyond pooled connections.
func (b *ElasticsearchBackend) Close() error {
	return nil
}
