// Package search provides full-text search over locally stored catalog documents.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/renderinc/keyword-planner/internal/storage"
)

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedDocument represents a document in the search index
type IndexedDocument struct {
	Collection string
	ID         string
	Title      string
	AppURL     string
	Country    string
	Text       string
}

// SearchResult represents a search result
type SearchResult struct {
	Collection string
	ID         string
	Title      string
	AppURL     string
	Country    string
	Score      float64
	Fragments  map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenInMemory creates an index that is never written to disk
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping keeps the filter fields unanalyzed and stems the free text with the English analyzer
func buildIndexMapping() mapping.IndexMapping {
	keywordField := bleve.NewKeywordFieldMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = "en"

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Collection", keywordField)
	docMapping.AddFieldMappingsAt("ID", keywordField)
	docMapping.AddFieldMappingsAt("Country", keywordField)
	docMapping.AddFieldMappingsAt("AppURL", keywordField)
	docMapping.AddFieldMappingsAt("Title", titleField)
	docMapping.AddFieldMappingsAt("Text", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultField = "Text"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func key(collection, id string) string {
	return collection + "/" + id
}

// IndexDocument adds or updates a document in the index
func (i *Index) IndexDocument(doc *IndexedDocument) error {
	return i.index.Index(key(doc.Collection, doc.ID), doc)
}

// Delete removes a document from the index
func (i *Index) Delete(collection, id string) error {
	return i.index.Delete(key(collection, id))
}

// Search runs a query-string search (quotes, +/-, fuzzy ~) restricted to one
// collection when collection is non-empty.
func (i *Index) Search(queryStr, collection string, limit int) ([]*SearchResult, error) {
	var q query.Query = bleve.NewQueryStringQuery(queryStr)
	if collection != "" {
		inCollection := bleve.NewTermQuery(collection)
		inCollection.SetField("Collection")
		q = bleve.NewConjunctionQuery(q, inCollection)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Highlight = bleve.NewHighlight()
	req.Fields = []string{"Collection", "ID", "Title", "AppURL", "Country"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	searchResults := make([]*SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		result := &SearchResult{
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		result.Collection, _ = hit.Fields["Collection"].(string)
		result.ID, _ = hit.Fields["ID"].(string)
		result.Title, _ = hit.Fields["Title"].(string)
		result.AppURL, _ = hit.Fields["AppURL"].(string)
		result.Country, _ = hit.Fields["Country"].(string)

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// FromDocument builds the index entry for a stored document. Every string and
// string-list value of the JSON body is searchable text.
func FromDocument(doc *storage.Document) (*IndexedDocument, error) {
	var body map[string]any
	if err := json.Unmarshal([]byte(doc.Body), &body); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}

	title, _ := body["appname"].(string)
	if title == "" {
		title = doc.AppID
	}

	return &IndexedDocument{
		Collection: doc.Collection,
		ID:         doc.ID,
		Title:      title,
		AppURL:     doc.AppURL,
		Country:    doc.Country,
		Text:       bodyText(body),
	}, nil
}

func bodyText(body map[string]any) string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := body[k].(type) {
		case string:
			parts = append(parts, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

// IndexFromStorage rebuilds the index entries of the given collections from storage
func (i *Index) IndexFromStorage(ctx context.Context, db *storage.DB, collections ...string) (int, error) {
	batch := i.index.NewBatch()
	indexed := 0
	for _, collection := range collections {
		docs, err := db.List(ctx, collection)
		if err != nil {
			return 0, fmt.Errorf("list documents: %w", err)
		}

		for _, doc := range docs {
			indexDoc, err := FromDocument(doc)
			if err != nil {
				return 0, err
			}
			if err := batch.Index(key(doc.Collection, doc.ID), indexDoc); err != nil {
				return 0, fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
			indexed++
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	return indexed, nil
}
