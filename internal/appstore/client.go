// Package appstore fetches and parses App Store listing pages.
package appstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/renderinc/keyword-planner/internal/logger"
)

// ErrFetch is matched by every listing fetch failure.
var ErrFetch = errors.New("fetch listing")

// FetchError describes a failed page fetch (network error, timeout or non-2xx status).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// DefaultUserAgent mimics a desktop browser; the store serves a reduced page to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxCompetitors = 3
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	MaxCompetitors int
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client fetches App Store listing pages.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	maxCompetitors int
	log            logger.Logger
}

// NewClient creates a new listing client
func NewClient(opts Options, log logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxCompetitors <= 0 {
		opts.MaxCompetitors = defaultMaxCompetitors
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		httpClient:     httpClient,
		userAgent:      opts.UserAgent,
		maxCompetitors: opts.MaxCompetitors,
		log:            log,
	}
}

// Fetch scrapes the listing at appURL for the given storefront, then fetches
// the keywords of its first competitors concurrently.
func (c *Client) Fetch(ctx context.Context, appURL, country string) (*AppRecord, error) {
	pageURL := NormalizeLocale(appURL, country)

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := parseListing(doc, pageURL)
	record := &AppRecord{
		AppID:       ExtractAppID(pageURL),
		AppURL:      pageURL,
		AppName:     page.Name,
		AppSubtitle: page.Subtitle,
		Rating:      page.Rating,
		Size:        page.Size,
		Category:    page.Category,
		Screenshots: page.Screenshots,
		Description: page.Description,
		Keywords:    FilterKeywords(page.MetaKeywords, page.Name, page.Subtitle),
		Competitors: page.Competitors,
	}
	record.CompetitorKeywords = c.FetchCompetitorKeywords(ctx, record.Competitors)

	c.log.Info("Scraped listing",
		logger.String("url", pageURL),
		logger.String("app_id", record.AppID),
		logger.Int("keywords", len(record.Keywords)),
		logger.Int("competitors", len(record.Competitors)),
		logger.Int("competitor_keyword_sets", len(record.CompetitorKeywords)),
	)

	return record, nil
}

// FetchCompetitorKeywords fetches the first competitors concurrently. A failed
// competitor is logged and left out; the rest keep their original order.
func (c *Client) FetchCompetitorKeywords(ctx context.Context, competitors []Competitor) []CompetitorKeywords {
	if len(competitors) > c.maxCompetitors {
		competitors = competitors[:c.maxCompetitors]
	}

	results := make([]*CompetitorKeywords, len(competitors))
	var wg sync.WaitGroup
	for i, comp := range competitors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := c.fetchDocument(ctx, comp.URL)
			if err != nil {
				c.log.Warn("Could not scrape competitor",
					logger.String("competitor", comp.Name),
					logger.Error(err),
				)
				return
			}
			results[i] = &CompetitorKeywords{
				Name:     comp.Name,
				Keywords: FilterKeywords(metaKeywords(doc)),
			}
		}()
	}
	wg.Wait()

	keywordSets := make([]CompetitorKeywords, 0, len(results))
	for _, r := range results {
		if r != nil {
			keywordSets = append(keywordSets, *r)
		}
	}
	return keywordSets
}

// fetchDocument performs a single GET and parses the body as HTML.
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}
