// Package pipeline sequences lookup, fetch, keyword synthesis and persistence for one listing.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/catalog"
	"github.com/renderinc/keyword-planner/internal/keywords"
	"github.com/renderinc/keyword-planner/internal/logger"
)

// Fetcher scrapes one listing.
type Fetcher interface {
	Fetch(ctx context.Context, appURL, country string) (*appstore.AppRecord, error)
}

// Synthesizer generates keywords for a scraped listing.
type Synthesizer interface {
	Synthesize(ctx context.Context, record *appstore.AppRecord) (*keywords.KeywordSet, error)
}

// Store is the catalog as seen by the pipeline.
type Store interface {
	Lookup(ctx context.Context, appURL, country string) (*catalog.AppDocument, *catalog.KeywordDocument)
	UpsertAppRecord(ctx context.Context, record *appstore.AppRecord, country string) (string, error)
	UpsertKeywordSet(ctx context.Context, set *keywords.KeywordSet, record *appstore.AppRecord, appUID, appID, country string) error
}

// Status is the outcome of a run.
type Status string

const (
	StatusCached    Status = "cached"
	StatusGenerated Status = "generated"
	StatusFailed    Status = "failed"
)

// Stage is the step a run ended in.
type Stage string

const (
	StageInput           Stage = "input"
	StageLookup          Stage = "lookup"
	StageFetch           Stage = "fetch"
	StageSynthesize      Stage = "synthesize"
	StagePersistRecord   Stage = "persist_record"
	StagePersistKeywords Stage = "persist_keywords"
)

// Result reports one run. Cached runs carry the stored documents; generated runs
// carry the fresh record, keyword set and the new facts uid. A failed run keeps
// whatever was produced before the failing stage.
type Result struct {
	Status   Status        `json:"status"`
	Stage    Stage         `json:"stage"`
	Message  string        `json:"message"`
	Err      error         `json:"-"`
	AppURL   string        `json:"app_url"`
	Country  string        `json:"country"`
	Duration time.Duration `json:"duration"`

	App      *catalog.AppDocument     `json:"app,omitempty"`
	Keywords *catalog.KeywordDocument `json:"keywords,omitempty"`

	Record     *appstore.AppRecord  `json:"record,omitempty"`
	KeywordSet *keywords.KeywordSet `json:"keyword_set,omitempty"`
	AppUID     string               `json:"app_uid,omitempty"`
}

// OK reports whether the run produced or found keywords.
func (r *Result) OK() bool {
	return r.Status != StatusFailed
}

// Pipeline runs the plan for one listing at a time; it holds no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	fetcher     Fetcher
	synthesizer Synthesizer
	store       Store
	metrics     *Metrics
	log         logger.Logger
}

// New creates a pipeline. metrics may be nil.
func New(fetcher Fetcher, synthesizer Synthesizer, store Store, metrics *Metrics, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		fetcher:     fetcher,
		synthesizer: synthesizer,
		store:       store,
		metrics:     metrics,
		log:         log,
	}
}

// Run executes lookup, fetch, synthesize, persist facts, persist keywords,
// stopping at the first failure. Nothing is written on a failed run except
// facts persisted before a keyword-persist failure.
func (p *Pipeline) Run(ctx context.Context, appURL, country string) *Result {
	start := time.Now()
	country = strings.ToLower(strings.TrimSpace(country))
	appURL = strings.TrimSpace(appURL)
	res := &Result{AppURL: appURL, Country: country}

	if p.metrics != nil {
		p.metrics.InFlight.Inc()
		defer p.metrics.InFlight.Dec()
	}
	defer func() {
		res.Duration = time.Since(start)
		p.metrics.observe(res)
		p.logResult(res)
	}()

	if appURL == "" {
		return res.fail(StageInput, "Please enter an App Store URL.", nil)
	}
	if !appstore.IsSupportedCountry(country) {
		return res.fail(StageInput, fmt.Sprintf("Unsupported country %q.", country), nil)
	}

	app, kw := p.store.Lookup(ctx, appURL, country)
	if app != nil && kw != nil {
		res.Status = StatusCached
		res.Stage = StageLookup
		res.Message = "Found existing data for this app. Displaying from the catalog."
		res.App = app
		res.Keywords = kw
		return res
	}

	record, err := p.fetcher.Fetch(ctx, appURL, country)
	if err != nil {
		return res.fail(StageFetch, "Failed to scrape app details. Please check the URL and try again.", err)
	}
	res.Record = record
	res.AppURL = record.AppURL

	set, err := p.synthesizer.Synthesize(ctx, record)
	if err != nil {
		return res.fail(StageSynthesize, "Failed to generate AI keywords.", err)
	}
	res.KeywordSet = set

	uid, err := p.store.UpsertAppRecord(ctx, record, country)
	if err != nil {
		return res.fail(StagePersistRecord, "Failed to ingest app details into the catalog.", err)
	}
	res.AppUID = uid

	if record.AppID == appstore.UnknownAppID {
		p.log.Warn("Could not determine app id, keyword set is stored under unknown_id",
			logger.String("app_url", record.AppURL),
			logger.String("app_uid", uid),
		)
	}

	if err := p.store.UpsertKeywordSet(ctx, set, record, uid, record.AppID, country); err != nil {
		return res.fail(StagePersistKeywords, "Failed to ingest AI keywords into the catalog.", err)
	}

	res.Status = StatusGenerated
	res.Stage = StagePersistKeywords
	res.Message = "Successfully generated and stored app details and AI keywords."
	return res
}

func (r *Result) fail(stage Stage, msg string, err error) *Result {
	r.Status = StatusFailed
	r.Stage = stage
	r.Message = msg
	r.Err = err
	return r
}

func (p *Pipeline) logResult(r *Result) {
	fields := []logger.Field{
		logger.String("status", string(r.Status)),
		logger.String("stage", string(r.Stage)),
		logger.String("app_url", r.AppURL),
		logger.String("country", r.Country),
		logger.Duration("took", r.Duration),
	}
	if r.Err != nil {
		fields = append(fields, logger.Error(r.Err))
	}

	if r.Status == StatusFailed {
		p.log.Error("Pipeline run failed", fields...)
		return
	}
	p.log.Info("Pipeline run complete", fields...)
}
