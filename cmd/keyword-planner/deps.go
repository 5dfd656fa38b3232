package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/catalog"
	"github.com/renderinc/keyword-planner/internal/config"
	"github.com/renderinc/keyword-planner/internal/keywords"
	"github.com/renderinc/keyword-planner/internal/llm"
	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/renderinc/keyword-planner/internal/pipeline"
)

// deps holds everything a command may need. Only the catalog owns resources.
type deps struct {
	cfg     *config.Config
	log     logger.Logger
	backend catalog.Backend
	catalog *catalog.Catalog
	// model is set by newPipeline.
	model llm.ChatModel
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Development: debug})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newStoreDeps validates the store settings and opens the backend. The LLM
// settings are checked later by newPipeline, so read-only commands work without a model key.
func newStoreDeps() (*deps, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := openBackend(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:     cfg,
		log:     log,
		backend: backend,
		catalog: catalog.New(backend, log),
	}, nil
}

func openBackend(store config.StoreConfig, log logger.Logger) (catalog.Backend, error) {
	switch store.Backend {
	case config.BackendLocal:
		return catalog.OpenLocal(store.DataDir, log)
	case config.BackendElasticsearch:
		return catalog.NewElasticsearchBackend(catalog.ElasticsearchConfig{
			URL:         store.Host,
			APIKey:      store.APIKey,
			Username:    store.Username,
			Password:    store.Password,
			IndexPrefix: store.IndexPrefix,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported store.backend %q", store.Backend)
	}
}

// newPipeline validates the full configuration and wires the planner.
func (d *deps) newPipeline(reg prometheus.Registerer) (*pipeline.Pipeline, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	model, err := llm.NewChatModel(d.cfg.LLM.Provider, llm.Options{
		APIKey:  d.cfg.LLM.APIKey,
		Model:   d.cfg.LLM.Model,
		BaseURL: d.cfg.LLM.BaseURL,
		Timeout: d.cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	d.log.Info("Using language model", logger.String("model", model.Name()))
	d.model = model

	fetcher := appstore.NewClient(appstore.Options{
		Timeout:        d.cfg.Fetch.Timeout,
		UserAgent:      d.cfg.Fetch.UserAgent,
		MaxCompetitors: d.cfg.Fetch.MaxCompetitors,
	}, d.log)

	return pipeline.New(
		fetcher,
		keywords.NewSynthesizer(model, d.log),
		d.catalog,
		pipeline.NewMetrics(reg),
		d.log,
	), nil
}

func (d *deps) close() {
	if err := d.catalog.Close(); err != nil {
		d.log.Warn("Failed to close catalog", logger.Error(err))
	}
	_ = d.log.Sync()
}
