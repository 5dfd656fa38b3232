// Package web serves the planner form and its JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/catalog"
	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/renderinc/keyword-planner/internal/pipeline"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Planner runs the keyword pipeline for one listing.
type Planner interface {
	Run(ctx context.Context, appURL, country string) *pipeline.Result
}

// Catalog is the read side of the document store.
type Catalog interface {
	Lookup(ctx context.Context, appURL, country string) (*catalog.AppDocument, *catalog.KeywordDocument)
	Search(ctx context.Context, collection, text string, limit int) ([]catalog.Hit, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// Server serves the planner form, the JSON API, health and metrics.
type Server struct {
	planner  Planner
	catalog  Catalog
	gatherer prometheus.Gatherer
	log      logger.Logger
	engine   *gin.Engine
	checks   []healthCheck
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	AppURL  string `json:"app_url" form:"app_url"`
	Country string `json:"country" form:"country"`
}

type country struct {
	Code string
	Name string
}

// NewServer creates the HTTP server. gatherer backs /metrics (the default gatherer when nil).
func NewServer(planner Planner, cat Catalog, gatherer prometheus.Gatherer, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	s := &Server{
		planner:  planner,
		catalog:  cat,
		gatherer: gatherer,
		log:      log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.SetHTMLTemplate(tmpl)
	s.routes(engine)
	s.engine = engine

	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.handleIndex)
	r.POST("/plan", s.handlePlanForm)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.POST("/plan", s.handlePlan)
	api.GET("/lookup", s.handleLookup)
	api.GET("/search", s.handleSearch)
}

// AddHealthCheck adds a dependency probe reported by /health. A failing probe
// marks the service degraded.
func (s *Server) AddHealthCheck(name string, check func(ctx context.Context) error) {
	s.checks = append(s.checks, healthCheck{name: name, check: check})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger logs one line per request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			s.log.Error("HTTP request with errors", append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		s.log.Info("HTTP request", fields...)
	}
}

func countries() []country {
	codes := appstore.SupportedCountries()
	out := make([]country, 0, len(codes))
	for _, code := range codes {
		out = append(out, country{Code: code, Name: appstore.CountryName(code)})
	}
	return out
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Countries": countries(),
		"Country":   "us",
	})
}

func (s *Server) handlePlanForm(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid form: %v", err)
		return
	}

	res := s.planner.Run(c.Request.Context(), req.AppURL, req.Country)

	var appJSON, keywordsJSON string
	switch {
	case res.App != nil || res.Keywords != nil:
		appJSON, keywordsJSON = prettyJSON(res.App), prettyJSON(res.Keywords)
	case res.Record != nil:
		appJSON = prettyJSON(res.Record)
		if res.KeywordSet != nil {
			keywordsJSON = prettyJSON(res.KeywordSet)
		}
	}

	c.HTML(statusFor(res), "index.html", gin.H{
		"Countries":    countries(),
		"Country":      res.Country,
		"AppURL":       req.AppURL,
		"Result":       res,
		"AppJSON":      appJSON,
		"KeywordsJSON": keywordsJSON,
	})
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// statusFor maps a run outcome to an HTTP status
func statusFor(res *pipeline.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	switch res.Stage {
	case pipeline.StageInput:
		return http.StatusBadRequest
	case pipeline.StageFetch, pipeline.StageSynthesize:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.planner.Run(c.Request.Context(), req.AppURL, req.Country)
	if res.Err != nil {
		_ = c.Error(res.Err)
	}

	body := gin.H{"result": res}
	if !res.OK() {
		body["error"] = res.Message
	}
	c.JSON(statusFor(res), body)
}

func (s *Server) handleLookup(c *gin.Context) {
	appURL := c.Query("url")
	if appURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	cc := strings.ToLower(c.DefaultQuery("country", "us"))

	app, kw := s.catalog.Lookup(c.Request.Context(), appURL, cc)
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"app": app, "keywords": kw})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	hits, err := s.catalog.Search(c.Request.Context(), c.Query("collection"), query, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{"status": "ok"}
	status := http.StatusOK

	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		body["documents"] = stats
	}

	if len(s.checks) > 0 {
		results := make(map[string]string, len(s.checks))
		for _, hc := range s.checks {
			if err := hc.check(ctx); err != nil {
				results[hc.name] = err.Error()
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			results[hc.name] = "ok"
		}
		body["checks"] = results
	}

	c.JSON(status, body)
}
