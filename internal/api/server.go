// Package api exposes generation and review over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/runner"
)

// Generator runs one generation.
type Generator interface {
	RunGeneration(ctx context.Context, params domain.GenerationParams) (int64, error)
}

// Rewriter regenerates an article body from its provenance.
type Rewriter interface {
	Regenerate(ctx context.Context, id int64, editedBody, instruction string) (string, error)
}

// Reviewer is the article review surface.
type Reviewer interface {
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.GeneratedArticle, error)
	Article(ctx context.Context, id int64) (domain.GeneratedArticle, error)
	Update(ctx context.Context, id int64, update domain.ArticleUpdate) (domain.GeneratedArticle, error)
	Publish(ctx context.Context, id int64) (domain.GeneratedArticle, error)
	Sources(ctx context.Context, id int64) ([]domain.SourceRecord, error)
	DiscoveredSources(ctx context.Context, limit int) ([]domain.SourceRecord, error)
	Suggestions(ctx context.Context, id int64) (string, error)
}

// TopicConfigs manages per-topic parameters.
type TopicConfigs interface {
	Get(ctx context.Context, topic string) (domain.GenerationParams, error)
	Save(ctx context.Context, params domain.GenerationParams) (domain.GenerationParams, error)
	List(ctx context.Context) ([]string, error)
}

// Deps groups the handlers' collaborators.
type Deps struct {
	Generator Generator
	Rewriter  Rewriter
	Review    Reviewer
	Topics    TopicConfigs
	Pool      *runner.Pool
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Server is the HTTP server of the review and generation API.
type Server struct {
	deps   Deps
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Pool == nil {
		deps.Pool = runner.NewPool(1, logger)
	}
	return &Server{deps: deps, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.deps.Metrics.Handler())

	r.Get("/sections", s.handleSections)
	r.Get("/config/{topic}", s.handleGetConfig)
	r.Put("/config/{topic}", s.handleSaveConfig)

	r.Post("/generate", s.handleGenerate)

	r.Get("/articles", s.handleListArticles)
	r.Route("/articles/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetArticle)
		r.Put("/", s.handleUpdateArticle)
		r.Get("/sources", s.handleArticleSources)
		r.Post("/suggestions", s.handleSuggestions)
		r.Post("/publish", s.handlePublish)
		r.Post("/rewrite", s.handleRewrite)
	})

	r.Get("/sources", s.handleListSources)
	return r
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting http server", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and waits for in-flight jobs.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.deps.Pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown with generation jobs still running")
	}
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
