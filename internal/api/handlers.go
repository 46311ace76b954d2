package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/runner"
)

const maxRequestBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Topics.List(r.Context())
	if err != nil {
		s.respondFailure(w, "list sections", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"sections": topics})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	params, err := s.deps.Topics.Get(r.Context(), chi.URLParam(r, "topic"))
	if err != nil {
		s.respondFailure(w, "get topic config", err)
		return
	}
	s.respondJSON(w, http.StatusOK, params)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var params domain.GenerationParams
	if !s.decode(w, r, &params) {
		return
	}
	params.Topic = chi.URLParam(r, "topic")

	saved, err := s.deps.Topics.Save(r.Context(), params)
	if err != nil {
		s.respondFailure(w, "save topic config", err)
		return
	}
	s.respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}

	base, err := s.deps.Topics.Get(r.Context(), req.Topic)
	if err != nil {
		s.respondFailure(w, "load topic config", err)
		return
	}
	params := req.merge(base)

	id, err := runner.Do(r.Context(), s.deps.Pool, func(ctx context.Context) (int64, error) {
		return s.deps.Generator.RunGeneration(ctx, params)
	})
	if err != nil {
		s.respondFailure(w, "generate", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int64{"article_id": id})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ArticleFilter{
		Topic:  strings.TrimSpace(q.Get("topic")),
		Status: domain.ArticleStatus(strings.TrimSpace(q.Get("status"))),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	articles, err := s.deps.Review.ListArticles(r.Context(), filter)
	if err != nil {
		s.respondFailure(w, "list articles", err)
		return
	}
	resp := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toArticleResponse(a))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	article, err := s.deps.Review.Article(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "get article", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toArticleResponse(article))
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !s.decode(w, r, &req) {
		return
	}
	article, err := s.deps.Review.Update(r.Context(), id, req.toDomain())
	if err != nil {
		s.respondFailure(w, "update article", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toArticleResponse(article))
}

func (s *Server) handleArticleSources(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	sources, err := s.deps.Review.Sources(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "article sources", err)
		return
	}
	resp := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, toSourceResponse(src, false))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	text, err := runner.Do(r.Context(), s.deps.Pool, func(ctx context.Context) (string, error) {
		return s.deps.Review.Suggestions(ctx, id)
	})
	if err != nil {
		s.respondFailure(w, "suggestions", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"suggestions": text})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	article, err := s.deps.Review.Publish(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "publish article", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toArticleResponse(article))
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	var req rewriteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "instruction is required")
		return
	}

	body, err := runner.Do(r.Context(), s.deps.Pool, func(ctx context.Context) (string, error) {
		return s.deps.Rewriter.Regenerate(ctx, id, req.Body, req.Instruction)
	})
	if err != nil {
		s.respondFailure(w, "rewrite article", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"body": body})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	sources, err := s.deps.Review.DiscoveredSources(r.Context(), limit)
	if err != nil {
		s.respondFailure(w, "list sources", err)
		return
	}
	resp := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, toSourceResponse(src, false))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid article id")
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondFailure maps domain errors to statuses with opaque messages.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrArticleNotFound):
		status, message = http.StatusNotFound, "article not found"
	case errors.Is(err, domain.ErrInvalidParams):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNoProvenance):
		status, message = http.StatusUnprocessableEntity, "article has no recorded sources"
	case errors.Is(err, domain.ErrNoUsableSources):
		status, message = http.StatusUnprocessableEntity, "no usable sources found"
	case errors.Is(err, domain.ErrNoEvidence):
		status, message = http.StatusUnprocessableEntity, "no evidence with content"
	case errors.Is(err, domain.ErrRunFailed), errors.Is(err, domain.ErrSynthesisFailed):
		message = "generation failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "request abandoned"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "error", err)
	} else {
		s.logger.Info("request rejected", "op", op, "status", status, "error", err)
	}
	s.respondError(w, status, message)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
