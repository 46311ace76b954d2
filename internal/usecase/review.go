package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/prompt"
	"SEOPilot/internal/structured"
)

// Review backs the review surface over generated articles and sources.
type Review struct {
	store     ports.ProvenanceStore
	catalog   ports.ArticleCatalog
	topics    *Topics
	completer ports.Completer
	prompts   *prompt.Set
	logger    *slog.Logger
}

// ReviewDeps groups the collaborators of Review.
type ReviewDeps struct {
	Store     ports.ProvenanceStore
	Catalog   ports.ArticleCatalog
	Topics    *Topics
	Completer ports.Completer
	Prompts   *prompt.Set
	Logger    *slog.Logger
}

// NewReview wires the review service.
func NewReview(deps ReviewDeps) *Review {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Review{
		store:     deps.Store,
		catalog:   deps.Catalog,
		topics:    deps.Topics,
		completer: deps.Completer,
		prompts:   deps.Prompts,
		logger:    logger,
	}
}

// ListArticles returns articles newest first.
func (r *Review) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.GeneratedArticle, error) {
	return r.catalog.ListArticles(ctx, filter)
}

// Article loads one article with its images.
func (r *Review) Article(ctx context.Context, id int64) (domain.GeneratedArticle, error) {
	return r.store.GetArticle(ctx, id)
}

// Update applies user edits and returns the stored article.
func (r *Review) Update(ctx context.Context, id int64, update domain.ArticleUpdate) (domain.GeneratedArticle, error) {
	if update.Status != nil {
		status := domain.ArticleStatus(strings.TrimSpace(string(*update.Status)))
		if status == "" {
			return domain.GeneratedArticle{}, fmt.Errorf("%w: status must not be empty", domain.ErrInvalidParams)
		}
		update.Status = &status
	}
	if err := r.catalog.UpdateArticle(ctx, id, update); err != nil {
		return domain.GeneratedArticle{}, err
	}
	r.logger.Info("article updated", "article_id", id)
	return r.store.GetArticle(ctx, id)
}

// Publish marks an article as published.
func (r *Review) Publish(ctx context.Context, id int64) (domain.GeneratedArticle, error) {
	status := domain.StatusPublished
	return r.Update(ctx, id, domain.ArticleUpdate{Status: &status})
}

// Sources returns the provenance of an article in evidence order.
func (r *Review) Sources(ctx context.Context, id int64) ([]domain.SourceRecord, error) {
	if _, err := r.store.GetArticle(ctx, id); err != nil {
		return nil, err
	}
	return r.store.GetSourcesForArticle(ctx, id)
}

// DiscoveredSources lists every discovered source without its text.
func (r *Review) DiscoveredSources(ctx context.Context, limit int) ([]domain.SourceRecord, error) {
	return r.catalog.ListSources(ctx, limit)
}

// Suggestions asks the model for plain-text improvement ideas for an article.
func (r *Review) Suggestions(ctx context.Context, id int64) (string, error) {
	article, err := r.store.GetArticle(ctx, id)
	if err != nil {
		return "", err
	}
	params, err := r.topics.Get(ctx, article.Topic)
	if err != nil {
		return "", err
	}

	var avg float64
	if article.AverageSourceScore != nil {
		avg = *article.AverageSourceScore
	}
	rendered, err := r.prompts.Suggestions(prompt.SuggestionsData{
		Title:           article.Title,
		MetaDescription: article.MetaDescription,
		Tags:            article.Tags,
		Topic:           article.Topic,
		AverageScore:    avg,
		Body:            article.Body,
		Tone:            params.Tone,
	})
	if err != nil {
		return "", err
	}

	answer, err := r.completer.Complete(ctx, rendered)
	if err != nil {
		r.logger.Warn("suggestions completion failed", "article_id", id, "error", err)
		return "", fmt.Errorf("complete suggestions prompt: %w", err)
	}
	text := structured.PlainText(answer)
	if text == "" {
		return "", fmt.Errorf("model returned no suggestions")
	}
	return text, nil
}
