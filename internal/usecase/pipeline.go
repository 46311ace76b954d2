// Package usecase orchestrates generation, regeneration and review of articles.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/synthesis"
)

const imageQueryRunes = 150

// SourceSelector returns the ranked evidence for a topic.
type SourceSelector interface {
	Select(ctx context.Context, topic string, breadth, threshold, limit int) ([]domain.SourceRecord, error)
}

// DraftSynthesizer writes a draft from evidence.
type DraftSynthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (domain.Draft, error)
}

// PipelineDeps wires all driven adapters into the generation pipeline.
type PipelineDeps struct {
	Selector    SourceSelector
	Synthesizer DraftSynthesizer
	Images      ports.ImageFinder
	Store       ports.ProvenanceStore
	Notifier    ports.Notifier
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	NewRunID    func() string
}

// Pipeline implements the article-generation workflow.
type Pipeline struct {
	selector    SourceSelector
	synthesizer DraftSynthesizer
	images      ports.ImageFinder
	store       ports.ProvenanceStore
	notifier    ports.Notifier
	metrics     *metrics.Recorder
	logger      *slog.Logger
	newRunID    func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Pipeline{
		selector:    deps.Selector,
		synthesizer: deps.Synthesizer,
		images:      deps.Images,
		store:       deps.Store,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      logger,
		newRunID:    newRunID,
	}
}

// RunGeneration selects evidence, synthesizes a draft and persists it with its
// images and provenance as one unit. It returns the new article id. Failures
// are wrapped in domain.ErrRunFailed together with their category sentinel.
func (p *Pipeline) RunGeneration(ctx context.Context, params domain.GenerationParams) (id int64, err error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	runID := p.newRunID()
	log := p.logger.With("run_id", runID, "topic", params.Topic)

	defer func() {
		if r := recover(); r != nil {
			log.Error("generation run panicked", "panic", r)
			p.metrics.RunOutcome(metrics.RunFailed)
			id, err = 0, fmt.Errorf("%w: run %s aborted", domain.ErrRunFailed, runID)
		}
	}()

	log.Info("generation run started",
		"search_breadth", params.SearchBreadth,
		"score_threshold", params.ScoreThreshold,
		"selector_result_limit", params.SelectorResultLimit,
		"synth_result_limit", params.SynthResultLimit)

	selected, err := p.selector.Select(ctx, params.Topic, params.SearchBreadth, params.ScoreThreshold, params.SelectorResultLimit)
	if err != nil {
		if errors.Is(err, domain.ErrNoUsableSources) {
			log.Warn("generation run found no usable sources", "error", err)
			p.metrics.RunOutcome(metrics.RunNoSources)
			return 0, p.failure(runID, domain.ErrNoUsableSources)
		}
		return 0, p.fail(log, runID, "select sources", nil, err)
	}

	evidence := selected
	if len(evidence) > params.SynthResultLimit {
		evidence = evidence[:params.SynthResultLimit]
	}

	draft, err := p.synthesizer.Synthesize(ctx, synthesis.Request{
		Topic:       params.Topic,
		Evidence:    evidence,
		LengthWords: params.LengthWords,
		Tone:        params.Tone,
	})
	if err != nil {
		category := domain.ErrSynthesisFailed
		if errors.Is(err, domain.ErrNoEvidence) {
			category = domain.ErrNoEvidence
		}
		return 0, p.fail(log, runID, "synthesize", category, err)
	}

	images := p.findImages(ctx, log, draft, params.ImageCount)

	article := domain.GeneratedArticle{
		Topic:              params.Topic,
		Title:              draft.Title,
		MetaDescription:    draft.MetaDescription,
		Body:               draft.Body,
		Tags:               draft.Tags,
		AverageSourceScore: domain.AverageScore(evidence),
		Status:             domain.StatusGenerated,
	}
	sourceIDs := make([]int64, 0, len(evidence))
	for _, src := range evidence {
		sourceIDs = append(sourceIDs, src.ID)
	}

	err = p.store.Atomically(ctx, func(tx ports.ProvenanceStore) error {
		articleID, err := tx.PersistGeneratedArticle(ctx, &article)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			if err := tx.PersistImages(ctx, articleID, images); err != nil {
				return err
			}
		}
		if err := tx.LinkSourcesToArticle(ctx, articleID, sourceIDs); err != nil {
			return err
		}
		for _, sourceID := range sourceIDs {
			if err := tx.MarkSourceConsumed(ctx, sourceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, p.fail(log, runID, "persist article", nil, err)
	}
	article.Images = images

	p.metrics.RunOutcome(metrics.RunSucceeded)
	log.Info("generation run finished", "article_id", article.ID, "sources", len(sourceIDs), "images", len(images))

	p.notify(ctx, log, article)
	return article.ID, nil
}

func (p *Pipeline) findImages(ctx context.Context, log *slog.Logger, draft domain.Draft, count int) []domain.ImageRecord {
	if count <= 0 || p.images == nil {
		return nil
	}
	query := ImageQuery(draft.Title, draft.Tags)
	images, err := p.images.FindImages(ctx, query, count)
	if err != nil {
		log.Warn("image search failed, continuing without images", "query", query, "error", err)
		return nil
	}
	if len(images) > count {
		images = images[:count]
	}
	return images
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, article domain.GeneratedArticle) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyDraft(ctx, article); err != nil {
		log.Warn("draft notification failed", "article_id", article.ID, "error", err)
	}
}

// fail logs the cause and returns an opaque run failure carrying only category.
func (p *Pipeline) fail(log *slog.Logger, runID, stage string, category, cause error) error {
	log.Error("generation run failed", "stage", stage, "error", cause)
	p.metrics.RunOutcome(metrics.RunFailed)
	return p.failure(runID, category)
}

func (p *Pipeline) failure(runID string, category error) error {
	if category == nil {
		return fmt.Errorf("%w: run %s", domain.ErrRunFailed, runID)
	}
	return fmt.Errorf("%w: run %s: %w", domain.ErrRunFailed, runID, category)
}

// ImageQuery builds the stock image search string from a title and its tags.
func ImageQuery(title string, tags []string) string {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.Join(tags, " "))
	if utf8.RuneCountInString(query) <= imageQueryRunes {
		return query
	}
	return strings.TrimSpace(string([]rune(query)[:imageQueryRunes]))
}
