package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/prompt"
	"SEOPilot/internal/synthesis"
)

// Regenerator rewrites an article body from the evidence it was generated from.
type Regenerator struct {
	store       ports.ProvenanceStore
	topics      *Topics
	synthesizer DraftSynthesizer
	prompts     *prompt.Set
	logger      *slog.Logger
}

// NewRegenerator wires the regeneration orchestrator.
func NewRegenerator(store ports.ProvenanceStore, topics *Topics, synthesizer DraftSynthesizer, prompts *prompt.Set, logger *slog.Logger) *Regenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Regenerator{store: store, topics: topics, synthesizer: synthesizer, prompts: prompts, logger: logger}
}

// Regenerate returns a new body for article id following instruction. The
// edited body is shown to the model as context only; the rewrite is derived from
// the linked sources. Articles without provenance are refused with
// domain.ErrNoProvenance.
func (r *Regenerator) Regenerate(ctx context.Context, id int64, editedBody, instruction string) (string, error) {
	log := r.logger.With("article_id", id)

	article, err := r.store.GetArticle(ctx, id)
	if err != nil {
		return "", err
	}

	evidence, err := r.store.GetSourcesForArticle(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load provenance: %w", err)
	}
	if len(evidence) == 0 {
		log.Warn("regeneration refused, no provenance recorded")
		return "", fmt.Errorf("article %d: %w", id, domain.ErrNoProvenance)
	}

	params, err := r.topics.Get(ctx, article.Topic)
	if err != nil {
		return "", err
	}

	current := editedBody
	if strings.TrimSpace(current) == "" {
		current = article.Body
	}
	modification, err := r.prompts.Modification(prompt.ModificationData{
		Title:       article.Title,
		CurrentText: current,
		Instruction: strings.TrimSpace(instruction),
	})
	if err != nil {
		return "", err
	}

	log.Info("regenerating article", "topic", article.Topic, "sources", len(evidence))
	draft, err := r.synthesizer.Synthesize(ctx, synthesis.Request{
		Topic:        article.Topic,
		Evidence:     evidence,
		LengthWords:  params.LengthWords,
		Tone:         params.Tone,
		Modification: modification,
	})
	if err != nil {
		log.Error("regeneration failed", "error", err)
		return "", err
	}
	return draft.Body, nil
}
