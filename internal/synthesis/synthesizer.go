// Package synthesis turns an evidence set into an article draft.
package synthesis

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

var requiredKeys = []string{"title", "meta_description", "tags", "body"}

// Request describes one synthesis call. Modification is an already rendered
// revision block or empty for a first generation.
type Request struct {
	Topic        string
	Evidence     []domain.SourceRecord
	LengthWords  int
	Tone         string
	Modification string
}

// Synthesizer writes drafts from evidence with the language model.
type Synthesizer struct {
	completer ports.Completer
	prompts   *prompt.Set
	decoder   structured.Decoder
	logger    *slog.Logger
}

// New wires a synthesizer around a completion provider.
func New(completer ports.Completer, prompts *prompt.Set, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		completer: completer,
		prompts:   prompts,
		decoder:   structured.Decoder{Policy: structured.Strict, RequiredKeys: requiredKeys},
		logger:    logger,
	}
}

type rawDraft struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
	Body            string   `json:"body"`
}

// Synthesize produces a draft. Evidence without text is skipped; when nothing is
// left domain.ErrNoEvidence is returned and the model is not called.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (domain.Draft, error) {
	blocks := EvidenceBlocks(req.Evidence)
	if len(blocks) == 0 {
		return domain.Draft{}, domain.ErrNoEvidence
	}

	rendered, err := s.prompts.Synthesis(prompt.SynthesisData{
		Topic:        req.Topic,
		Sources:      blocks,
		LengthWords:  req.LengthWords,
		Tone:         req.Tone,
		Modification: req.Modification,
	})
	if err != nil {
		return domain.Draft{}, err
	}

	s.logger.Info("synthesizing draft", "topic", req.Topic, "sources", len(blocks), "revision", req.Modification != "")

	answer, err := s.completer.Complete(ctx, rendered)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("%w: complete synthesis prompt: %v", domain.ErrSynthesisFailed, err)
	}

	var raw rawDraft
	if _, err := s.decoder.Decode(answer, &raw); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}

	draft := domain.Draft{
		Topic:           req.Topic,
		Title:           strings.TrimSpace(raw.Title),
		MetaDescription: strings.TrimSpace(raw.MetaDescription),
		Body:            strings.TrimSpace(raw.Body),
		Tags:            raw.Tags,
	}
	if draft.Title == "" || draft.Body == "" {
		return domain.Draft{}, fmt.Errorf("%w: empty title or body", domain.ErrSynthesisFailed)
	}
	if draft.Tags == nil {
		draft.Tags = []string{}
	}
	return draft, nil
}

// EvidenceBlocks labels every source with text in evidence order.
func EvidenceBlocks(evidence []domain.SourceRecord) []prompt.EvidenceBlock {
	blocks := make([]prompt.EvidenceBlock, 0, len(evidence))
	for _, src := range evidence {
		if strings.TrimSpace(src.RawText) == "" {
			continue
		}
		name := src.Title
		if strings.TrimSpace(name) == "" {
			name = src.URL
		}
		blocks = append(blocks, prompt.EvidenceBlock{
			Label: fmt.Sprintf("Source %d: %s", len(blocks)+1, name),
			Text:  src.RawText,
		})
	}
	return blocks
}
