// Package scoring asks the language model how useful a page is for a topic.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/prompt"
	"SEOPilot/internal/structured"
)

// MaxInputRunes bounds the page text sent to the model.
const MaxInputRunes = 8000

// ErrNoUsableScore means the model answered with JSON but without a score in range.
var ErrNoUsableScore = errors.New("verdict has no usable score")

// Scorer produces relevance verdicts.
type Scorer struct {
	completer ports.Completer
	prompts   *prompt.Set
	decoder   structured.Decoder
	logger    *slog.Logger
}

// New wires a scorer around a completion provider.
func New(completer ports.Completer, prompts *prompt.Set, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		completer: completer,
		prompts:   prompts,
		decoder:   structured.Decoder{Policy: structured.Degrade},
		logger:    logger,
	}
}

type rawVerdict struct {
	Score   any    `json:"score"`
	Reason  string `json:"reason"`
	Summary string `json:"summary"`
	Resumen string `json:"resumen"`
	Title   string `json:"title"`
	Tags    any    `json:"tags"`
}

// Score rates text against topic. A response without any JSON object yields the
// degraded verdict; every other problem is returned as an error.
func (s *Scorer) Score(ctx context.Context, topic, text string) (domain.Verdict, error) {
	rendered, err := s.prompts.Scoring(prompt.ScoringData{Topic: topic, Text: truncate(text, MaxInputRunes)})
	if err != nil {
		return domain.Verdict{}, err
	}

	answer, err := s.completer.Complete(ctx, rendered)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("complete scoring prompt: %w", err)
	}

	var raw rawVerdict
	outcome, err := s.decoder.Decode(answer, &raw)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if outcome == structured.OutcomeDegraded {
		s.logger.Warn("scoring response carried no JSON", "topic", topic, "response_prefix", truncate(answer, 200))
		return domain.DegradedVerdict(), nil
	}

	score, ok := parseScore(raw.Score)
	if !ok {
		return domain.Verdict{}, fmt.Errorf("%w: %v", ErrNoUsableScore, raw.Score)
	}

	summary := firstNonEmpty(raw.Summary, raw.Resumen, raw.Reason)
	return domain.Verdict{
		Score:   score,
		Reason:  strings.TrimSpace(raw.Reason),
		Summary: summary,
		Title:   strings.TrimSpace(raw.Title),
		Tags:    parseTags(raw.Tags),
	}, nil
}

func parseScore(v any) (int, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	score := int(math.Round(f))
	if score < domain.MinScore || score > domain.MaxScore {
		return 0, false
	}
	return score, true
}

func parseTags(v any) []string {
	tags := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				tags = appendTag(tags, s)
			}
		}
	case string:
		for _, part := range strings.Split(val, ",") {
			tags = appendTag(tags, part)
		}
	}
	return tags
}

func appendTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return tags
	}
	return append(tags, tag)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
