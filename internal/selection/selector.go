// Package selection discovers, scores and ranks the evidence for one topic.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/ports"
)

// Selector runs the source-selection protocol.
type Selector struct {
	search   ports.SearchProvider
	gatherer EvidenceGatherer
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewSelector wires a search provider with an evidence gatherer.
func NewSelector(search ports.SearchProvider, gatherer EvidenceGatherer, rec *metrics.Recorder, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{search: search, gatherer: gatherer, metrics: rec, logger: logger}
}

// Select returns at most limit persisted records scoring at least threshold,
// best first. Ties keep discovery order. An empty result is domain.ErrNoUsableSources.
func (s *Selector) Select(ctx context.Context, topic string, breadth, threshold, limit int) ([]domain.SourceRecord, error) {
	urls, err := s.search.Search(ctx, topic, breadth)
	if err != nil {
		s.logger.Warn("search failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("%w: search: %v", domain.ErrNoUsableSources, err)
	}
	candidates := dropSocial(urls, breadth)
	s.logger.Info("candidate urls", "topic", topic, "returned", len(urls), "kept", len(candidates))

	gathered := s.gatherer.Gather(ctx, topic, candidates)
	selected := Rank(gathered, threshold, limit)

	for _, rec := range gathered {
		if !rec.Degraded && !rec.Eligible(threshold) {
			s.metrics.SourceOutcome(metrics.SourceBelowThreshold)
		}
	}
	for range selected {
		s.metrics.SourceOutcome(metrics.SourceAccepted)
	}

	if len(selected) == 0 {
		return nil, domain.ErrNoUsableSources
	}
	s.logger.Info("sources selected", "topic", topic, "scored", len(gathered), "selected", len(selected))
	return selected, nil
}

// Rank filters records to those eligible at threshold, sorts them by descending
// score with a stable sort and truncates to limit.
func Rank(records []domain.SourceRecord, threshold, limit int) []domain.SourceRecord {
	eligible := make([]domain.SourceRecord, 0, len(records))
	for _, rec := range records {
		if rec.Eligible(threshold) {
			eligible = append(eligible, rec)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Score > eligible[j].Score
	})
	if limit >= 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible
}
