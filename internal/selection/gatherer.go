package selection

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/ports"
)

// VerdictScorer rates page text for a topic.
type VerdictScorer interface {
	Score(ctx context.Context, topic, text string) (domain.Verdict, error)
}

// SourceStore is the part of the provenance store selection writes to.
type SourceStore interface {
	PersistSource(ctx context.Context, record *domain.SourceRecord) (int64, error)
	LookupSource(ctx context.Context, rawURL string) (int64, bool, error)
}

// EvidenceGatherer turns candidate URLs into persisted, scored source records.
// Returned records keep discovery order.
type EvidenceGatherer interface {
	Gather(ctx context.Context, topic string, urls []string) []domain.SourceRecord
}

// Steps holds the per-URL stages shared by every gatherer.
type Steps struct {
	Resolver        ports.URLResolver
	Fetcher         ports.ContentFetcher
	Scorer          VerdictScorer
	Store           SourceStore
	Metrics         *metrics.Recorder
	Logger          *slog.Logger
	MinContentRunes int
	Now             func() time.Time
}

type candidate struct {
	url     string
	page    ports.Page
	verdict domain.Verdict
}

func (s *Steps) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Steps) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// resolve follows redirects and falls back to the original URL on failure.
func (s *Steps) resolve(ctx context.Context, rawURL string) string {
	if s.Resolver == nil {
		return rawURL
	}
	final, err := s.Resolver.Resolve(ctx, rawURL)
	if err != nil || strings.TrimSpace(final) == "" {
		s.logger().Debug("redirect resolution failed, keeping original url", "url", rawURL, "error", err)
		return rawURL
	}
	return final
}

// admit decides whether a resolved URL is worth fetching. seen holds final URLs
// already handled in this run.
func (s *Steps) admit(ctx context.Context, finalURL string, seen map[string]struct{}) bool {
	log := s.logger()
	if _, dup := seen[finalURL]; dup {
		log.Debug("skip duplicate url in run", "url", finalURL)
		s.Metrics.SourceOutcome(metrics.SourceDuplicate)
		return false
	}
	seen[finalURL] = struct{}{}

	if _, known, err := s.Store.LookupSource(ctx, finalURL); err != nil {
		log.Warn("source lookup failed", "url", finalURL, "error", err)
	} else if known {
		log.Info("skip known source", "url", finalURL)
		s.Metrics.SourceOutcome(metrics.SourceKnown)
		return false
	}

	if IsNonArticle(finalURL) {
		log.Debug("skip non-article url", "url", finalURL)
		s.Metrics.SourceOutcome(metrics.SourceNotArticle)
		return false
	}
	return true
}

// evaluate fetches and scores one URL.
func (s *Steps) evaluate(ctx context.Context, topic, finalURL string) (candidate, bool) {
	log := s.logger()
	page, err := s.Fetcher.Fetch(ctx, finalURL)
	if err != nil {
		log.Warn("fetch failed", "url", finalURL, "error", err)
		s.Metrics.SourceOutcome(metrics.SourceFetchFailed)
		return candidate{}, false
	}
	text := strings.TrimSpace(page.Text)
	if text == "" || utf8.RuneCountInString(text) < s.MinContentRunes {
		log.Info("skip page without usable content", "url", finalURL, "runes", utf8.RuneCountInString(text))
		s.Metrics.SourceOutcome(metrics.SourceEmpty)
		return candidate{}, false
	}
	page.Text = text

	verdict, err := s.Scorer.Score(ctx, topic, text)
	if err != nil {
		log.Warn("scoring failed", "url", finalURL, "error", err)
		s.Metrics.SourceOutcome(metrics.SourceScoreFailed)
		return candidate{}, false
	}
	return candidate{url: finalURL, page: page, verdict: verdict}, true
}

// persist stores a scored candidate and returns it with its id.
func (s *Steps) persist(ctx context.Context, c candidate) (domain.SourceRecord, bool) {
	title := strings.TrimSpace(c.page.Title)
	if title == "" {
		title = c.verdict.Title
	}
	record := domain.SourceRecord{
		URL:          c.url,
		Title:        title,
		RawText:      c.page.Text,
		Score:        c.verdict.Score,
		Summary:      c.verdict.Summary,
		Reason:       c.verdict.Reason,
		Tags:         c.verdict.Tags,
		OriginDomain: domain.OriginDomain(c.url),
		DiscoveredAt: s.now(),
		Degraded:     c.verdict.Degraded,
	}

	id, err := s.Store.PersistSource(ctx, &record)
	if err != nil {
		s.logger().Warn("persist source failed", "url", c.url, "error", err)
		s.Metrics.SourceOutcome(metrics.SourcePersistFailed)
		return domain.SourceRecord{}, false
	}
	record.ID = id

	if record.Degraded {
		s.logger().Warn("low-confidence verdict persisted", "url", c.url, "source_id", id)
		s.Metrics.SourceOutcome(metrics.SourceDegraded)
	} else {
		s.logger().Info("source scored", "url", c.url, "source_id", id, "score", record.Score)
	}
	return record, true
}

// SequentialGatherer handles one URL at a time in discovery order.
type SequentialGatherer struct {
	Steps *Steps
}

// Gather implements EvidenceGatherer.
func (g SequentialGatherer) Gather(ctx context.Context, topic string, urls []string) []domain.SourceRecord {
	seen := make(map[string]struct{}, len(urls))
	records := make([]domain.SourceRecord, 0, len(urls))
	for _, raw := range urls {
		final := g.Steps.resolve(ctx, raw)
		if !g.Steps.admit(ctx, final, seen) {
			continue
		}
		c, ok := g.Steps.evaluate(ctx, topic, final)
		if !ok {
			continue
		}
		if record, ok := g.Steps.persist(ctx, c); ok {
			records = append(records, record)
		}
	}
	return records
}

// ConcurrentGatherer fans out resolution and fetch+score with a bounded number
// of goroutines. Admission and persistence stay sequential in discovery order.
type ConcurrentGatherer struct {
	Steps *Steps
	Limit int
}

// Gather implements EvidenceGatherer.
func (g ConcurrentGatherer) Gather(ctx context.Context, topic string, urls []string) []domain.SourceRecord {
	limit := g.Limit
	if limit < 1 {
		limit = 1
	}

	finals := make([]string, len(urls))
	var resolving errgroup.Group
	resolving.SetLimit(limit)
	for i, raw := range urls {
		resolving.Go(func() error {
			finals[i] = g.Steps.resolve(ctx, raw)
			return nil
		})
	}
	_ = resolving.Wait()

	seen := make(map[string]struct{}, len(urls))
	admitted := make([]string, 0, len(finals))
	for _, final := range finals {
		if g.Steps.admit(ctx, final, seen) {
			admitted = append(admitted, final)
		}
	}

	results := make([]*candidate, len(admitted))
	var scoring errgroup.Group
	scoring.SetLimit(limit)
	for i, final := range admitted {
		scoring.Go(func() error {
			if c, ok := g.Steps.evaluate(ctx, topic, final); ok {
				results[i] = &c
			}
			return nil
		})
	}
	_ = scoring.Wait()

	records := make([]domain.SourceRecord, 0, len(results))
	for _, c := range results {
		if c == nil {
			continue
		}
		if record, ok := g.Steps.persist(ctx, *c); ok {
			records = append(records, record)
		}
	}
	return records
}
