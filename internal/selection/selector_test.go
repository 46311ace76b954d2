package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/ports"
)

type fakeSearch struct {
	urls []string
	err  error
}

func (f fakeSearch) Search(_ context.Context, _ string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.urls) > limit {
		return f.urls[:limit], nil
	}
	return f.urls, nil
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, raw string) (string, error) {
	if final, ok := f[raw]; ok {
		return final, nil
	}
	return "", errors.New("no redirect info")
}

type fakeFetcher map[string]ports.Page

func (f fakeFetcher) Fetch(_ context.Context, raw string) (ports.Page, error) {
	page, ok := f[raw]
	if !ok {
		return ports.Page{}, fmt.Errorf("fetch %s: 404", raw)
	}
	return page, nil
}

// fakeScorer reads the score from a "score=N" marker in the page text.
type fakeScorer struct{}

func (fakeScorer) Score(_ context.Context, _ string, text string) (domain.Verdict, error) {
	switch {
	case strings.Contains(text, "degrade"):
		return domain.DegradedVerdict(), nil
	case strings.Contains(text, "explode"):
		return domain.Verdict{}, errors.New("model unavailable")
	}
	var score int
	if _, err := fmt.Sscanf(text[strings.Index(text, "score=")+len("score="):], "%d", &score); err != nil {
		return domain.Verdict{}, err
	}
	return domain.Verdict{Score: score, Reason: "r", Summary: "s", Tags: []string{}}, nil
}

type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	byURL   map[string]domain.SourceRecord
	persist int

	// failPersist and failLookup hold URLs whose store calls return an error.
	failPersist map[string]bool
	failLookup  map[string]bool
}

func newMemoryStore(known ...string) *memoryStore {
	s := &memoryStore{byURL: map[string]domain.SourceRecord{}}
	for _, u := range known {
		s.nextID++
		s.byURL[u] = domain.SourceRecord{ID: s.nextID, URL: u, Score: 10}
	}
	return s
}

func (s *memoryStore) PersistSource(_ context.Context, r *domain.SourceRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPersist[r.URL] {
		return 0, errors.New("database is locked")
	}
	if existing, ok := s.byURL[r.URL]; ok {
		return existing.ID, nil
	}
	s.persist++
	s.nextID++
	rec := *r
	rec.ID = s.nextID
	s.byURL[r.URL] = rec
	return rec.ID, nil
}

func (s *memoryStore) LookupSource(_ context.Context, raw string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookup[raw] {
		return 0, false, errors.New("connection reset")
	}
	rec, ok := s.byURL[raw]
	return rec.ID, ok, nil
}

func page(score int) ports.Page {
	return ports.Page{Title: fmt.Sprintf("page %d", score), Text: fmt.Sprintf("enough body text score=%d", score)}
}

func gatherers(store *memoryStore, fetcher fakeFetcher, resolver fakeResolver) map[string]EvidenceGatherer {
	steps := &Steps{
		Resolver: resolver,
		Fetcher:  fetcher,
		Scorer:   fakeScorer{},
		Store:    store,
		Metrics:  metrics.New(),
	}
	return map[string]EvidenceGatherer{
		"sequential": SequentialGatherer{Steps: steps},
		"concurrent": ConcurrentGatherer{Steps: steps, Limit: 4},
	}
}

func scores(records []domain.SourceRecord) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.Score)
	}
	return out
}

func TestSelectElectricVehiclesScenario(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sequential", "concurrent"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var urls []string
			fetcher := fakeFetcher{}
			for i := 0; i < 10; i++ {
				urls = append(urls, fmt.Sprintf("https://site%d.example/post", i))
			}
			// four candidates fail extraction
			fetcher[urls[1]] = ports.Page{Text: "   "}
			fetcher[urls[4]] = ports.Page{Text: "tiny"}
			// urls[6] and urls[8] are missing from the fetcher and return errors
			for i, s := range map[int]int{0: 8, 2: 3, 3: 7, 5: 6, 7: 9, 9: 2} {
				fetcher[urls[i]] = page(s)
			}

			store := newMemoryStore()
			g := gatherers(store, fetcher, fakeResolver{})[name]
			steps := stepsOf(g)
			steps.MinContentRunes = 10

			sel := NewSelector(fakeSearch{urls: urls}, g, nil, nil)
			got, err := sel.Select(context.Background(), "electric vehicles", 10, 6, 3)
			if err != nil {
				t.Fatalf("Select returned error: %v", err)
			}
			if diff := cmp.Diff([]int{9, 8, 7}, scores(got)); diff != "" {
				t.Fatalf("scores mismatch (-want +got):\n%s", diff)
			}
			for _, rec := range got {
				if rec.ID == 0 || rec.RawText == "" {
					t.Fatalf("selected record must be persisted with text: %+v", rec)
				}
			}
			if store.persist != 6 {
				t.Fatalf("every scored source must be persisted, got %d", store.persist)
			}
		})
	}
}

func stepsOf(g EvidenceGatherer) *Steps {
	switch v := g.(type) {
	case SequentialGatherer:
		return v.Steps
	case ConcurrentGatherer:
		return v.Steps
	}
	return nil
}

func TestSelectReusesKnownSourcesAndDedupsWithinRun(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sequential", "concurrent"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			known := "https://known.example/article"
			urls := []string{known, "https://short.link/a", "https://short.link/b", "https://fresh.example/x"}
			resolver := fakeResolver{
				"https://short.link/a": "https://fresh.example/x",
				"https://short.link/b": "https://fresh.example/x",
			}
			fetcher := fakeFetcher{known: page(9), "https://fresh.example/x": page(7)}

			store := newMemoryStore(known)
			sel := NewSelector(fakeSearch{urls: urls}, gatherers(store, fetcher, resolver)[name], nil, nil)
			got, err := sel.Select(context.Background(), "ev", 10, 1, 10)
			if err != nil {
				t.Fatalf("Select returned error: %v", err)
			}
			if len(got) != 1 || got[0].URL != "https://fresh.example/x" {
				t.Fatalf("unexpected selection: %+v", got)
			}
			if store.persist != 1 {
				t.Fatalf("expected a single new source record, got %d", store.persist)
			}
		})
	}
}

func TestSelectPersistsDegradedButExcludesIt(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	fetcher := fakeFetcher{
		urls[0]: {Text: "please degrade this"},
		urls[1]: {Text: "explode during scoring"},
		urls[2]: page(4),
	}
	store := newMemoryStore()
	sel := NewSelector(fakeSearch{urls: urls}, gatherers(store, fetcher, nil)["sequential"], nil, nil)

	got, err := sel.Select(context.Background(), "ev", 10, 1, 5)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if diff := cmp.Diff([]int{4}, scores(got)); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
	degraded, ok := store.byURL[urls[0]]
	if !ok || !degraded.Degraded || degraded.Reason != domain.DegradedReason {
		t.Fatalf("degraded verdict must be persisted: %+v", degraded)
	}
	if _, ok := store.byURL[urls[1]]; ok {
		t.Fatalf("scoring failure must not be persisted")
	}
}

func TestSelectSkipsStoreFailuresAndContinues(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sequential", "concurrent"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			urls := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3", "https://d.example/4"}
			fetcher := fakeFetcher{
				urls[0]: page(9),
				urls[1]: page(8),
				urls[2]: page(7),
				urls[3]: page(6),
			}
			store := newMemoryStore()
			store.failPersist = map[string]bool{urls[0]: true}
			store.failLookup = map[string]bool{urls[1]: true}

			sel := NewSelector(fakeSearch{urls: urls}, gatherers(store, fetcher, nil)[name], nil, nil)
			got, err := sel.Select(context.Background(), "ev", 10, 1, 10)
			if err != nil {
				t.Fatalf("Select returned error: %v", err)
			}

			gotURLs := make([]string, 0, len(got))
			for _, r := range got {
				if r.ID == 0 {
					t.Fatalf("selected record without id: %+v", r)
				}
				gotURLs = append(gotURLs, r.URL)
			}
			if diff := cmp.Diff(urls[1:], gotURLs); diff != "" {
				t.Fatalf("selection mismatch (-want +got):\n%s", diff)
			}
			if _, ok := store.byURL[urls[0]]; ok {
				t.Fatalf("source with failed persistence must not be stored")
			}
			if store.persist != 3 {
				t.Fatalf("expected 3 persisted sources, got %d", store.persist)
			}
		})
	}
}

func TestSelectFiltersSocialAndNonArticleURLs(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://www.youtube.com/watch?v=1",
		"https://blog.example/tag/ev",
		"https://blog.example/report.pdf",
		"https://blog.example/news/page/2",
		"https://blog.example/ev-guide",
	}
	fetcher := fakeFetcher{}
	for _, u := range urls {
		fetcher[u] = page(8)
	}
	store := newMemoryStore()
	sel := NewSelector(fakeSearch{urls: urls}, gatherers(store, fetcher, nil)["sequential"], nil, nil)

	got, err := sel.Select(context.Background(), "ev", 10, 5, 5)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://blog.example/ev-guide" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestSelectWithoutUsableSources(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example/1", "https://b.example/2"}
	fetcher := fakeFetcher{urls[0]: page(2)}
	sel := NewSelector(fakeSearch{urls: urls}, gatherers(newMemoryStore(), fetcher, nil)["sequential"], nil, nil)

	if _, err := sel.Select(context.Background(), "ev", 10, 6, 3); !errors.Is(err, domain.ErrNoUsableSources) {
		t.Fatalf("expected ErrNoUsableSources, got %v", err)
	}

	failing := NewSelector(fakeSearch{err: errors.New("blocked")}, gatherers(newMemoryStore(), fetcher, nil)["sequential"], nil, nil)
	if _, err := failing.Select(context.Background(), "ev", 10, 6, 3); !errors.Is(err, domain.ErrNoUsableSources) {
		t.Fatalf("expected ErrNoUsableSources on search failure, got %v", err)
	}
}

func TestRankIsStableAndTruncates(t *testing.T) {
	t.Parallel()

	records := []domain.SourceRecord{
		{ID: 1, URL: "a", Score: 7},
		{ID: 2, URL: "b", Score: 9},
		{ID: 3, URL: "c", Score: 7},
		{ID: 0, URL: "unsaved", Score: 10},
		{ID: 4, URL: "d", Score: 5},
		{ID: 5, URL: "e", Score: 7},
	}

	got := Rank(records, 6, 3)
	var ids []int64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids); diff != "" {
		t.Fatalf("rank mismatch (-want +got):\n%s", diff)
	}
}

func TestIsNonArticle(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com/2025/05/ev-prices":     false,
		"https://example.com/temas/autos":           true,
		"https://example.com/categoria/motor":       true,
		"https://example.com/list?page=3":           true,
		"https://example.com/list?sort=new&page=3":  true,
		"https://example.com/post#comments":         true,
		"https://example.com/blog/page/4/":          true,
		"https://example.com/files/SPEC.DOCX":       true,
		"https://example.com/media/clip.mp4":        true,
		"https://example.com/pages/about-batteries": false,
	}
	for raw, want := range cases {
		if got := IsNonArticle(raw); got != want {
			t.Fatalf("IsNonArticle(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestIsSocial(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"https://m.facebook.com/p", "https://x.com/u/status/1", "https://www.reddit.com/r/ev"} {
		if !IsSocial(raw) {
			t.Fatalf("expected %s to be social", raw)
		}
	}
	if IsSocial("https://box.com/ev") {
		t.Fatalf("suffix match must respect label boundaries")
	}
}
