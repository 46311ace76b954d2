package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/synthesis"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory provenance, topic and catalog store.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	sources  map[int64]domain.SourceRecord
	articles map[int64]domain.GeneratedArticle
	links    map[int64][]int64
	topics   map[string]domain.GenerationParams
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{
		sources:  map[int64]domain.SourceRecord{},
		articles: map[int64]domain.GeneratedArticle{},
		links:    map[int64][]int64{},
		topics:   map[string]domain.GenerationParams{},
	}
}

func (m *memStore) addSource(rec domain.SourceRecord) domain.SourceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.sources[rec.ID] = rec
	return rec
}

func (m *memStore) PersistSource(_ context.Context, rec *domain.SourceRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.sources {
		if existing.URL == rec.URL {
			return id, nil
		}
	}
	m.nextID++
	rec.ID = m.nextID
	m.sources[rec.ID] = *rec
	return rec.ID, nil
}

func (m *memStore) LookupSource(_ context.Context, rawURL string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.sources {
		if existing.URL == rawURL {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (m *memStore) PersistGeneratedArticle(_ context.Context, a *domain.GeneratedArticle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "article" {
		return 0, errInjected
	}
	m.nextID++
	a.ID = m.nextID
	if a.Tags == nil {
		a.Tags = []string{}
	}
	m.articles[a.ID] = *a
	return a.ID, nil
}

func (m *memStore) PersistImages(_ context.Context, articleID int64, images []domain.ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "images" {
		return errInjected
	}
	a := m.articles[articleID]
	for _, img := range images {
		img.ArticleID = articleID
		a.Images = append(a.Images, img)
	}
	m.articles[articleID] = a
	return nil
}

func (m *memStore) LinkSourcesToArticle(_ context.Context, articleID int64, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "link" {
		return errInjected
	}
	m.links[articleID] = append(m.links[articleID], ids...)
	return nil
}

func (m *memStore) GetSourcesForArticle(_ context.Context, articleID int64) ([]domain.SourceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.SourceRecord{}
	for _, id := range m.links[articleID] {
		out = append(out, m.sources[id])
	}
	return out, nil
}

func (m *memStore) GetArticle(_ context.Context, id int64) (domain.GeneratedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return domain.GeneratedArticle{}, domain.ErrArticleNotFound
	}
	return a, nil
}

func (m *memStore) MarkSourceConsumed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sources[id]
	s.Consumed = true
	m.sources[id] = s
	return nil
}

func (m *memStore) Atomically(ctx context.Context, fn func(ports.ProvenanceStore) error) error {
	m.mu.Lock()
	snapshot := m.cloneLocked()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restoreLocked(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) GetTopicConfig(_ context.Context, topic string) (domain.GenerationParams, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.topics[topic]
	return p, ok, nil
}

func (m *memStore) SaveTopicConfig(_ context.Context, p domain.GenerationParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[p.Topic] = p
	return nil
}

func (m *memStore) ListTopics(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.topics))
	for t := range m.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ListArticles(_ context.Context, filter domain.ArticleFilter) ([]domain.GeneratedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.GeneratedArticle{}
	for _, a := range m.articles {
		if filter.Topic != "" && a.Topic != filter.Topic {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) UpdateArticle(_ context.Context, id int64, u domain.ArticleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Body != nil {
		a.Body = *u.Body
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	m.articles[id] = a
	return nil
}

func (m *memStore) ListSources(context.Context, int) ([]domain.SourceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.SourceRecord{}
	for _, s := range m.sources {
		s.RawText = ""
		out = append(out, s)
	}
	return out, nil
}

type memSnapshot struct {
	nextID   int64
	sources  map[int64]domain.SourceRecord
	articles map[int64]domain.GeneratedArticle
	links    map[int64][]int64
}

func (m *memStore) cloneLocked() memSnapshot {
	s := memSnapshot{
		nextID:   m.nextID,
		sources:  make(map[int64]domain.SourceRecord, len(m.sources)),
		articles: make(map[int64]domain.GeneratedArticle, len(m.articles)),
		links:    make(map[int64][]int64, len(m.links)),
	}
	for k, v := range m.sources {
		s.sources[k] = v
	}
	for k, v := range m.articles {
		s.articles[k] = v
	}
	for k, v := range m.links {
		s.links[k] = append([]int64(nil), v...)
	}
	return s
}

func (m *memStore) restoreLocked(s memSnapshot) {
	m.nextID = s.nextID
	m.sources = s.sources
	m.articles = s.articles
	m.links = s.links
}

type fakeSelector struct {
	records []domain.SourceRecord
	err     error
	calls   int
}

func (f *fakeSelector) Select(_ context.Context, _ string, _, _, limit int) ([]domain.SourceRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type fakeSynthesizer struct {
	draft    domain.Draft
	err      error
	panicMsg string
	requests []synthesis.Request
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req synthesis.Request) (domain.Draft, error) {
	f.requests = append(f.requests, req)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return domain.Draft{}, f.err
	}
	d := f.draft
	d.Topic = req.Topic
	return d, nil
}

type fakeImages struct {
	images  []domain.ImageRecord
	err     error
	queries []string
}

func (f *fakeImages) FindImages(_ context.Context, query string, count int) ([]domain.ImageRecord, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.images) > count {
		return f.images[:count], nil
	}
	return f.images, nil
}

type fakeNotifier struct {
	notified []domain.GeneratedArticle
	err      error
}

func (f *fakeNotifier) NotifyDraft(_ context.Context, a domain.GeneratedArticle) error {
	f.notified = append(f.notified, a)
	return f.err
}

type fakeCompleter struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, p string) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.answer, f.err
}
