package ports

import (
	"context"
	"time"

	"SEOPilot/internal/domain"
)

// SearchProvider returns ranked candidate URLs for a query.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// URLResolver follows redirects to the final page URL.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Page is the extracted main content of a fetched URL. Empty Text means nothing usable.
type Page struct {
	URL   string
	Title string
	Text  string
}

// ContentFetcher downloads a page and extracts its main body text.
type ContentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Completer is the sole language-model interface: prompt in, freeform text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageFinder searches stock images for an article.
type ImageFinder interface {
	FindImages(ctx context.Context, query string, count int) ([]domain.ImageRecord, error)
}

// ProvenanceStore persists sources, generated articles, images and the links between them.
type ProvenanceStore interface {
	PersistSource(ctx context.Context, record *domain.SourceRecord) (int64, error)
	LookupSource(ctx context.Context, rawURL string) (int64, bool, error)
	PersistGeneratedArticle(ctx context.Context, article *domain.GeneratedArticle) (int64, error)
	PersistImages(ctx context.Context, articleID int64, images []domain.ImageRecord) error
	LinkSourcesToArticle(ctx context.Context, articleID int64, sourceIDs []int64) error
	GetSourcesForArticle(ctx context.Context, articleID int64) ([]domain.SourceRecord, error)
	GetArticle(ctx context.Context, id int64) (domain.GeneratedArticle, error)
	MarkSourceConsumed(ctx context.Context, id int64) error
	// Atomically runs fn against a store bound to a single transaction.
	Atomically(ctx context.Context, fn func(ProvenanceStore) error) error
}

// TopicConfigStore keeps per-topic generation parameters.
type TopicConfigStore interface {
	GetTopicConfig(ctx context.Context, topic string) (domain.GenerationParams, bool, error)
	SaveTopicConfig(ctx context.Context, params domain.GenerationParams) error
	ListTopics(ctx context.Context) ([]string, error)
}

// ArticleCatalog backs the review surface.
type ArticleCatalog interface {
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.GeneratedArticle, error)
	UpdateArticle(ctx context.Context, id int64, update domain.ArticleUpdate) error
	ListSources(ctx context.Context, limit int) ([]domain.SourceRecord, error)
}

// Notifier tells reviewers that a draft is waiting.
type Notifier interface {
	NotifyDraft(ctx context.Context, article domain.GeneratedArticle) error
}

// Scheduler controls when scheduled generation executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
