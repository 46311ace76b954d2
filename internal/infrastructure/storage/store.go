// Package storage persists sources, generated articles and their provenance in SQL.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"SEOPilot/internal/config"
	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the provenance, topic-configuration and catalog ports.
type Store struct {
	db      *sql.DB
	q       runner
	inTx    bool
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.ProvenanceStore  = (*Store)(nil)
	_ ports.TopicConfigStore = (*Store)(nil)
	_ ports.ArticleCatalog   = (*Store)(nil)
)

const (
	sourceColumns  = "id, url, title, content, score, summary, reason, tags, origin_domain, discovered_at, consumed, degraded"
	articleColumns = "id, topic, title, meta_description, body, tags, average_source_score, status, created_at, target_publish_at"
	imageColumns   = "id, article_id, url, alt_text, caption, license, author, author_url, source_page_url"
)

// New wraps an open database. The schema is not touched; call Migrate.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		q:       db,
		dialect: dialect,
		sb:      dialect.builder(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if dialect.Name == SQLite.Name {
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply %q: %w", pragma, err)
			}
		}
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect.Name, err)
	}

	store := New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schemaStatements() {
		if _, err := s.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Atomically runs fn against a store bound to one transaction. Nested calls
// reuse the outer transaction.
func (s *Store) Atomically(ctx context.Context, fn func(ports.ProvenanceStore) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, inTx: true, dialect: s.dialect, sb: s.sb, now: s.now}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// PersistSource inserts a source record. An existing URL keeps its row and id.
func (s *Store) PersistSource(ctx context.Context, record *domain.SourceRecord) (int64, error) {
	tags, err := encodeTags(record.Tags)
	if err != nil {
		return 0, err
	}
	discovered := record.DiscoveredAt
	if discovered.IsZero() {
		discovered = s.now()
	}

	query, args, err := s.sb.Insert("sources").
		Columns("url", "title", "content", "score", "summary", "reason", "tags", "origin_domain", "discovered_at", "consumed", "degraded").
		Values(record.URL, record.Title, record.RawText, nullScore(record), record.Summary, record.Reason, tags,
			record.OriginDomain, discovered.UTC(), record.Consumed, record.Degraded).
		Suffix("ON CONFLICT (url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build source insert: %w", err)
	}

	var id int64
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ok, lookupErr := s.LookupSource(ctx, record.URL)
		if lookupErr != nil {
			return 0, lookupErr
		}
		if !ok {
			return 0, fmt.Errorf("source %s vanished after conflict", record.URL)
		}
		return existing, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return id, nil
}

// LookupSource finds a source id by exact URL.
func (s *Store) LookupSource(ctx context.Context, rawURL string) (int64, bool, error) {
	query, args, err := s.sb.Select("id").From("sources").Where(sq.Eq{"url": rawURL}).ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build source lookup: %w", err)
	}

	var id int64
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup source: %w", err)
	}
	return id, true, nil
}

// PersistGeneratedArticle inserts an article and fills in its id.
func (s *Store) PersistGeneratedArticle(ctx context.Context, article *domain.GeneratedArticle) (int64, error) {
	if article.Tags == nil {
		article.Tags = []string{}
	}
	if article.Status == "" {
		article.Status = domain.StatusGenerated
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = s.now()
	}
	tags, err := encodeTags(article.Tags)
	if err != nil {
		return 0, err
	}

	var avg any
	if article.AverageSourceScore != nil {
		avg = *article.AverageSourceScore
	}
	var target any
	if article.TargetPublishAt != nil {
		target = article.TargetPublishAt.UTC()
	}

	query, args, err := s.sb.Insert("generated_articles").
		Columns("topic", "title", "meta_description", "body", "tags", "average_source_score", "status", "created_at", "target_publish_at").
		Values(article.Topic, article.Title, article.MetaDescription, article.Body, tags, avg,
			string(article.Status), article.CreatedAt.UTC(), target).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build article insert: %w", err)
	}

	var id int64
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert generated article: %w", err)
	}
	article.ID = id
	return id, nil
}

// PersistImages stores images of an article in the given order.
func (s *Store) PersistImages(ctx context.Context, articleID int64, images []domain.ImageRecord) error {
	for i, img := range images {
		query, args, err := s.sb.Insert("generated_images").
			Columns("article_id", "position", "url", "alt_text", "caption", "license", "author", "author_url", "source_page_url").
			Values(articleID, i, img.URL, img.AltText, img.Caption, img.License, img.Author, img.AuthorURL, img.SourcePageURL).
			ToSql()
		if err != nil {
			return fmt.Errorf("build image insert: %w", err)
		}
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert image %d: %w", i, err)
		}
	}
	return nil
}

// LinkSourcesToArticle records provenance in evidence order. Existing links are kept.
func (s *Store) LinkSourcesToArticle(ctx context.Context, articleID int64, sourceIDs []int64) error {
	for i, sourceID := range sourceIDs {
		query, args, err := s.sb.Insert("generated_article_sources").
			Columns("article_id", "source_id", "position").
			Values(articleID, sourceID, i).
			Suffix("ON CONFLICT (article_id, source_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build link insert: %w", err)
		}
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("link source %d: %w", sourceID, err)
		}
	}
	return nil
}

// GetSourcesForArticle returns the linked sources with their text in link order.
func (s *Store) GetSourcesForArticle(ctx context.Context, articleID int64) ([]domain.SourceRecord, error) {
	query, args, err := s.sb.Select(prefixed("s", sourceColumns)).
		From("generated_article_sources l").
		Join("sources s ON s.id = l.source_id").
		Where(sq.Eq{"l.article_id": articleID}).
		OrderBy("l.position", "l.source_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build provenance query: %w", err)
	}
	return s.querySources(ctx, query, args)
}

// GetArticle loads an article with its images.
func (s *Store) GetArticle(ctx context.Context, id int64) (domain.GeneratedArticle, error) {
	query, args, err := s.sb.Select(articleColumns).From("generated_articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.GeneratedArticle{}, fmt.Errorf("build article query: %w", err)
	}

	article, err := scanArticle(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeneratedArticle{}, fmt.Errorf("article %d: %w", id, domain.ErrArticleNotFound)
	}
	if err != nil {
		return domain.GeneratedArticle{}, err
	}

	if article.Images, err = s.imagesFor(ctx, id); err != nil {
		return domain.GeneratedArticle{}, err
	}
	return article, nil
}

// MarkSourceConsumed flags a source as used by an article.
func (s *Store) MarkSourceConsumed(ctx context.Context, id int64) error {
	query, args, err := s.sb.Update("sources").Set("consumed", true).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build consume update: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark source %d consumed: %w", id, err)
	}
	return nil
}

// GetTopicConfig returns the stored parameters of a topic.
func (s *Store) GetTopicConfig(ctx context.Context, topic string) (domain.GenerationParams, bool, error) {
	query, args, err := s.sb.Select("topic", "search_breadth", "score_threshold", "selector_result_limit",
		"synth_result_limit", "length_words", "tone", "image_count").
		From("topic_configs").
		Where(sq.Eq{"topic": topic}).
		ToSql()
	if err != nil {
		return domain.GenerationParams{}, false, fmt.Errorf("build topic config query: %w", err)
	}

	var p domain.GenerationParams
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&p.Topic, &p.SearchBreadth, &p.ScoreThreshold,
		&p.SelectorResultLimit, &p.SynthResultLimit, &p.LengthWords, &p.Tone, &p.ImageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GenerationParams{}, false, nil
	}
	if err != nil {
		return domain.GenerationParams{}, false, fmt.Errorf("load topic config %s: %w", topic, err)
	}
	return p, true, nil
}

// SaveTopicConfig upserts the parameters of a topic.
func (s *Store) SaveTopicConfig(ctx context.Context, p domain.GenerationParams) error {
	query, args, err := s.sb.Insert("topic_configs").
		Columns("topic", "search_breadth", "score_threshold", "selector_result_limit", "synth_result_limit",
			"length_words", "tone", "image_count", "updated_at").
		Values(p.Topic, p.SearchBreadth, p.ScoreThreshold, p.SelectorResultLimit, p.SynthResultLimit,
			p.LengthWords, p.Tone, p.ImageCount, s.now()).
		Suffix(`ON CONFLICT (topic) DO UPDATE SET
			search_breadth = EXCLUDED.search_breadth,
			score_threshold = EXCLUDED.score_threshold,
			selector_result_limit = EXCLUDED.selector_result_limit,
			synth_result_limit = EXCLUDED.synth_result_limit,
			length_words = EXCLUDED.length_words,
			tone = EXCLUDED.tone,
			image_count = EXCLUDED.image_count,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build topic config upsert: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save topic config %s: %w", p.Topic, err)
	}
	return nil
}

// ListTopics returns every topic with stored parameters.
func (s *Store) ListTopics(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("topic").From("topic_configs").OrderBy("topic").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build topics query: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return topics, nil
}

// ListArticles returns articles newest first with their images.
func (s *Store) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.GeneratedArticle, error) {
	b := s.sb.Select(articleColumns).From("generated_articles").OrderBy("created_at DESC", "id DESC")
	if filter.Topic != "" {
		b = b.Where(sq.Eq{"topic": filter.Topic})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	articles := []domain.GeneratedArticle{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	for i := range articles {
		if articles[i].Images, err = s.imagesFor(ctx, articles[i].ID); err != nil {
			return nil, err
		}
	}
	return articles, nil
}

// UpdateArticle applies the non-nil fields of update.
func (s *Store) UpdateArticle(ctx context.Context, id int64, update domain.ArticleUpdate) error {
	if update.Empty() {
		if _, err := s.GetArticle(ctx, id); err != nil {
			return err
		}
		return nil
	}

	b := s.sb.Update("generated_articles").Where(sq.Eq{"id": id})
	if update.Title != nil {
		b = b.Set("title", *update.Title)
	}
	if update.MetaDescription != nil {
		b = b.Set("meta_description", *update.MetaDescription)
	}
	if update.Body != nil {
		b = b.Set("body", *update.Body)
	}
	if update.Tags != nil {
		tags, err := encodeTags(*update.Tags)
		if err != nil {
			return err
		}
		b = b.Set("tags", tags)
	}
	if update.Status != nil {
		b = b.Set("status", string(*update.Status))
	}
	if update.TargetPublishAt != nil {
		b = b.Set("target_publish_at", update.TargetPublishAt.UTC())
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build article update: %w", err)
	}
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %d: %w", id, domain.ErrArticleNotFound)
	}
	return nil
}

// ListSources returns discovered sources, newest first, without their text.
func (s *Store) ListSources(ctx context.Context, limit int) ([]domain.SourceRecord, error) {
	b := s.sb.Select(sourceColumns).From("sources").OrderBy("discovered_at DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}
	records, err := s.querySources(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].RawText = ""
	}
	return records, nil
}

func (s *Store) imagesFor(ctx context.Context, articleID int64) ([]domain.ImageRecord, error) {
	query, args, err := s.sb.Select(imageColumns).
		From("generated_images").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build images query: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := []domain.ImageRecord{}
	for rows.Next() {
		var img domain.ImageRecord
		if err := rows.Scan(&img.ID, &img.ArticleID, &img.URL, &img.AltText, &img.Caption,
			&img.License, &img.Author, &img.AuthorURL, &img.SourcePageURL); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return images, nil
}

func (s *Store) querySources(ctx context.Context, query string, args []any) ([]domain.SourceRecord, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	records := []domain.SourceRecord{}
	for rows.Next() {
		var (
			rec   domain.SourceRecord
			score sql.NullInt64
			tags  string
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.RawText, &score, &rec.Summary, &rec.Reason,
			&tags, &rec.OriginDomain, &rec.DiscoveredAt, &rec.Consumed, &rec.Degraded); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if score.Valid {
			rec.Score = int(score.Int64)
		}
		if rec.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.GeneratedArticle, error) {
	var (
		a      domain.GeneratedArticle
		tags   string
		avg    sql.NullFloat64
		status string
		target sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Topic, &a.Title, &a.MetaDescription, &a.Body, &tags, &avg, &status, &a.CreatedAt, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	if err != nil {
		return a, fmt.Errorf("scan article: %w", err)
	}
	a.Status = domain.ArticleStatus(status)
	if avg.Valid {
		v := avg.Float64
		a.AverageSourceScore = &v
	}
	if target.Valid {
		t := target.Time
		a.TargetPublishAt = &t
	}
	if a.Tags, err = decodeTags(tags); err != nil {
		return a, err
	}
	a.Images = []domain.ImageRecord{}
	return a, nil
}

func nullScore(r *domain.SourceRecord) any {
	if !r.HasScore() {
		return nil
	}
	return r.Score
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(raw), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if strings.TrimSpace(raw) == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
