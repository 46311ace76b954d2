package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/prompt"
)

func newReviewFixture(t *testing.T) (*memStore, *fakeCompleter, *Review) {
	t.Helper()
	prompts, err := prompt.Default()
	require.NoError(t, err)

	store := newMemStore()
	completer := &fakeCompleter{}
	review := NewReview(ReviewDeps{
		Store:     store,
		Catalog:   store,
		Topics:    NewTopics(store, domain.DefaultParams("")),
		Completer: completer,
		Prompts:   prompts,
	})
	return store, completer, review
}

func TestReviewSuggestions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, completer, review := newReviewFixture(t)

	avg := 7.5
	id, err := store.PersistGeneratedArticle(ctx, &domain.GeneratedArticle{
		Topic: "ev", Title: "Batteries", MetaDescription: "meta", Body: "body text",
		Tags: []string{"ev", "battery"}, AverageSourceScore: &avg,
	})
	require.NoError(t, err)

	completer.answer = "```markdown\n- Shorten the title\n- Add an FAQ\n```"
	got, err := review.Suggestions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "- Shorten the title\n- Add an FAQ", got)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Batteries")
	assert.Contains(t, completer.prompts[0], "7.50")
	assert.Contains(t, completer.prompts[0], domain.DefaultTone)

	completer.answer = "```\n```"
	_, err = review.Suggestions(ctx, id)
	assert.Error(t, err)

	completer.err = errors.New("quota")
	_, err = review.Suggestions(ctx, id)
	assert.Error(t, err)

	_, err = review.Suggestions(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}

func TestReviewUpdateAndPublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _, review := newReviewFixture(t)

	id, err := store.PersistGeneratedArticle(ctx, &domain.GeneratedArticle{Topic: "ev", Title: "old", Body: "b", Status: domain.StatusGenerated, CreatedAt: time.Now()})
	require.NoError(t, err)

	title := "new"
	got, err := review.Update(ctx, id, domain.ArticleUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)

	blank := domain.ArticleStatus("  ")
	_, err = review.Update(ctx, id, domain.ArticleUpdate{Status: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	published, err := review.Publish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)

	_, err = review.Publish(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}

func TestReviewSources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _, review := newReviewFixture(t)

	src := store.addSource(domain.SourceRecord{URL: "https://a.example", RawText: "text", Score: 8})
	id, err := store.PersistGeneratedArticle(ctx, &domain.GeneratedArticle{Topic: "ev", Title: "t", Body: "b"})
	require.NoError(t, err)
	require.NoError(t, store.LinkSourcesToArticle(ctx, id, []int64{src.ID}))

	linked, err := review.Sources(ctx, id)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "text", linked[0].RawText)

	_, err = review.Sources(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)

	all, err := review.DiscoveredSources(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].RawText)
}

func TestTopics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	defaults := domain.DefaultParams("")
	defaults.Tone = "friendly"
	topics := NewTopics(store, defaults)

	got, err := topics.Get(ctx, " ev ")
	require.NoError(t, err)
	assert.Equal(t, "ev", got.Topic)
	assert.Equal(t, "friendly", got.Tone)

	saved, err := topics.Save(ctx, domain.GenerationParams{Topic: "ev", ScoreThreshold: 7, ImageCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, saved.ScoreThreshold)
	assert.Equal(t, domain.DefaultSearchBreadth, saved.SearchBreadth)
	assert.Equal(t, "friendly", saved.Tone)

	got, err = topics.Get(ctx, "ev")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = topics.Save(ctx, domain.GenerationParams{Topic: "bad", ScoreThreshold: 42})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
	_, err = topics.Save(ctx, domain.GenerationParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	list, err := topics.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ev"}, list)
}
