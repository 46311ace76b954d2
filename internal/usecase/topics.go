package usecase

import (
	"context"
	"fmt"
	"strings"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
)

// Topics manages per-topic generation parameters.
type Topics struct {
	store    ports.TopicConfigStore
	defaults domain.GenerationParams
}

// NewTopics falls back to defaults for topics without a stored configuration.
func NewTopics(store ports.TopicConfigStore, defaults domain.GenerationParams) *Topics {
	return &Topics{store: store, defaults: defaults}
}

// Get returns the stored parameters of topic, or the defaults.
func (t *Topics) Get(ctx context.Context, topic string) (domain.GenerationParams, error) {
	topic = strings.TrimSpace(topic)
	base := t.base(topic)
	if topic == "" || t.store == nil {
		return base, nil
	}
	stored, ok, err := t.store.GetTopicConfig(ctx, topic)
	if err != nil {
		return domain.GenerationParams{}, fmt.Errorf("load topic config: %w", err)
	}
	if !ok {
		return base, nil
	}
	return stored, nil
}

// Save validates and upserts the parameters of a topic.
func (t *Topics) Save(ctx context.Context, params domain.GenerationParams) (domain.GenerationParams, error) {
	params.Topic = strings.TrimSpace(params.Topic)
	params = params.WithDefaults(t.base(params.Topic))
	if err := params.Validate(); err != nil {
		return domain.GenerationParams{}, err
	}
	if err := t.store.SaveTopicConfig(ctx, params); err != nil {
		return domain.GenerationParams{}, fmt.Errorf("save topic config: %w", err)
	}
	return params, nil
}

// List returns every topic with stored parameters.
func (t *Topics) List(ctx context.Context) ([]string, error) {
	topics, err := t.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (t *Topics) base(topic string) domain.GenerationParams {
	base := t.defaults.WithDefaults(domain.DefaultParams(topic))
	base.Topic = topic
	return base
}
