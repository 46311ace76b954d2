package search

import (
	"context"
	"strings"
)

// Static answers queries from configured URL lists keyed by topic.
type Static struct {
	byTopic map[string][]string
}

// NewStatic copies the topic lists; keys are matched case-insensitively.
func NewStatic(lists map[string][]string) *Static {
	byTopic := make(map[string][]string, len(lists))
	for topic, urls := range lists {
		key := normalizeTopic(topic)
		byTopic[key] = append(byTopic[key], urls...)
	}
	return &Static{byTopic: byTopic}
}

// Name identifies the provider inside the registry.
func (s *Static) Name() string {
	return "static"
}

// Search returns the configured URLs for the query, or the "*" list when present.
func (s *Static) Search(_ context.Context, query string, limit int) ([]string, error) {
	urls, ok := s.byTopic[normalizeTopic(query)]
	if !ok {
		urls = s.byTopic["*"]
	}
	return limitURLs(urls, limit), nil
}

func normalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}
