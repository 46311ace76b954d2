package domain

import (
	"fmt"
	"strings"
)

// Default generation parameters applied when a topic has no stored configuration.
const (
	DefaultSearchBreadth       = 10
	DefaultScoreThreshold      = 5
	DefaultSelectorResultLimit = 5
	DefaultSynthResultLimit    = 3
	DefaultLengthWords         = 1500
	DefaultTone                = "neutral"
	DefaultImageCount          = 2

	minLengthWords = 100
)

// GenerationParams drives one pipeline run; it is also the stored per-topic configuration.
type GenerationParams struct {
	Topic               string `json:"topic" yaml:"topic"`
	SearchBreadth       int    `json:"search_breadth" yaml:"searchBreadth"`
	ScoreThreshold      int    `json:"score_threshold" yaml:"scoreThreshold"`
	SelectorResultLimit int    `json:"selector_result_limit" yaml:"selectorResultLimit"`
	SynthResultLimit    int    `json:"synth_result_limit" yaml:"synthResultLimit"`
	LengthWords         int    `json:"length_words" yaml:"lengthWords"`
	Tone                string `json:"tone" yaml:"tone"`
	ImageCount          int    `json:"image_count" yaml:"imageCount"`
}

// DefaultParams returns the default configuration for a topic.
func DefaultParams(topic string) GenerationParams {
	return GenerationParams{
		Topic:               topic,
		SearchBreadth:       DefaultSearchBreadth,
		ScoreThreshold:      DefaultScoreThreshold,
		SelectorResultLimit: DefaultSelectorResultLimit,
		SynthResultLimit:    DefaultSynthResultLimit,
		LengthWords:         DefaultLengthWords,
		Tone:                DefaultTone,
		ImageCount:          DefaultImageCount,
	}
}

// WithDefaults fills zero-valued fields from base. ImageCount is taken as given
// because zero images is a valid request.
func (p GenerationParams) WithDefaults(base GenerationParams) GenerationParams {
	if strings.TrimSpace(p.Topic) == "" {
		p.Topic = base.Topic
	}
	if p.SearchBreadth == 0 {
		p.SearchBreadth = base.SearchBreadth
	}
	if p.ScoreThreshold == 0 {
		p.ScoreThreshold = base.ScoreThreshold
	}
	if p.SelectorResultLimit == 0 {
		p.SelectorResultLimit = base.SelectorResultLimit
	}
	if p.SynthResultLimit == 0 {
		p.SynthResultLimit = base.SynthResultLimit
	}
	if p.LengthWords == 0 {
		p.LengthWords = base.LengthWords
	}
	if strings.TrimSpace(p.Tone) == "" {
		p.Tone = base.Tone
	}
	return p
}

// Validate checks parameter ranges.
func (p GenerationParams) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Topic) == "" {
		problems = append(problems, "topic is required")
	}
	if p.SearchBreadth < 1 {
		problems = append(problems, "search_breadth must be >= 1")
	}
	if p.ScoreThreshold < MinScore || p.ScoreThreshold > MaxScore {
		problems = append(problems, fmt.Sprintf("score_threshold must be within %d..%d", MinScore, MaxScore))
	}
	if p.SelectorResultLimit < 1 {
		problems = append(problems, "selector_result_limit must be >= 1")
	}
	if p.SynthResultLimit < 1 {
		problems = append(problems, "synth_result_limit must be >= 1")
	}
	if p.LengthWords < minLengthWords {
		problems = append(problems, fmt.Sprintf("length_words must be >= %d", minLengthWords))
	}
	if p.ImageCount < 0 {
		problems = append(problems, "image_count must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return nil
}
