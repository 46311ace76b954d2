package api

import (
	"time"

	"SEOPilot/internal/domain"
)

type imageResponse struct {
	ID            int64  `json:"id"`
	URL           string `json:"url"`
	AltText       string `json:"alt_text"`
	Caption       string `json:"caption"`
	License       string `json:"license"`
	Author        string `json:"author"`
	AuthorURL     string `json:"author_url"`
	SourcePageURL string `json:"source_page_url"`
}

type articleResponse struct {
	ID                 int64           `json:"id"`
	Topic              string          `json:"topic"`
	Title              string          `json:"title"`
	MetaDescription    string          `json:"meta_description"`
	Body               string          `json:"body"`
	Tags               []string        `json:"tags"`
	AverageSourceScore *float64        `json:"average_source_score"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	TargetPublishAt    *time.Time      `json:"target_publish_at"`
	Images             []imageResponse `json:"images"`
	PrimaryImage       *imageResponse  `json:"primary_image"`
}

type sourceResponse struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Score        *int      `json:"score"`
	Summary      string    `json:"summary"`
	Reason       string    `json:"reason"`
	Tags         []string  `json:"tags"`
	OriginDomain string    `json:"origin_domain"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Consumed     bool      `json:"consumed"`
	Degraded     bool      `json:"degraded"`
	Text         string    `json:"text,omitempty"`
}

// updateRequest mirrors domain.ArticleUpdate; absent fields stay untouched.
type updateRequest struct {
	Title           *string    `json:"title"`
	MetaDescription *string    `json:"meta_description"`
	Body            *string    `json:"body"`
	Tags            *[]string  `json:"tags"`
	Status          *string    `json:"status"`
	TargetPublishAt *time.Time `json:"target_publish_at"`
}

func (u updateRequest) toDomain() domain.ArticleUpdate {
	update := domain.ArticleUpdate{
		Title:           u.Title,
		MetaDescription: u.MetaDescription,
		Body:            u.Body,
		Tags:            u.Tags,
		TargetPublishAt: u.TargetPublishAt,
	}
	if u.Status != nil {
		status := domain.ArticleStatus(*u.Status)
		update.Status = &status
	}
	return update
}

type rewriteRequest struct {
	Body        string `json:"body"`
	Instruction string `json:"instruction"`
}

// generateRequest carries optional parameter overrides; zero fields fall back
// to the topic configuration. ImageCount is a pointer because zero is valid.
type generateRequest struct {
	Topic               string `json:"topic"`
	SearchBreadth       int    `json:"search_breadth"`
	ScoreThreshold      int    `json:"score_threshold"`
	SelectorResultLimit int    `json:"selector_result_limit"`
	SynthResultLimit    int    `json:"synth_result_limit"`
	LengthWords         int    `json:"length_words"`
	Tone                string `json:"tone"`
	ImageCount          *int   `json:"image_count"`
}

func (g generateRequest) merge(base domain.GenerationParams) domain.GenerationParams {
	p := domain.GenerationParams{
		Topic:               g.Topic,
		SearchBreadth:       g.SearchBreadth,
		ScoreThreshold:      g.ScoreThreshold,
		SelectorResultLimit: g.SelectorResultLimit,
		SynthResultLimit:    g.SynthResultLimit,
		LengthWords:         g.LengthWords,
		Tone:                g.Tone,
		ImageCount:          base.ImageCount,
	}.WithDefaults(base)
	if g.ImageCount != nil {
		p.ImageCount = *g.ImageCount
	}
	return p
}

func toImageResponse(img domain.ImageRecord) imageResponse {
	return imageResponse{
		ID:            img.ID,
		URL:           img.URL,
		AltText:       img.AltText,
		Caption:       img.Caption,
		License:       img.License,
		Author:        img.Author,
		AuthorURL:     img.AuthorURL,
		SourcePageURL: img.SourcePageURL,
	}
}

func toArticleResponse(a domain.GeneratedArticle) articleResponse {
	resp := articleResponse{
		ID:                 a.ID,
		Topic:              a.Topic,
		Title:              a.Title,
		MetaDescription:    a.MetaDescription,
		Body:               a.Body,
		Tags:               a.Tags,
		AverageSourceScore: a.AverageSourceScore,
		Status:             string(a.Status),
		CreatedAt:          a.CreatedAt,
		TargetPublishAt:    a.TargetPublishAt,
		Images:             make([]imageResponse, 0, len(a.Images)),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	for _, img := range a.Images {
		resp.Images = append(resp.Images, toImageResponse(img))
	}
	if primary, ok := a.PrimaryImage(); ok {
		p := toImageResponse(primary)
		resp.PrimaryImage = &p
	}
	return resp
}

func toSourceResponse(s domain.SourceRecord, withText bool) sourceResponse {
	resp := sourceResponse{
		ID:           s.ID,
		URL:          s.URL,
		Title:        s.Title,
		Summary:      s.Summary,
		Reason:       s.Reason,
		Tags:         s.Tags,
		OriginDomain: s.OriginDomain,
		DiscoveredAt: s.DiscoveredAt,
		Consumed:     s.Consumed,
		Degraded:     s.Degraded,
	}
	if s.HasScore() {
		score := s.Score
		resp.Score = &score
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if withText {
		resp.Text = s.RawText
	}
	return resp
}
