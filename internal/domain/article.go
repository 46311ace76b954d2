package domain

import "time"

// ArticleStatus is a free-form lifecycle tag of a generated article.
type ArticleStatus string

const (
	StatusGenerated ArticleStatus = "generated"
	StatusPublished ArticleStatus = "published"
)

// GeneratedArticle is the synthesized output of one successful pipeline run.
type GeneratedArticle struct {
	ID                 int64
	Topic              string
	Title              string
	MetaDescription    string
	Body               string
	Tags               []string
	AverageSourceScore *float64
	Status             ArticleStatus
	CreatedAt          time.Time
	TargetPublishAt    *time.Time
	Images             []ImageRecord
}

// PrimaryImage returns the first image in insertion order.
func (a GeneratedArticle) PrimaryImage() (ImageRecord, bool) {
	if len(a.Images) == 0 {
		return ImageRecord{}, false
	}
	return a.Images[0], true
}

// ImageRecord holds metadata of a candidate illustration.
type ImageRecord struct {
	ID            int64
	ArticleID     int64
	URL           string
	AltText       string
	Caption       string
	License       string
	Author        string
	AuthorURL     string
	SourcePageURL string
}

// Draft is what the synthesizer produces before persistence.
type Draft struct {
	Topic           string
	Title           string
	MetaDescription string
	Body            string
	Tags            []string
}

// ArticleUpdate carries user edits; nil fields are left untouched.
type ArticleUpdate struct {
	Title           *string
	MetaDescription *string
	Body            *string
	Tags            *[]string
	Status          *ArticleStatus
	TargetPublishAt *time.Time
}

// Empty reports whether the update changes nothing.
func (u ArticleUpdate) Empty() bool {
	return u.Title == nil && u.MetaDescription == nil && u.Body == nil &&
		u.Tags == nil && u.Status == nil && u.TargetPublishAt == nil
}

// ArticleFilter narrows article listings.
type ArticleFilter struct {
	Topic  string
	Status ArticleStatus
	Limit  int
}

// AverageScore is the mean score of the given evidence, nil when none is scored.
func AverageScore(evidence []SourceRecord) *float64 {
	var (
		sum   int
		count int
	)
	for _, src := range evidence {
		if !src.HasScore() {
			continue
		}
		sum += src.Score
		count++
	}
	if count == 0 {
		return nil
	}
	avg := float64(sum) / float64(count)
	return &avg
}
