package domain

import (
	"net/url"
	"strings"
	"time"
)

// MinScore and MaxScore bound a usable relevance score.
const (
	MinScore = 1
	MaxScore = 10
)

// SourceRecord is a candidate piece of evidence discovered for a topic.
// Score is zero when the record was never given a usable score.
type SourceRecord struct {
	ID           int64
	URL          string
	Title        string
	RawText      string
	Score        int
	Summary      string
	Reason       string
	Tags         []string
	OriginDomain string
	DiscoveredAt time.Time
	Consumed     bool
	Degraded     bool
}

// HasScore reports whether the record carries a numeric relevance score.
func (s SourceRecord) HasScore() bool {
	return s.Score >= MinScore && s.Score <= MaxScore
}

// Eligible reports whether the record may enter an evidence set at the given threshold.
func (s SourceRecord) Eligible(threshold int) bool {
	return s.ID > 0 && !s.Degraded && s.HasScore() && s.Score >= threshold
}

// Verdict is the structured relevance assessment returned by the scorer.
type Verdict struct {
	Score    int
	Reason   string
	Summary  string
	Title    string
	Tags     []string
	Degraded bool
}

// DegradedReason is recorded on verdicts substituted for unparseable model output.
const DegradedReason = "AI analysis error"

// DegradedVerdict is the sentinel low-confidence verdict.
func DegradedVerdict() Verdict {
	return Verdict{
		Score:    MinScore,
		Reason:   DegradedReason,
		Tags:     []string{},
		Degraded: true,
	}
}

// OriginDomain extracts the host part of a source URL.
func OriginDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
