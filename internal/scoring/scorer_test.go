package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/prompt"
	"SEOPilot/internal/structured"
)

type stubCompleter struct {
	answer string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, p string) (string, error) {
	s.prompt = p
	return s.answer, s.err
}

func newScorer(t *testing.T, c *stubCompleter) *Scorer {
	t.Helper()
	set, err := prompt.Default()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	return New(c, set, nil)
}

func TestScoreParsesVerdict(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		answer string
		want   domain.Verdict
	}{
		{
			name:   "plain object",
			answer: `{"score": 8, "reason": "on topic", "summary": "EV prices", "tags": ["ev", " battery "]}`,
			want:   domain.Verdict{Score: 8, Reason: "on topic", Summary: "EV prices", Tags: []string{"ev", "battery"}},
		},
		{
			name:   "fenced with prose and fractional score",
			answer: "Here you go:\n```json\n{\"score\": 6.6, \"reason\": \"ok\", \"resumen\": \"corto\", \"tags\": \"a, b,,c\"}\n```",
			want:   domain.Verdict{Score: 7, Reason: "ok", Summary: "corto", Tags: []string{"a", "b", "c"}},
		},
		{
			name:   "summary falls back to reason",
			answer: `{"score": "9", "reason": "authoritative", "title": "Battery Day"}`,
			want:   domain.Verdict{Score: 9, Reason: "authoritative", Summary: "authoritative", Title: "Battery Day", Tags: []string{}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := newScorer(t, &stubCompleter{answer: tc.answer}).Score(context.Background(), "ev", "text")
			if err != nil {
				t.Fatalf("Score returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("verdict mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreWithoutJSONDegrades(t *testing.T) {
	t.Parallel()

	got, err := newScorer(t, &stubCompleter{answer: "I am unable to assess this page."}).Score(context.Background(), "ev", "text")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if !got.Degraded || got.Score != domain.MinScore || got.Reason != domain.DegradedReason {
		t.Fatalf("expected degraded verdict, got %+v", got)
	}
}

func TestScoreFailures(t *testing.T) {
	t.Parallel()

	completionErr := errors.New("upstream 500")
	cases := []struct {
		name    string
		stub    *stubCompleter
		wantErr error
	}{
		{"completion error", &stubCompleter{err: completionErr}, completionErr},
		{"malformed json", &stubCompleter{answer: `{"score": 8,, "reason": }`}, structured.ErrMalformed},
		{"score out of range", &stubCompleter{answer: `{"score": 14, "reason": "x"}`}, ErrNoUsableScore},
		{"score missing", &stubCompleter{answer: `{"reason": "x"}`}, ErrNoUsableScore},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := newScorer(t, tc.stub).Score(context.Background(), "ev", "text")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestScoreTruncatesInput(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{answer: `{"score": 5, "reason": "x"}`}
	long := strings.Repeat("é", MaxInputRunes+100)
	if _, err := newScorer(t, stub).Score(context.Background(), "ev", long); err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if strings.Contains(stub.prompt, strings.Repeat("é", MaxInputRunes+1)) {
		t.Fatalf("prompt text was not truncated")
	}
	if !strings.Contains(stub.prompt, strings.Repeat("é", MaxInputRunes)) {
		t.Fatalf("prompt text lost content")
	}
}
