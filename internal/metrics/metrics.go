// Package metrics exposes Prometheus collectors for generation runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SEOPilot/internal/ports"
)

// SourceOutcome is what happened to one candidate URL during selection.
type SourceOutcome string

const (
	SourceAccepted       SourceOutcome = "accepted"
	SourceKnown          SourceOutcome = "known"
	SourceDuplicate      SourceOutcome = "duplicate"
	SourceNotArticle     SourceOutcome = "not_article"
	SourceEmpty          SourceOutcome = "empty"
	SourceFetchFailed    SourceOutcome = "fetch_failed"
	SourceScoreFailed    SourceOutcome = "score_failed"
	SourceDegraded       SourceOutcome = "degraded"
	SourcePersistFailed  SourceOutcome = "persist_failed"
	SourceBelowThreshold SourceOutcome = "below_threshold"
)

// Run outcomes.
const (
	RunSucceeded = "succeeded"
	RunNoSources = "no_sources"
	RunFailed    = "failed"
)

// Completion purposes.
const (
	PurposeScoring     = "scoring"
	PurposeSynthesis   = "synthesis"
	PurposeSuggestions = "suggestions"
)

// Recorder owns a private registry with the service collectors.
// A nil Recorder drops every observation.
type Recorder struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	sources    *prometheus.CounterVec
	completion *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seopilot_runs_total",
			Help: "Generation runs by outcome",
		}, []string{"outcome"}),
		sources: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seopilot_sources_total",
			Help: "Candidate source URLs by selection outcome",
		}, []string{"outcome"}),
		completion: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seopilot_completion_seconds",
			Help:    "Language model completion latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}, []string{"purpose"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RunOutcome counts a finished generation run.
func (r *Recorder) RunOutcome(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// SourceOutcome counts one candidate URL decision.
func (r *Recorder) SourceOutcome(outcome SourceOutcome) {
	if r == nil {
		return
	}
	r.sources.WithLabelValues(string(outcome)).Inc()
}

// ObserveCompletion records the latency of a model call.
func (r *Recorder) ObserveCompletion(purpose string, d time.Duration) {
	if r == nil {
		return
	}
	r.completion.WithLabelValues(purpose).Observe(d.Seconds())
}

// InstrumentCompleter times every completion made through c under purpose.
func InstrumentCompleter(c ports.Completer, purpose string, r *Recorder) ports.Completer {
	if r == nil {
		return c
	}
	return timedCompleter{next: c, purpose: purpose, recorder: r}
}

type timedCompleter struct {
	next     ports.Completer
	purpose  string
	recorder *Recorder
}

func (t timedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	out, err := t.next.Complete(ctx, prompt)
	t.recorder.ObserveCompletion(t.purpose, time.Since(started))
	return out, err
}
