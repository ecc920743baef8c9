// Package metrics provides Prometheus metrics for sync and ingest runs.
//
// The jobs are short lived, so metrics live in a private registry that is
// pushed to a Pushgateway once the run is over.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"moviesync/internal/engine"
	"moviesync/internal/ingest"
)

const namespace = "moviesync"

// ErrMissingGateway is returned by Push when no Pushgateway URL is set.
var ErrMissingGateway = errors.New("pushgateway url is empty")

// Recorder collects the metrics of one process.
type Recorder struct {
	registry *prometheus.Registry

	// MoviesTotal counts processed movies by run kind and status.
	MoviesTotal *prometheus.CounterVec
	// ReviewsTotal counts reviews written by run kind.
	ReviewsTotal *prometheus.CounterVec
	// PopularSet reports the popular set groups of the last sync.
	PopularSet *prometheus.GaugeVec
	// EvictionsTotal counts popular entries removed, by result.
	EvictionsTotal *prometheus.CounterVec
	// CreditsTotal counts stored cast and director credits.
	CreditsTotal *prometheus.CounterVec
	// RunDuration measures run duration in seconds.
	RunDuration *prometheus.HistogramVec
	// LastSuccess is the unix time of the last completed run.
	LastSuccess *prometheus.GaugeVec
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		MoviesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "movies_total",
				Help:      "Total number of processed movies",
			},
			[]string{"run", "status"},
		),
		ReviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_total",
				Help:      "Total number of reviews written",
			},
			[]string{"run"},
		),
		PopularSet: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "popular_set_movies",
				Help:      "Size of the popular set groups in the last sync",
			},
			[]string{"group"},
		),
		EvictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evictions_total",
				Help:      "Total number of popular entries removed",
			},
			[]string{"result"},
		),
		CreditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_total",
				Help:      "Total number of stored credits",
			},
			[]string{"kind"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"run"},
		),
		LastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
			[]string{"run"},
		),
	}
}

// Registry returns the registry holding every collector.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSync records a synchronization summary.
func (r *Recorder) ObserveSync(s *engine.Summary) {
	const run = "sync"

	r.MoviesTotal.WithLabelValues(run, "succeeded").Add(float64(s.Succeeded))
	r.MoviesTotal.WithLabelValues(run, "not_found").Add(float64(s.NotFound))
	r.MoviesTotal.WithLabelValues(run, "failed").Add(float64(s.Failed))
	r.MoviesTotal.WithLabelValues(run, "deferred").Add(float64(s.Deferred))
	r.ReviewsTotal.WithLabelValues(run).Add(float64(s.ReviewsMerged))

	r.PopularSet.WithLabelValues("candidates").Set(float64(s.Candidates))
	r.PopularSet.WithLabelValues("retained").Set(float64(s.Retained))
	r.PopularSet.WithLabelValues("entering").Set(float64(s.Entering))
	r.PopularSet.WithLabelValues("leaving").Set(float64(s.Leaving))

	r.EvictionsTotal.WithLabelValues("deleted").Add(float64(s.Evicted))
	r.EvictionsTotal.WithLabelValues("failed").Add(float64(s.EvictionFailures))

	r.RunDuration.WithLabelValues(run).Observe(s.Duration.Seconds())
	r.LastSuccess.WithLabelValues(run).SetToCurrentTime()
}

// ObserveIngest records a catalog ingest summary.
func (r *Recorder) ObserveIngest(s *ingest.Summary) {
	const run = "ingest"

	r.MoviesTotal.WithLabelValues(run, "succeeded").Add(float64(s.Succeeded))
	r.MoviesTotal.WithLabelValues(run, "not_found").Add(float64(s.NotFound))
	r.MoviesTotal.WithLabelValues(run, "failed").Add(float64(s.Failed))
	r.ReviewsTotal.WithLabelValues(run).Add(float64(s.Reviews))

	r.CreditsTotal.WithLabelValues("cast").Add(float64(s.CastCredits))
	r.CreditsTotal.WithLabelValues("director").Add(float64(s.DirectorCredits))

	r.RunDuration.WithLabelValues(run).Observe(s.Duration.Seconds())
	r.LastSuccess.WithLabelValues(run).SetToCurrentTime()
}

// Push sends the registry to the Pushgateway at url under job, grouped by
// instance when it is not empty.
func (r *Recorder) Push(ctx context.Context, url, job, instance string) error {
	if url == "" {
		return ErrMissingGateway
	}

	pusher := push.New(url, job).Gatherer(r.registry)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}

	return nil
}
