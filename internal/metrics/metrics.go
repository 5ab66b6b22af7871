// Package metrics exposes lessonkit activity as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors, registered on a private registry so tests
// can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Edits    *prometheus.CounterVec
	Commits  *prometheus.CounterVec
	Answers  *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessonkit_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lessonkit_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		Edits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessonkit_edits_total",
				Help: "Recorded editor changes by property",
			},
			[]string{"property"},
		),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessonkit_commits_total",
				Help: "Committed change lists by exploration",
			},
			[]string{"exploration_id"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessonkit_answers_total",
				Help: "Classified learner answers by exploration and state",
			},
			[]string{"exploration_id", "state"},
		),
	}
	m.Registry.MustRegister(
		m.Requests, m.Duration, m.Edits, m.Commits, m.Answers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnChangeRecorded: func(_ context.Context, e *domain.EditEvent) {
			m.Edits.WithLabelValues(e.Change.Property).Inc()
		},
		OnCommitted: func(_ context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(e.ExplorationID).Inc()
		},
		OnAnswerSubmitted: func(_ context.Context, e *domain.AnswerEvent) {
			m.Answers.WithLabelValues(e.ExplorationID, e.StateName).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware counts requests by chi route pattern, so path parameters do
// not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Merge combines hook sets; every non-nil callback runs in order.
func Merge(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		h := h
		if h.OnChangeRecorded != nil {
			prev := out.OnChangeRecorded
			out.OnChangeRecorded = func(ctx context.Context, e *domain.EditEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnChangeRecorded(ctx, e)
			}
		}
		if h.OnCommitted != nil {
			prev := out.OnCommitted
			out.OnCommitted = func(ctx context.Context, e *domain.CommitEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnCommitted(ctx, e)
			}
		}
		if h.OnAnswerSubmitted != nil {
			prev := out.OnAnswerSubmitted
			out.OnAnswerSubmitted = func(ctx context.Context, e *domain.AnswerEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnAnswerSubmitted(ctx, e)
			}
		}
	}
	return out
}
