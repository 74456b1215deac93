package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	bracketsBuilt    *prometheus.CounterVec
	results          *prometheus.CounterVec
	invalidated      prometheus.Counter
	integrityErrors  prometheus.Counter
	registrations    *prometheus.CounterVec
	rateLimited      prometheus.Counter
	archiveFailures  prometheus.Counter
	registrationOpen prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		bracketsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brackets_generated_total",
			Help: "Brackets generated, by elimination type and trigger.",
		}, []string{"type", "trigger"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_results_total",
			Help: "Match results submitted, by outcome (recorded, corrected, unchanged, rejected).",
		}, []string{"outcome"}),
		invalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_results_invalidated_total",
			Help: "Downstream results discarded by corrections.",
		}),
		integrityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracket_integrity_errors_total",
			Help: "Progression aborted because the stored bracket is inconsistent.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "team_registrations_total",
			Help: "Team registration attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bracket_archive_failures_total",
			Help: "Bracket snapshots that could not be uploaded.",
		}),
		registrationOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "registration_open",
			Help: "1 while team registration is open.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpLatency, r.bracketsBuilt, r.results, r.invalidated,
		r.integrityErrors, r.registrations, r.rateLimited, r.archiveFailures, r.registrationOpen,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) BracketGenerated(bracketType, trigger string) {
	if r == nil {
		return
	}
	r.bracketsBuilt.WithLabelValues(bracketType, trigger).Inc()
}

func (r *Recorder) ResultRecorded(outcome string, invalidated int) {
	if r == nil {
		return
	}
	r.results.WithLabelValues(outcome).Inc()
	if invalidated > 0 {
		r.invalidated.Add(float64(invalidated))
	}
}

func (r *Recorder) IntegrityError() {
	if r == nil {
		return
	}
	r.integrityErrors.Inc()
}

func (r *Recorder) Registration(outcome string) {
	if r == nil {
		return
	}
	r.registrations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

func (r *Recorder) ArchiveFailed() {
	if r == nil {
		return
	}
	r.archiveFailures.Inc()
}

func (r *Recorder) RegistrationOpen(open bool) {
	if r == nil {
		return
	}
	if open {
		r.registrationOpen.Set(1)
	} else {
		r.registrationOpen.Set(0)
	}
}

// Middleware counts requests per chi route pattern, so path parameters do not
// blow up label cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
		r.httpLatency.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}
