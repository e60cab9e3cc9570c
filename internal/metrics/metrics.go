// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveriesTotal       *prometheus.CounterVec
	tendersDiscoveredTotal prometheus.Counter
	detailFetchesTotal     *prometheus.CounterVec
	tendersSavedTotal      *prometheus.CounterVec
	pipelineRunsTotal      *prometheus.CounterVec
	phaseDurationSeconds   *prometheus.HistogramVec
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors on the default registry.
// It is safe to call multiple times.
func Init() {
	once.Do(func() {
		discoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etimad_discoveries_total",
				Help: "Total sub-category discovery attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		tendersDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "etimad_tenders_discovered_total",
				Help: "Total tender summary cards collected across all runs.",
			},
		)

		detailFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etimad_detail_fetches_total",
				Help: "Total tender detail page fetches, labeled by outcome.",
			},
			[]string{"status"},
		)

		tendersSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etimad_tenders_saved_total",
				Help: "Total tender upsert attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etimad_pipeline_runs_total",
				Help: "Total pipeline runs, labeled by final status.",
			},
			[]string{"status"},
		)

		phaseDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etimad_phase_duration_seconds",
				Help:    "Duration of each pipeline phase.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"phase"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)
	})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

// ObserveDiscovery records one sub-category discovery attempt.
func ObserveDiscovery(ok bool) {
	if discoveriesTotal != nil {
		discoveriesTotal.WithLabelValues(outcome(ok)).Inc()
	}
}

// AddTendersDiscovered records how many summary cards a discovery yielded.
func AddTendersDiscovered(n int) {
	if tendersDiscoveredTotal != nil && n > 0 {
		tendersDiscoveredTotal.Add(float64(n))
	}
}

// ObserveDetailFetch records one tender detail fetch.
func ObserveDetailFetch(ok bool) {
	if detailFetchesTotal != nil {
		detailFetchesTotal.WithLabelValues(outcome(ok)).Inc()
	}
}

// ObserveTenderSaved records one upsert attempt.
func ObserveTenderSaved(ok bool) {
	if tendersSavedTotal != nil {
		tendersSavedTotal.WithLabelValues(outcome(ok)).Inc()
	}
}

// ObservePipelineRun records the final status of a pipeline run.
func ObservePipelineRun(status string) {
	if pipelineRunsTotal != nil {
		pipelineRunsTotal.WithLabelValues(status).Inc()
	}
}

// ObservePhase records the duration of one pipeline phase.
func ObservePhase(phase string, d time.Duration) {
	if phaseDurationSeconds != nil {
		phaseDurationSeconds.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// ObserveHTTPRequest records one handled HTTP request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}
