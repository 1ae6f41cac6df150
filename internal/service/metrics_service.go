package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/fvu-intake/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	submissionAttempts *prometheus.CounterVec
	submissionOutcomes *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	draftWrites        *prometheus.CounterVec
	renderDuration     prometheus.Histogram
	artifactArchives   *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissionAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_submission_attempts_total",
		Help: "Transmission attempts by transport and result kind",
	}, []string{"transport", "result"})

	submissionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_submissions_total",
		Help: "Completed submission sequences by form type and outcome",
	}, []string{"form_type", "outcome"})

	submissionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intake_submission_duration_seconds",
		Help:    "Wall time of a submission sequence including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"form_type"})

	draftWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_draft_writes_total",
		Help: "Draft store writes by reason",
	}, []string{"reason"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "intake_render_duration_seconds",
		Help:    "Time spent rendering report artifacts",
		Buckets: prometheus.DefBuckets,
	})

	artifactArchives := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_artifact_archives_total",
		Help: "Background artifact archive writes by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissionAttempts, submissionOutcomes, submissionDuration, draftWrites, renderDuration, artifactArchives, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		submissionAttempts: submissionAttempts,
		submissionOutcomes: submissionOutcomes,
		submissionDuration: submissionDuration,
		draftWrites:        draftWrites,
		renderDuration:     renderDuration,
		artifactArchives:   artifactArchives,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSubmissionAttempt counts one transmission attempt. kind is empty on success.
func (m *MetricsService) ObserveSubmissionAttempt(transport string, kind models.ErrorKind) {
	if m == nil {
		return
	}
	result := string(kind)
	if result == "" {
		result = "success"
	}
	m.submissionAttempts.WithLabelValues(transport, result).Inc()
}

// ObserveSubmission records a finished submission sequence.
func (m *MetricsService) ObserveSubmission(formType models.FormType, outcome models.SubmissionOutcome, duration time.Duration) {
	if m == nil {
		return
	}
	label := "success"
	if !outcome.Success {
		label = string(outcome.ErrorKind)
	}
	m.submissionOutcomes.WithLabelValues(string(formType), label).Inc()
	m.submissionDuration.WithLabelValues(string(formType)).Observe(duration.Seconds())
}

// ObserveDraftWrite counts a draft store write.
func (m *MetricsService) ObserveDraftWrite(reason string) {
	if m == nil {
		return
	}
	m.draftWrites.WithLabelValues(reason).Inc()
}

// ObserveRender records artifact rendering time.
func (m *MetricsService) ObserveRender(duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(duration.Seconds())
}

// ObserveArtifactArchive counts a finished background archive job.
func (m *MetricsService) ObserveArtifactArchive(stored bool) {
	if m == nil {
		return
	}
	result := "stored"
	if !stored {
		result = "dropped"
	}
	m.artifactArchives.WithLabelValues(result).Inc()
}
