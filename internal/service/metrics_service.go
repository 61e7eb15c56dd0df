package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the generation pipeline.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationRuns     *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	stageShortfalls    *prometheus.CounterVec
	understaffedLabs   prometheus.Counter
}

// NewMetricsService registers the core Prometheus collectors.
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

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_runs_total",
		Help: "Total timetable generation runs by parity and outcome",
	}, []string{"parity", "outcome"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Wall time of full generation runs",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"parity"})

	stageShortfalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_stage_shortfalls_total",
		Help: "Unplaced activities per pipeline stage",
	}, []string{"stage"})

	understaffedLabs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_understaffed_lab_batches_total",
		Help: "Lab batch activities that ended a run with fewer than two teachers",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationRuns, generationDuration, stageShortfalls, understaffedLabs, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationRuns:     generationRuns,
		generationDuration: generationDuration,
		stageShortfalls:    stageShortfalls,
		understaffedLabs:   understaffedLabs,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveGeneration records one finished (or failed) generation run.
func (m *MetricsService) ObserveGeneration(parity string, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(parity, outcome).Inc()
	m.generationDuration.WithLabelValues(parity).Observe(duration.Seconds())
}

// RecordStageShortfalls adds a stage's unplaced-activity count.
func (m *MetricsService) RecordStageShortfalls(stage string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.stageShortfalls.WithLabelValues(stage).Add(float64(count))
}

// RecordUnderstaffedBatches counts lab batches short of two teachers.
func (m *MetricsService) RecordUnderstaffedBatches(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.understaffedLabs.Add(float64(count))
}
