package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drivebench/internal/benchmark"
)

// Metrics collects run progress. It implements benchmark.Recorder.
type Metrics struct {
	Registry *prometheus.Registry

	TrialsTotal   *prometheus.CounterVec
	TrialSeconds  *prometheus.HistogramVec
	TrialMemoryMB *prometheus.GaugeVec
	CacheLookups  *prometheus.CounterVec
	BuildSeconds  *prometheus.GaugeVec
	BuildFailures *prometheus.CounterVec
}

var _ benchmark.Recorder = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.TrialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivebench_trials_total",
			Help: "Total number of benchmark trials by outcome",
		},
		[]string{"benchmark", "library", "status"},
	)

	m.TrialSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivebench_trial_seconds",
			Help:    "Measured elapsed time of benchmark trials, build time excluded",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"benchmark", "library"},
	)

	m.TrialMemoryMB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivebench_trial_memory_megabytes",
			Help: "Peak resident memory of the last trial per input size",
		},
		[]string{"benchmark", "library", "size"},
	)

	m.CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivebench_cache_lookups_total",
			Help: "Result cache lookups by result",
		},
		[]string{"benchmark", "library", "result"},
	)

	m.BuildSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivebench_build_seconds",
			Help: "Duration of the last build of a compiled benchmark",
		},
		[]string{"benchmark", "library"},
	)

	m.BuildFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivebench_build_failures_total",
			Help: "Total number of failed benchmark builds",
		},
		[]string{"benchmark", "library"},
	)

	m.Registry.MustRegister(
		m.TrialsTotal,
		m.TrialSeconds,
		m.TrialMemoryMB,
		m.CacheLookups,
		m.BuildSeconds,
		m.BuildFailures,
	)

	return m
}

func (m *Metrics) CacheLookup(bench, library string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(bench, library, result).Inc()
}

func (m *Metrics) Build(bench, library string, d time.Duration, err error) {
	if err != nil {
		m.BuildFailures.WithLabelValues(bench, library).Inc()
		return
	}
	m.BuildSeconds.WithLabelValues(bench, library).Set(d.Seconds())
}

func (m *Metrics) Trial(bench, library string, size int, sample benchmark.Sample, err error) {
	if err != nil {
		m.TrialsTotal.WithLabelValues(bench, library, "failed").Inc()
		return
	}
	m.TrialsTotal.WithLabelValues(bench, library, "ok").Inc()
	if !math.IsNaN(sample.Seconds) {
		m.TrialSeconds.WithLabelValues(bench, library).Observe(sample.Seconds)
	}
	if !math.IsNaN(sample.MemoryMB) {
		m.TrialMemoryMB.WithLabelValues(bench, library, strconv.Itoa(size)).Set(sample.MemoryMB)
	}
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartMetricsServer exposes the metrics on addr until ctx is done.
func StartMetricsServer(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
