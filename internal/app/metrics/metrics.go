package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pulsedesk",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsedesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pulsedesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	snapshotBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pulsedesk",
			Subsystem: "reconciler",
			Name:      "snapshots_total",
			Help:      "Total number of unified metric snapshots assembled.",
		},
	)

	snapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pulsedesk",
			Subsystem: "reconciler",
			Name:      "snapshot_duration_seconds",
			Help:      "Duration of unified snapshot assembly.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	sourceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsedesk",
			Subsystem: "reconciler",
			Name:      "source_results_total",
			Help:      "Per-source fetch outcomes during snapshot assembly.",
		},
		[]string{"source", "outcome"},
	)

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsedesk",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total remote gateway calls by result code.",
		},
		[]string{"kind", "code"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		snapshotBuilds,
		snapshotDuration,
		sourceResults,
		gatewayRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSnapshot records one unified snapshot assembly.
func RecordSnapshot(duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	snapshotBuilds.Inc()
	snapshotDuration.Observe(duration.Seconds())
}

// RecordSourceResult records a per-source fetch outcome.
func RecordSourceResult(source string, degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	sourceResults.WithLabelValues(source, outcome).Inc()
}

// RecordGatewayRequest records a remote gateway call outcome.
func RecordGatewayRequest(kind, code string) {
	if code == "" {
		code = "ok"
	}
	gatewayRequests.WithLabelValues(kind, code).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource identifiers so metric labels stay bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 3 && parts[0] == "api" {
		resource := parts[2]
		if len(parts) == 3 {
			return "/api/v1/" + resource
		}
		return "/api/v1/" + resource + "/:id"
	}
	return "/" + parts[0]
}
