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
			Namespace: "nft_manager",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nft_manager",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nft_manager",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	transferOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nft_manager",
			Subsystem: "transfers",
			Name:      "outcomes_total",
			Help:      "Total number of transfer attempts by outcome.",
		},
		[]string{"outcome"},
	)

	auditAssetsChecked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nft_manager",
			Subsystem: "audit",
			Name:      "assets_checked",
			Help:      "Assets inspected by the last ledger sweep.",
		},
	)

	auditViolations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nft_manager",
			Subsystem: "audit",
			Name:      "ledger_violations",
			Help:      "Reconciliation failures found by the last ledger sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transferOutcomes,
		auditAssetsChecked,
		auditViolations,
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

// RecordTransfer counts one transfer attempt by outcome ("committed",
// "conflict", "forbidden", ...).
func RecordTransfer(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	transferOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAuditSweep publishes the result of the latest ledger sweep.
func RecordAuditSweep(assetsChecked, violations int) {
	auditAssetsChecked.Set(float64(assetsChecked))
	auditViolations.Set(float64(violations))
}

// Collector adapts the package-level recorders to the interfaces the
// transfer service and ledger auditor accept.
type Collector struct{}

func (Collector) RecordTransfer(outcome string)        { RecordTransfer(outcome) }
func (Collector) RecordAuditSweep(checked, broken int) { RecordAuditSweep(checked, broken) }

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

// canonicalPath collapses asset ids so the path label stays low-cardinality.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) < 3 {
		return "/" + strings.Join(parts, "/")
	}
	// /api/v1/assets, /api/v1/assets/:id, /api/v1/assets/:id/transfer
	if parts[2] == "assets" {
		switch len(parts) {
		case 3:
			return "/api/v1/assets"
		case 4:
			return "/api/v1/assets/:id"
		default:
			return "/api/v1/assets/:id/" + parts[4]
		}
	}
	return "/api/v1/" + parts[2]
}
