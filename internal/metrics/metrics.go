// Package metrics provides Prometheus instrumentation for the HTTP
// Service, Orchestrator, and Download Manager.
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// catalogd-specific metrics registered here:
//
//	catalogd_http_requests_total           — counter: HTTP requests by method/path/status
//	catalogd_http_request_duration_seconds — histogram: HTTP latency by method/path
//	catalogd_downloads_active              — gauge: in-flight Download Manager tasks
//	catalogd_cache_bytes                   — gauge: Media Cache total on-disk size
//	catalogd_download_errors_total         — counter: download failures by reason
//	catalogd_verification_events_total     — counter: verifier outcomes by platform/result
//	catalogd_scrape_duration_seconds       — histogram: full pipeline run duration
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Gauges ────────────────────────────────────────────────────────────────────

// DownloadsActive is the number of Download Manager tasks currently
// in the DOWNLOADING state.
var DownloadsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "catalogd_downloads_active",
	Help: "Number of download tasks currently in progress.",
})

// CacheBytes is the Media Cache's current total on-disk size.
var CacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "catalogd_cache_bytes",
	Help: "Current total size of the media cache directory, in bytes.",
})

// ── Counters ──────────────────────────────────────────────────────────────────

// HTTPRequests counts HTTP requests by method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// DownloadErrors counts download failures by reason (timeout, yt-dlp
// exit code, cache-write failure).
var DownloadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_download_errors_total",
	Help: "Download failures by reason.",
}, []string{"reason"})

// VerificationEvents counts verifier outcomes by platform and result.
var VerificationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_verification_events_total",
	Help: "Verifier outcomes by platform and result.",
}, []string{"platform", "result"})

// ── Histograms ────────────────────────────────────────────────────────────────

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "catalogd_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// ScrapeDuration tracks full orchestrator pipeline run duration.
var ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "catalogd_scrape_duration_seconds",
	Help:    "Time to run the full daily pipeline for one date.",
	Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler for the /metrics
// endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Middleware ────────────────────────────────────────────────────────────────

// Middleware wraps an HTTP handler to record request counts and
// latency. path should be the route's templated pattern (e.g.
// "/albums/{date}"), not the raw URL, to keep label cardinality bounded.
func Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// ── Init (registry-scoped) ────────────────────────────────────────────────────

// Init registers every catalogd metric with reg. Provided for tests —
// pass prometheus.NewRegistry() to get an isolated registry. In
// production the metrics above register to prometheus.DefaultRegisterer
// via promauto at package init time, independent of whether Init is
// ever called.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalogd_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalogd_downloads_active",
			Help: "Number of download tasks currently in progress.",
		}),
		prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalogd_cache_bytes",
			Help: "Current total size of the media cache directory, in bytes.",
		}),
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_download_errors_total",
			Help: "Download failures by reason.",
		}, []string{"reason"}),
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_verification_events_total",
			Help: "Verifier outcomes by platform and result.",
		}, []string{"platform", "result"}),
		prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogd_scrape_duration_seconds",
			Help:    "Time to run the full daily pipeline for one date.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
	)
}
