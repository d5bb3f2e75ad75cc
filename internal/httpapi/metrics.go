package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sessiond",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "chat",
			Name:      "generations_total",
			Help:      "Total chat generations by model and outcome",
		},
		[]string{"model", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "chat",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of chat generations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"model"},
	)

	streamedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "chat",
			Name:      "streamed_bytes_total",
			Help:      "Total reply bytes streamed to clients",
		},
		[]string{"model"},
	)

	busyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "chat",
			Name:      "busy_total",
			Help:      "Total chat rejections because a generation was already in flight (409)",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight,
		generationsTotal, generationDuration, streamedBytes, busyTotal)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		// The chi route pattern is only known after routing has happened.
		path := routePatternOrPath(r)
		method := r.Method
		statusLabel := itoa(sr.status)
		dur := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(path, method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, method, statusLabel).Observe(dur)
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// observeGeneration records one finished chat generation.
func observeGeneration(model, status string, dur time.Duration, bytes int) {
	generationsTotal.WithLabelValues(model, status).Inc()
	generationDuration.WithLabelValues(model).Observe(dur.Seconds())
	if bytes > 0 {
		streamedBytes.WithLabelValues(model).Add(float64(bytes))
	}
}

// IncrementBusy is called when returning 409 to the client
func IncrementBusy(model string) {
	if model == "" {
		model = "unspecified"
	}
	busyTotal.WithLabelValues(model).Inc()
}

// fast integer to ascii for small set of status codes
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
