package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "envelopectl"

// Decode formats and outcomes used as metric labels.
const (
	FormatEnvelope    = "envelope"
	FormatCrashUpload = "crash_upload"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	captured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "requests_total",
			Help:      "Ingest requests recorded by the capture server.",
		},
		[]string{"kind", "encoding"},
	)
	capturedBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "body_bytes",
			Help:      "Size of recorded request bodies as received.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"kind"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "total",
			Help:      "Envelope and crash upload decode attempts.",
		},
		[]string{"format", "outcome"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "duration_seconds",
			Help:      "Decode duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, captured, capturedBytes, decodes, decodeDuration)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCapture(kind, encoding string, size int) {
	RegisterMetrics()
	if encoding == "" {
		encoding = "identity"
	}
	captured.WithLabelValues(kind, encoding).Inc()
	capturedBytes.WithLabelValues(kind).Observe(float64(size))
}

func RecordDecode(format string, duration time.Duration, err error) {
	RegisterMetrics()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	decodes.WithLabelValues(format, outcome).Inc()
	decodeDuration.WithLabelValues(format).Observe(duration.Seconds())
}
