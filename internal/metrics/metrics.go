package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesSorted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "pages_sorted_total",
			Help:      "Pages sorted, labeled by strategy and layout type",
		},
		[]string{"strategy", "layout"},
	)

	sortDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "readorder",
			Name:      "sort_duration_seconds",
			Help:      "Duration of adaptive sort runs",
			Buckets:   prometheus.DefBuckets,
		},
	)

	formatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "readorder",
			Name:      "format_duration_seconds",
			Help:      "Duration of page formatting runs",
			Buckets:   prometheus.DefBuckets,
		},
	)

	detectorReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "detector_requests_total",
			Help:      "Layout detector requests by result",
		},
		[]string{"result"},
	)

	ocrReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "ocr_requests_total",
			Help:      "OCR service requests by result",
		},
		[]string{"result"},
	)

	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "provider_requests_total",
			Help:      "Vision provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "readorder",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of vision provider requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "pages_processed_total",
			Help:      "Pages processed by the pipeline, by result (success, fallback, dlq)",
		},
		[]string{"result"},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readorder",
			Name:      "breaker_events_total",
			Help:      "Circuit breaker events by provider, model and action",
		},
		[]string{"provider", "model", "action"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "readorder",
			Name:      "queue_depth",
			Help:      "Queue depth gauges for stream, delayed and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(
		pagesSorted, sortDuration, formatDuration,
		detectorReqs, ocrReqs,
		providerReqs, providerLatency,
		pagesProcessed, breakerEvents, queueDepth,
	)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveSort(strategy, layout string, dur time.Duration) {
	pagesSorted.WithLabelValues(strategy, layout).Inc()
	sortDuration.Observe(dur.Seconds())
}

func ObserveFormat(dur time.Duration) { formatDuration.Observe(dur.Seconds()) }

func IncDetector(result string) { detectorReqs.WithLabelValues(result).Inc() }
func IncOCR(result string)      { ocrReqs.WithLabelValues(result).Inc() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncProcessed(result string) { pagesProcessed.WithLabelValues(result).Inc() }

func BreakerOpened(provider, model string) {
	breakerEvents.WithLabelValues(provider, model, "opened").Inc()
}

func BreakerClosed(provider, model string) {
	breakerEvents.WithLabelValues(provider, model, "closed").Inc()
}

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
