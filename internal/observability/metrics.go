package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionEncode = "encode"
	DirectionDecode = "decode"
)

var (
	registerOnce sync.Once

	edgeDataLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgexchange",
			Subsystem: "edge",
			Name:      "data_live",
			Help:      "Edge data handles created and not yet destroyed.",
		},
	)
	edgeEventsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgexchange",
			Subsystem: "edge",
			Name:      "events_live",
			Help:      "Edge event handles created and not yet destroyed.",
		},
	)
	edgeMetaBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgexchange",
			Subsystem: "edge",
			Name:      "meta_bytes_total",
			Help:      "Metadata bytes encoded or decoded.",
		},
		[]string{"direction"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgexchange",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgexchange",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(edgeDataLive, edgeEventsLive, edgeMetaBytes, httpRequests, httpDuration)
	})
}

func DataCreated() {
	RegisterMetrics()
	edgeDataLive.Inc()
}

func DataDestroyed() {
	RegisterMetrics()
	edgeDataLive.Dec()
}

func EventCreated() {
	RegisterMetrics()
	edgeEventsLive.Inc()
}

func EventDestroyed() {
	RegisterMetrics()
	edgeEventsLive.Dec()
}

func RecordMetaBytes(direction string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	edgeMetaBytes.WithLabelValues(direction).Add(float64(n))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
