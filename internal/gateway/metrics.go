package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "json2mqtt"

// Metrics holds the gateway's Prometheus collectors and the registry they
// are exposed from.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestBytes    prometheus.Histogram
	publishes       *prometheus.CounterVec
	publishDuration prometheus.Histogram
	publishInflight prometheus.Gauge
}

// NewMetrics creates the gateway collectors on a private registry, together
// with the standard Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "HTTP requests handled by the gateway, by outcome.",
			},
			[]string{"outcome"},
		),
		requestBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_bytes",
				Help:      "Body size of accepted requests.",
				Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
			},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publish_total",
				Help:      "MQTT publishes attempted, by result.",
			},
			[]string{"result"},
		),
		publishDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "publish_duration_seconds",
				Help:      "Time spent waiting for the broker to accept a publish.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		publishInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "publish_inflight",
				Help:      "Publishes started but not yet finished.",
			},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestBytes,
		m.publishes,
		m.publishDuration,
		m.publishInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose every series at zero from the start.
	for _, o := range outcomes {
		m.requests.WithLabelValues(o.String())
	}
	m.publishes.WithLabelValues(publishResultOK)
	m.publishes.WithLabelValues(publishResultError)

	return m
}

const (
	publishResultOK    = "ok"
	publishResultError = "error"
)

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeOutcome(o Outcome) {
	m.requests.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeAccepted(size int) {
	m.requestBytes.Observe(float64(size))
}

func (m *Metrics) publishStarted() {
	m.publishInflight.Inc()
}

func (m *Metrics) publishFinished(elapsed time.Duration, err error) {
	m.publishInflight.Dec()
	m.publishDuration.Observe(elapsed.Seconds())

	result := publishResultOK
	if err != nil {
		result = publishResultError
	}
	m.publishes.WithLabelValues(result).Inc()
}
