package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder publishes counters and latencies on the default
// prometheus registry under the lnurl namespace. Counters are partitioned
// by event type and service host, latencies by operation and service host.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lnurl",
			Name:      "events_total",
			Help:      "lnurl event counters",
		},
		[]string{"type", "host"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lnurl",
			Name:      "latency_seconds",
			Help:      "lnurl operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "host"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type": name,
		"host": labels["host"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"host":      labels["host"],
	}).Observe(d.Seconds())
}
