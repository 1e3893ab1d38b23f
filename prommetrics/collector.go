// Package prommetrics exports pagealloc metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/pagealloc"
)

var _ pagealloc.MetricsCollector = (*Collector)(nil)

// Collector implements pagealloc.MetricsCollector on Prometheus metrics.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	pages       *prometheus.CounterVec
	slabs       prometheus.Gauge
	mappedBytes prometheus.Gauge
}

// New creates a Collector and registers its metrics with reg. If reg is nil,
// prometheus.DefaultRegisterer is used. namespace prefixes every metric name.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of allocator operations",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"op"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total allocator operations by outcome",
		}, []string{"op", "status"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Total pages allocated, freed and purged",
		}, []string{"op"}),
		slabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapped_slabs",
			Help:      "Number of mapped slabs",
		}),
		mappedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapped_bytes",
			Help:      "Bytes of mapped slab memory",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.pages, c.slabs, c.mappedBytes} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAlloc implements pagealloc.MetricsCollector.
func (c *Collector) RecordAlloc(pages int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("alloc").Observe(d.Seconds())
	c.ops.WithLabelValues("alloc", status(err)).Inc()
	if err == nil {
		c.pages.WithLabelValues("alloc").Add(float64(pages))
	}
}

// RecordFree implements pagealloc.MetricsCollector.
func (c *Collector) RecordFree(pages int, err error) {
	c.ops.WithLabelValues("free", status(err)).Inc()
	if err == nil {
		c.pages.WithLabelValues("free").Add(float64(pages))
	}
}

// RecordPurge implements pagealloc.MetricsCollector.
func (c *Collector) RecordPurge(pages int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("purge").Observe(d.Seconds())
	c.ops.WithLabelValues("purge", status(err)).Inc()
	c.pages.WithLabelValues("purge").Add(float64(pages))
}

// RecordSlabs implements pagealloc.MetricsCollector.
func (c *Collector) RecordSlabs(slabs int, bytes int64) {
	c.slabs.Set(float64(slabs))
	c.mappedBytes.Set(float64(bytes))
}
