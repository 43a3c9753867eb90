// Package metrics collects and exposes Prometheus metrics for the API
// server and the dispatch worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	dispatches    prometheus.Counter
	dispatchFails prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tonalli_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tonalli_http_request_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tonalli_reminder_dispatch_total",
			Help: "Reminder dispatch jobs completed.",
		}),
		dispatchFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tonalli_reminder_dispatch_fail_total",
			Help: "Reminder dispatch jobs failed permanently.",
		}),
	}

	c.registry.MustRegister(c.httpRequests, c.httpLatency, c.dispatches, c.dispatchFails)
	return c
}

func (c *Collector) RecordHTTPRequest(method string, statusCode int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

func (c *Collector) RecordDispatch()        { c.dispatches.Inc() }
func (c *Collector) RecordDispatchFailure() { c.dispatchFails.Inc() }

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
