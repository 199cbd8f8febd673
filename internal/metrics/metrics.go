// Package metrics exposes Prometheus metrics for the HTTP layer and the timeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	UploadSucceeded = "succeeded"
	UploadFailed    = "failed"
	UploadRejected  = "rejected"
)

// Collector owns its registry so tests can build as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	eventsAdded    prometheus.Counter
	eventsUpdated  prometheus.Counter
	eventsDeleted  prometheus.Counter
	timelines      *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	activeSessions prometheus.Gauge
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		eventsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_added_total",
			Help:      "Total number of timeline events added",
		}),
		eventsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_updated_total",
			Help:      "Total number of timeline events updated",
		}),
		eventsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deleted_total",
			Help:      "Total number of timeline events deleted",
		}),
		timelines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_operations_total",
			Help:      "Timeline registry operations by kind",
		}, []string{"operation"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_uploads_total",
			Help:      "Media uploads by outcome",
		}, []string{"type", "outcome"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_uploaded_bytes_total",
			Help:      "Bytes written to media storage",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Users with an in-memory timeline state",
		}),
	}

	c.registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.eventsAdded,
		c.eventsUpdated,
		c.eventsDeleted,
		c.timelines,
		c.uploads,
		c.uploadedBytes,
		c.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveHTTP records one request. route is the matched mux pattern.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) EventAdded() {
	if c == nil {
		return
	}
	c.eventsAdded.Inc()
}

func (c *Collector) EventUpdated() {
	if c == nil {
		return
	}
	c.eventsUpdated.Inc()
}

func (c *Collector) EventDeleted() {
	if c == nil {
		return
	}
	c.eventsDeleted.Inc()
}

// TimelineOperation counts create, delete, select and rename.
func (c *Collector) TimelineOperation(op string) {
	if c == nil {
		return
	}
	c.timelines.WithLabelValues(op).Inc()
}

func (c *Collector) Upload(mediaType, outcome string, size int64) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(mediaType, outcome).Inc()
	if outcome == UploadSucceeded {
		c.uploadedBytes.Add(float64(size))
	}
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}
