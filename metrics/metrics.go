// Package metrics exposes widget activity as prometheus metrics.
//
// A Collector owns a private registry so several widgets (or tests) never
// collide on the global one. All methods are safe on a nil *Collector, which
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector captures widget metrics
type Collector struct {
	registry      *prometheus.Registry
	ticksTotal    prometheus.Counter
	eventsTotal   *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec
	renderErrors  prometheus.Counter
	frameDuration prometheus.Histogram
	sessions      prometheus.Gauge
}

// NewCollector initializes a new metrics registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		ticksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "webgraph_ticks_total", Help: "Frames processed by the widget"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "webgraph_pointer_events_total", Help: "Pointer events processed, by kind"},
			[]string{"kind"},
		),
		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "webgraph_dropped_calls_total", Help: "Callbacks dropped because the widget was busy"},
			[]string{"kind"},
		),
		renderErrors: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "webgraph_render_errors_total", Help: "Frames whose surface failed to present"},
		),
		frameDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webgraph_frame_duration_seconds",
				Help:    "Time spent relaxing and drawing one frame",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
			},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "webgraph_active_sessions", Help: "Connected browser sessions"},
		),
	}

	registry.MustRegister(c.ticksTotal, c.eventsTotal, c.droppedTotal, c.renderErrors, c.frameDuration, c.sessions)
	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveTick records one processed frame
func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.ticksTotal.Inc()
	c.frameDuration.Observe(d.Seconds())
}

// ObserveEvent records one processed pointer event
func (c *Collector) ObserveEvent(kind string) {
	if c == nil {
		return
	}
	c.eventsTotal.WithLabelValues(kind).Inc()
}

// ObserveDropped records a callback dropped by the reentrancy guard
func (c *Collector) ObserveDropped(kind string) {
	if c == nil {
		return
	}
	c.droppedTotal.WithLabelValues(kind).Inc()
}

// ObserveRenderError records a failed frame
func (c *Collector) ObserveRenderError() {
	if c == nil {
		return
	}
	c.renderErrors.Inc()
}

// SessionOpened increments the active session gauge
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessions.Inc()
}

// SessionClosed decrements the active session gauge
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessions.Dec()
}
