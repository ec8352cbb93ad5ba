package metrics

import (
	"net/http"
	"strconv"
	"time"

	"comanda/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comanda"

// Collector owns the service's prometheus collectors on a private registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	ordersCreated  prometheus.Counter
	transitions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	completionTime prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	wsSubscribers  prometheus.Gauge
	menuRotations  *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	c := &Collector{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders accepted from customers",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status changes applied",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_rejections_total",
			Help:      "Order writes refused, by reason",
		}, []string{"reason"}),
		completionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_completion_time_seconds",
			Help:      "Time from order placement to completion",
			Buckets:   prometheus.LinearBuckets(0, 300, 12), // 5-minute buckets
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		wsSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Connected event stream subscribers",
		}),
		menuRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_rotations_total",
			Help:      "Scheduled menu window changes announced",
		}, []string{"category"}),
	}

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		c.ordersCreated,
		c.transitions,
		c.rejections,
		c.completionTime,
		c.httpRequests,
		c.httpDuration,
		c.wsSubscribers,
		c.menuRotations,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OrderCreated counts an accepted order.
func (c *Collector) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

// OrderTransition records a status change and, for completions, the time
// the order spent in the kitchen.
func (c *Collector) OrderTransition(order *models.Order, from models.OrderStatus) {
	if c == nil || order == nil {
		return
	}
	c.transitions.WithLabelValues(string(from), string(order.Status)).Inc()
	if order.Status == models.OrderStatusCompleted && order.CompletedAt != nil {
		c.completionTime.Observe(order.CompletedAt.Sub(order.CreatedAt).Seconds())
	}
}

// OrderRejected counts a refused write.
func (c *Collector) OrderRejected(reason string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(reason).Inc()
}

// HTTPRequest records one served request.
func (c *Collector) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetSubscribers reports the number of connected stream clients.
func (c *Collector) SetSubscribers(n int) {
	if c == nil {
		return
	}
	c.wsSubscribers.Set(float64(n))
}

// MenuRotated counts a scheduled window change.
func (c *Collector) MenuRotated(category models.MenuCategory) {
	if c == nil {
		return
	}
	c.menuRotations.WithLabelValues(string(category)).Inc()
}
