package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vinizap/zapvenda/pkg/whatsapp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Funnel metrics
	FunnelsSaved            *prometheus.CounterVec
	FunnelsDeleted          prometheus.Counter
	FunnelValidationsFailed prometheus.Counter
	ExportsCreated          prometheus.Counter

	// WhatsApp metrics
	WhatsAppPolls *prometheus.CounterVec

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Funnel metrics
		FunnelsSaved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnels_saved_total",
				Help: "Total number of funnels saved",
			},
			[]string{"operation"}, // create, update
		),
		FunnelsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnels_deleted_total",
			Help: "Total number of funnels deleted",
		}),
		FunnelValidationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "funnel_validations_failed_total",
			Help: "Total number of funnel saves rejected by validation",
		}),
		ExportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "exports_created_total",
			Help: "Total number of exports created",
		}),

		// WhatsApp metrics
		WhatsAppPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatsapp_status_polls_total",
				Help: "Total number of WhatsApp connection status polls",
			},
			[]string{"state"}, // qrcode, connected, ..., error
		),

		// Database metrics
		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		}),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/v1/funnels/:id

			if req.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(req.Method, path).Observe(float64(req.ContentLength))
			}

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// FunnelSaved increments the saved funnels counter
func (m *Metrics) FunnelSaved(created bool) {
	op := "update"
	if created {
		op = "create"
	}
	m.FunnelsSaved.WithLabelValues(op).Inc()
}

// FunnelDeleted increments the deleted funnels counter
func (m *Metrics) FunnelDeleted() {
	m.FunnelsDeleted.Inc()
}

// FunnelValidationFailed increments the failed validations counter
func (m *Metrics) FunnelValidationFailed() {
	m.FunnelValidationsFailed.Inc()
}

// RecordExportCreated increments exports created counter
func (m *Metrics) RecordExportCreated() {
	m.ExportsCreated.Inc()
}

// WhatsAppPolled counts a status poll by resulting state
func (m *Metrics) WhatsAppPolled(state whatsapp.State, err error) {
	label := string(state)
	if err != nil {
		label = "error"
	}
	m.WhatsAppPolls.WithLabelValues(label).Inc()
}

// UpdateDBConnections updates the open database connections gauge
func (m *Metrics) UpdateDBConnections(count float64) {
	m.DBConnections.Set(count)
}
