package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus primitives scraped from /metrics.
type Metrics struct {
	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	invoices      *prometheus.CounterVec
	invoiceAmount *prometheus.HistogramVec
}

// NewMetrics registers the collectors on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "innkeeper_api_duration_seconds",
		Help:    "API request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_invoices_total",
		Help: "Invoices issued by source and payment method.",
	}, []string{"source", "payment_method"})

	invoiceAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "innkeeper_invoice_amount",
		Help:    "Invoice total distribution.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"source"})

	reg.MustRegister(apiRequests, apiDuration, invoices, invoiceAmount)

	return &Metrics{
		apiRequests:   apiRequests,
		apiDuration:   apiDuration,
		invoices:      invoices,
		invoiceAmount: invoiceAmount,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// ObserveInvoice records an issued invoice and its total.
func (m *Metrics) ObserveInvoice(source, paymentMethod string, amount float64) {
	if m == nil {
		return
	}
	sourceLabel := sanitizeLabel(source)
	m.invoices.WithLabelValues(sourceLabel, sanitizeLabel(paymentMethod)).Inc()
	m.invoiceAmount.WithLabelValues(sourceLabel).Observe(amount)
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
