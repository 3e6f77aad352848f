package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bebamart/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the HTTP and marketplace collectors.
type Metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	escrows     *prometheus.CounterVec
	ledger      *prometheus.CounterVec
	expired     prometheus.Counter
	registry    *prometheus.Registry
}

var (
	defaultOnce sync.Once
	defaultReg  *Metrics
)

// Default returns the lazily-initialised process-wide metrics.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultReg = New(prometheus.NewRegistry())
	})
	return defaultReg
}

// New builds the collectors and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bebamart",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bebamart",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bebamart",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions.",
		}, []string{"from", "to"}),
		escrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bebamart",
			Subsystem: "escrow",
			Name:      "outcomes_total",
			Help:      "Escrow holds, releases and refunds.",
		}, []string{"status"}),
		ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bebamart",
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Ledger entries appended, by reason.",
		}, []string{"reason"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bebamart",
			Subsystem: "orders",
			Name:      "expired_total",
			Help:      "Pending orders cancelled by the expiry worker.",
		}),
		registry: registry,
	}
	registry.MustRegister(m.requests, m.latency, m.transitions, m.escrows, m.ledger, m.expired)
	return m
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(d.Seconds())
}

// OrderTransition counts an order status change. Inside Transaction the
// count waits for the commit.
func (m *Metrics) OrderTransition(ctx context.Context, from, to domain.OrderStatus) {
	if m == nil {
		return
	}
	after(ctx, func() { m.transitions.WithLabelValues(string(from), string(to)).Inc() })
}

// EscrowOutcome counts an escrow entering status.
func (m *Metrics) EscrowOutcome(ctx context.Context, status domain.EscrowStatus) {
	if m == nil {
		return
	}
	after(ctx, func() { m.escrows.WithLabelValues(string(status)).Inc() })
}

// LedgerAppend counts an appended ledger entry.
func (m *Metrics) LedgerAppend(ctx context.Context, reason domain.LedgerReason) {
	if m == nil {
		return
	}
	after(ctx, func() { m.ledger.WithLabelValues(string(reason)).Inc() })
}

// OrdersExpired adds n expired pending orders.
func (m *Metrics) OrdersExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
