package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bebamart/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMetrics_CountsDomainEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OrderTransition(ctx, domain.OrderShipped, domain.OrderDelivered)
	m.OrderTransition(ctx, domain.OrderShipped, domain.OrderDelivered)
	m.EscrowOutcome(ctx, domain.EscrowReleased)
	m.LedgerAppend(ctx, domain.ReasonDeposit)
	m.OrdersExpired(3)
	m.OrdersExpired(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("shipped", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escrows.WithLabelValues("released")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledger.WithLabelValues("deposit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.ObserveRequest("/x", http.MethodGet, 200, time.Millisecond)
	m.OrderTransition(ctx, domain.OrderPending, domain.OrderPaid)
	m.EscrowOutcome(ctx, domain.EscrowHeld)
	m.LedgerAppend(ctx, domain.ReasonWithdrawal)
	m.OrdersExpired(1)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("/api/v1/health", http.MethodGet, 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bebamart_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}

func TestTransaction_RecordsOnlyAfterCommit(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m := New(reg)
	ctx := context.Background()

	err = Transaction(ctx, conn, func(tx *gorm.DB) error {
		m.EscrowOutcome(tx.Statement.Context, domain.EscrowHeld)
		m.LedgerAppend(tx.Statement.Context, domain.ReasonOrderLock)
		return errors.New("second vendor group failed")
	})
	require.Error(t, err)
	n, err := testutil.GatherAndCount(reg, "bebamart_escrow_outcomes_total", "bebamart_ledger_entries_total")
	require.NoError(t, err)
	assert.Zero(t, n, "rolled back work is not counted")

	err = Transaction(ctx, conn, func(tx *gorm.DB) error {
		m.EscrowOutcome(tx.Statement.Context, domain.EscrowHeld)
		return Transaction(tx.Statement.Context, tx, func(inner *gorm.DB) error {
			m.LedgerAppend(inner.Statement.Context, domain.ReasonOrderLock)
			assert.Zero(t, testutil.ToFloat64(m.ledger.WithLabelValues("order_lock")), "nested work waits for the outer commit")
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escrows.WithLabelValues("held")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledger.WithLabelValues("order_lock")))
}
