package worker

import (
	"context"
	"time"

	"bebamart/internal/domain"

	"github.com/sirupsen/logrus"
)

// Expirer cancels pending orders older than a cutoff.
type Expirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) ([]domain.Order, error)
}

// OrderExpirer periodically cancels pending orders that were never paid,
// returning their held funds and stock.
type OrderExpirer struct {
	orders   Expirer
	ttl      time.Duration
	interval time.Duration

	// Called with the orders a sweep cancelled, when there are any. May be nil.
	onExpired func(ctx context.Context, expired []domain.Order)
}

// NewOrderExpirer creates the worker. Pending orders older than ttl are
// cancelled every interval.
func NewOrderExpirer(orders Expirer, ttl, interval time.Duration, onExpired func(ctx context.Context, expired []domain.Order)) *OrderExpirer {
	return &OrderExpirer{
		orders:    orders,
		ttl:       ttl,
		interval:  interval,
		onExpired: onExpired,
	}
}

// Start runs a sweep immediately and then on every tick until ctx is done.
func (w *OrderExpirer) Start(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"ttl":      w.ttl.String(),
		"interval": w.interval.String(),
	}).Info("Starting order expiry worker")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Order expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OrderExpirer) sweep(ctx context.Context) {
	expired, err := w.orders.ExpireStale(ctx, w.ttl)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("Order expiry sweep failed")
		}
		return
	}
	if len(expired) == 0 {
		logrus.Debug("No stale pending orders")
		return
	}
	logrus.WithFields(logrus.Fields{"count": len(expired), "older_than": w.ttl.String()}).Info("Expired pending orders")
	if w.onExpired != nil {
		w.onExpired(ctx, expired)
	}
}
