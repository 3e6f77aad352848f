package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bebamart/internal/address"
	"bebamart/internal/cart"
	"bebamart/internal/domain"
	"bebamart/internal/escrow"
	"bebamart/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service runs the order lifecycle. Each state-changing method is a single
// transaction covering the order, its escrow and the affected wallets.
type Service struct {
	db       *gorm.DB
	escrow   *escrow.Controller
	rules    cart.Rules
	currency string
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCurrency sets the currency recorded on new orders.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithMetrics records transitions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates an order service.
func NewService(db *gorm.DB, esc *escrow.Controller, rules cart.Rules, opts ...Option) *Service {
	s := &Service{
		db:       db,
		escrow:   esc,
		rules:    rules,
		currency: "UGX",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout previews the orders the buyer's cart would produce.
func (s *Service) Checkout(ctx context.Context, buyerID uint) (*cart.Summary, error) {
	lines, err := cart.Lines(s.db.WithContext(ctx), buyerID, false)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.Validationf("cart is empty")
	}
	return cart.Summarize(lines, s.rules)
}

// PlaceInput carries buyer-supplied checkout details. AddressID picks a
// saved address; otherwise ShippingAddress is used as typed, and when both
// are empty the buyer's default address applies.
type PlaceInput struct {
	AddressID       uint
	ShippingAddress string
}

// shippingAddress resolves the address snapshotted onto the orders.
func shippingAddress(tx *gorm.DB, buyerID uint, in PlaceInput) (string, error) {
	if in.AddressID != 0 {
		a, err := address.Owned(tx, buyerID, in.AddressID)
		if err != nil {
			return "", err
		}
		return a.Format(), nil
	}
	if typed := strings.TrimSpace(in.ShippingAddress); typed != "" {
		return typed, nil
	}
	a, err := address.Default(tx, buyerID)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", domain.Validationf("shipping address is required")
	}
	return a.Format(), nil
}

// Place turns the buyer's cart into one pending order per vendor. For each
// order it reserves stock, locks the total in the buyer's wallet and opens a
// held escrow; the cart is then cleared. Nothing is written if any step fails.
func (s *Service) Place(ctx context.Context, buyerID uint, in PlaceInput) ([]domain.Order, error) {
	now := s.now()
	var placed []domain.Order
	err := metrics.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		lines, err := cart.Lines(tx, buyerID, true)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.Validationf("cart is empty")
		}
		shipTo, err := shippingAddress(tx, buyerID, in)
		if err != nil {
			return err
		}
		for _, g := range cart.GroupByVendor(lines) {
			o, err := s.placeGroup(tx, buyerID, g, shipTo, now)
			if err != nil {
				return err
			}
			placed = append(placed, *o)
		}
		return cart.Clear(tx, buyerID)
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		}).Warn("Order placement failed")
		return nil, err
	}
	for _, o := range placed {
		logrus.WithFields(logrus.Fields{
			"buyer_id":     buyerID,
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
			"vendor_id":    o.VendorProfileID,
			"total":        o.Total,
		}).Info("Order placed")
	}
	return placed, nil
}

func (s *Service) placeGroup(tx *gorm.DB, buyerID uint, g cart.VendorGroup, shipTo string, now time.Time) (*domain.Order, error) {
	var vendor domain.VendorProfile
	if err := tx.First(&vendor, g.VendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("vendor")
		}
		return nil, err
	}
	if vendor.UserID == buyerID {
		return nil, domain.Validationf("cannot order your own listings")
	}
	totals, err := cart.ComputeTotals(g.Lines, s.rules)
	if err != nil {
		return nil, err
	}

	o := domain.Order{
		OrderNumber:     uuid.NewString(),
		BuyerID:         buyerID,
		VendorProfileID: g.VendorID,
		Status:          domain.OrderPending,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Currency:        s.currency,
		ShippingAddress: shipTo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, l := range g.Lines {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND stock >= ?", l.ListingID, l.Quantity).
			Update("stock", gorm.Expr("stock - ?", l.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.Validationf("listing %d no longer has %d units", l.ListingID, l.Quantity)
		}
		o.Items = append(o.Items, domain.OrderItem{
			ListingID: l.ListingID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal(),
		})
	}
	if err := tx.Create(&o).Error; err != nil {
		return nil, err
	}
	held, err := s.escrow.Hold(tx, o.ID, o.Total)
	if err != nil {
		return nil, err
	}
	o.Escrow = held
	return &o, nil
}

// Pay confirms payment of a pending order from the wallet funds already held
// in escrow.
func (s *Service) Pay(ctx context.Context, buyerID, orderID uint) (*domain.Order, error) {
	return s.mutate(ctx, orderID, Scope{BuyerID: buyerID}, func(tx *gorm.DB, o *domain.Order, now time.Time) error {
		return Transition(tx, o, domain.OrderPaid, now, s.metrics)
	})
}

// Cancel cancels a pending or paid order, returning the held funds to the
// buyer's balance and the units to stock.
func (s *Service) Cancel(ctx context.Context, buyerID, orderID uint) (*domain.Order, error) {
	return s.mutate(ctx, orderID, Scope{BuyerID: buyerID}, s.cancelLocked)
}

// ConfirmDelivery marks a shipped order delivered and releases its escrow to
// the vendor.
func (s *Service) ConfirmDelivery(ctx context.Context, buyerID, orderID uint) (*domain.Order, error) {
	return s.mutate(ctx, orderID, Scope{BuyerID: buyerID}, func(tx *gorm.DB, o *domain.Order, now time.Time) error {
		if o.Status != domain.OrderShipped {
			return fmt.Errorf("%w: order %d is %s; delivery can only be confirmed once shipped", domain.ErrInvalidTransition, o.ID, o.Status)
		}
		if err := Transition(tx, o, domain.OrderDelivered, now, s.metrics); err != nil {
			return err
		}
		_, err := s.escrow.Release(tx, o.ID)
		return err
	})
}

// UpdateStatusByVendor lets the vendor progress an order to processing or
// shipped, or cancel it while still pending or paid.
func (s *Service) UpdateStatusByVendor(ctx context.Context, vendorProfileID, orderID uint, next domain.OrderStatus) (*domain.Order, error) {
	switch next {
	case domain.OrderProcessing, domain.OrderShipped:
		return s.mutate(ctx, orderID, Scope{VendorProfileID: vendorProfileID}, func(tx *gorm.DB, o *domain.Order, now time.Time) error {
			return Transition(tx, o, next, now, s.metrics)
		})
	case domain.OrderCancelled:
		return s.mutate(ctx, orderID, Scope{VendorProfileID: vendorProfileID}, s.cancelLocked)
	default:
		return nil, domain.Validationf("vendors cannot set status %q", next)
	}
}

// ExpireStale cancels pending orders created more than olderThan ago and
// returns the cancelled orders. Orders that moved on concurrently are
// skipped.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) ([]domain.Order, error) {
	cutoff := s.now().Add(-olderThan)
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("status = ? AND created_at < ?", domain.OrderPending, cutoff).
		Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	var expired []domain.Order
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		o, err := s.mutate(ctx, id, Scope{}, func(tx *gorm.DB, o *domain.Order, now time.Time) error {
			if o.Status != domain.OrderPending {
				return fmt.Errorf("%w: order %d is %s", domain.ErrInvalidTransition, o.ID, o.Status)
			}
			return s.cancelLocked(tx, o, now)
		})
		if errors.Is(err, domain.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"order_id": id, "error": err.Error()}).Error("Failed to expire pending order")
			continue
		}
		expired = append(expired, *o)
	}
	s.metrics.OrdersExpired(len(expired))
	return expired, nil
}

func (s *Service) cancelLocked(tx *gorm.DB, o *domain.Order, now time.Time) error {
	if err := Transition(tx, o, domain.OrderCancelled, now, s.metrics); err != nil {
		return err
	}
	if _, err := s.escrow.Refund(tx, o.ID, domain.ReasonOrderCancelled); err != nil {
		return err
	}
	var items []domain.OrderItem
	if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		if err := tx.Model(&domain.Listing{}).Where("id = ?", item.ListingID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

// mutate locks the order inside a transaction, applies fn and returns the
// reloaded order.
func (s *Service) mutate(ctx context.Context, orderID uint, scope Scope, fn func(tx *gorm.DB, o *domain.Order, now time.Time) error) (*domain.Order, error) {
	var result *domain.Order
	err := metrics.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		o, err := Lock(tx, orderID, scope)
		if err != nil {
			return err
		}
		from := o.Status
		if err := fn(tx, o, s.now()); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"order_id": o.ID,
			"from":     from,
			"to":       o.Status,
		}).Info("Order status changed")
		result, err = load(tx, o.ID, Scope{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
