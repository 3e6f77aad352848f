package escrow

import (
	"errors"
	"fmt"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/ledger"
	"bebamart/internal/metrics"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Controller holds buyer funds against an order and settles them exactly
// once. Every method runs inside the caller's transaction so the escrow
// outcome commits together with the order status change.
type Controller struct {
	ledger  ledger.Ledger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records escrow outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates an escrow controller writing balances through l.
func NewController(l ledger.Ledger, opts ...Option) *Controller {
	c := &Controller{ledger: l, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hold locks amount in the buyer's wallet and opens a held escrow for the
// order. amount must equal the order total.
func (c *Controller) Hold(tx *gorm.DB, orderID uint, amount int64) (*domain.Escrow, error) {
	if amount <= 0 {
		return nil, domain.Validationf("escrow amount must be positive")
	}
	var order domain.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("order")
		}
		return nil, err
	}
	if order.Total != amount {
		return nil, domain.Validationf("escrow amount %d does not match order total %d", amount, order.Total)
	}
	var existing int64
	if err := tx.Model(&domain.Escrow{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: escrow for order %d already exists", domain.ErrAlreadyResolved, orderID)
	}

	buyerWallet, err := ledger.WalletForUser(tx, order.BuyerID)
	if err != nil {
		return nil, err
	}
	var vendor domain.VendorProfile
	if err := tx.First(&vendor, order.VendorProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("vendor")
		}
		return nil, err
	}
	vendorWallet, err := ledger.WalletForUser(tx, vendor.UserID)
	if err != nil {
		return nil, fmt.Errorf("vendor %w", err)
	}

	if err := c.ledger.Lock(tx, buyerWallet.ID, amount, orderID); err != nil {
		return nil, err
	}
	e := domain.Escrow{
		OrderID:        orderID,
		BuyerWalletID:  buyerWallet.ID,
		VendorWalletID: vendorWallet.ID,
		Amount:         amount,
		Status:         domain.EscrowHeld,
	}
	if err := tx.Create(&e).Error; err != nil {
		return nil, err
	}
	c.metrics.EscrowOutcome(tx.Statement.Context, domain.EscrowHeld)
	return &e, nil
}

// Release pays the held amount to the vendor wallet.
func (c *Controller) Release(tx *gorm.DB, orderID uint) (*domain.Escrow, error) {
	e, err := c.settleable(tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.Settle(tx, e.BuyerWalletID, e.Amount, orderID); err != nil {
		return nil, err
	}
	if _, err := c.ledger.Append(tx, ledger.Entry{
		WalletID: e.VendorWalletID,
		Amount:   e.Amount,
		Reason:   domain.ReasonEscrowRelease,
		OrderID:  &orderID,
	}); err != nil {
		return nil, err
	}
	if err := c.finish(tx, e, domain.EscrowReleased); err != nil {
		return nil, err
	}
	return e, nil
}

// Refund returns the held amount to the buyer's spendable balance. reason
// distinguishes cancellations from dispute refunds in the ledger.
func (c *Controller) Refund(tx *gorm.DB, orderID uint, reason domain.LedgerReason) (*domain.Escrow, error) {
	e, err := c.settleable(tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.Unlock(tx, e.BuyerWalletID, e.Amount, orderID, reason); err != nil {
		return nil, err
	}
	if err := c.finish(tx, e, domain.EscrowRefunded); err != nil {
		return nil, err
	}
	return e, nil
}

// Freeze blocks release and refund until Unfreeze.
func (c *Controller) Freeze(tx *gorm.DB, orderID uint) error {
	return c.setFrozen(tx, orderID, true)
}

// Unfreeze lifts a freeze so the escrow can be settled.
func (c *Controller) Unfreeze(tx *gorm.DB, orderID uint) error {
	return c.setFrozen(tx, orderID, false)
}

func (c *Controller) setFrozen(tx *gorm.DB, orderID uint, frozen bool) error {
	e, err := Lock(tx, orderID)
	if err != nil {
		return err
	}
	if e.Status != domain.EscrowHeld {
		return fmt.Errorf("%w: escrow for order %d is %s", domain.ErrAlreadyResolved, orderID, e.Status)
	}
	return tx.Model(&domain.Escrow{}).Where("id = ?", e.ID).Update("frozen", frozen).Error
}

func (c *Controller) settleable(tx *gorm.DB, orderID uint) (*domain.Escrow, error) {
	e, err := Lock(tx, orderID)
	if err != nil {
		return nil, err
	}
	if e.Status != domain.EscrowHeld {
		return nil, fmt.Errorf("%w: escrow for order %d is %s", domain.ErrAlreadyResolved, orderID, e.Status)
	}
	if e.Frozen {
		return nil, domain.ErrEscrowFrozen
	}
	return e, nil
}

func (c *Controller) finish(tx *gorm.DB, e *domain.Escrow, status domain.EscrowStatus) error {
	now := c.now()
	cols := map[string]any{"status": status}
	if status == domain.EscrowReleased {
		cols["released_at"] = now
		e.ReleasedAt = &now
	} else {
		cols["refunded_at"] = now
		e.RefundedAt = &now
	}
	res := tx.Model(&domain.Escrow{}).Where("id = ? AND status = ?", e.ID, domain.EscrowHeld).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: escrow for order %d settled concurrently", domain.ErrAlreadyResolved, e.OrderID)
	}
	e.Status = status
	c.metrics.EscrowOutcome(tx.Statement.Context, status)
	logrus.WithFields(logrus.Fields{
		"order_id":  e.OrderID,
		"escrow_id": e.ID,
		"amount":    e.Amount,
		"status":    status,
	}).Info("Escrow settled")
	return nil
}

// Lock reads an order's escrow with a row lock.
func Lock(tx *gorm.DB, orderID uint) (*domain.Escrow, error) {
	var e domain.Escrow
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_id = ?", orderID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("escrow")
		}
		return nil, err
	}
	return &e, nil
}
