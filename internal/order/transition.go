package order

import (
	"errors"
	"fmt"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transition moves an order locked by tx to status next. The update is
// guarded on the status the caller read, so when two requests race for the
// same order the later one fails with ErrInvalidTransition.
func Transition(tx *gorm.DB, o *domain.Order, next domain.OrderStatus, at time.Time, m *metrics.Metrics) error {
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: order %d cannot move from %s to %s", domain.ErrInvalidTransition, o.ID, o.Status, next)
	}
	res := tx.Model(&domain.Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(domain.TransitionColumns(next, at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d changed concurrently", domain.ErrInvalidTransition, o.ID)
	}
	from := o.Status
	o.Stamp(next, at)
	m.OrderTransition(tx.Statement.Context, from, next)
	return nil
}

// Scope restricts which orders a caller may see.
type Scope struct {
	BuyerID         uint
	VendorProfileID uint
}

func (s Scope) apply(q *gorm.DB) *gorm.DB {
	if s.BuyerID != 0 {
		q = q.Where("buyer_id = ?", s.BuyerID)
	}
	if s.VendorProfileID != 0 {
		q = q.Where("vendor_profile_id = ?", s.VendorProfileID)
	}
	return q
}

// Lock reads an order visible to scope with a row lock held until tx ends.
// Orders outside the scope are reported as not found.
func Lock(tx *gorm.DB, orderID uint, scope Scope) (*domain.Order, error) {
	var o domain.Order
	q := scope.apply(tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID))
	if err := q.First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("order")
		}
		return nil, err
	}
	return &o, nil
}
