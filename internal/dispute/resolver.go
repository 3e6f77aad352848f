package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/escrow"
	"bebamart/internal/metrics"
	"bebamart/internal/order"
	"bebamart/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the user acting on a dispute.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// Resolver opens disputes against orders and settles their escrow.
type Resolver struct {
	db      *gorm.DB
	escrow  *escrow.Controller
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetrics records the order transitions made by the resolver.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a dispute resolver.
func NewResolver(db *gorm.DB, esc *escrow.Controller, opts ...Option) *Resolver {
	r := &Resolver{db: db, escrow: esc, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenInput describes a new dispute.
type OpenInput struct {
	Reason        string
	Note          string
	AttachmentURL string
}

// Open disputes a paid, processing or shipped order of the buyer. The order
// moves to disputed and its escrow is frozen until the dispute is resolved.
func (r *Resolver) Open(ctx context.Context, buyerID, orderID uint, in OpenInput) (*domain.Dispute, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.Validationf("reason is required")
	}
	var d domain.Dispute
	err := metrics.Transaction(ctx, r.db, func(tx *gorm.DB) error {
		o, err := order.Lock(tx, orderID, order.Scope{BuyerID: buyerID})
		if err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&domain.Dispute{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: order %d already has a dispute", domain.ErrInvalidTransition, orderID)
		}
		now := r.now()
		if err := order.Transition(tx, o, domain.OrderDisputed, now, r.metrics); err != nil {
			return err
		}
		if err := r.escrow.Freeze(tx, orderID); err != nil {
			return err
		}
		d = domain.Dispute{
			OrderID: orderID,
			BuyerID: buyerID,
			Reason:  reason,
			Status:  domain.DisputeOpen,
		}
		if err := tx.Create(&d).Error; err != nil {
			return err
		}
		if in.Note != "" || in.AttachmentURL != "" {
			ev := domain.DisputeEvidence{
				DisputeID:     d.ID,
				SubmittedBy:   buyerID,
				Note:          in.Note,
				AttachmentURL: in.AttachmentURL,
			}
			if err := tx.Create(&ev).Error; err != nil {
				return err
			}
			d.Evidence = append(d.Evidence, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"order_id":   orderID,
		"buyer_id":   buyerID,
	}).Info("Dispute opened")
	return &d, nil
}

// AddEvidence attaches a note or link to an unresolved dispute. Only the
// disputing buyer and admins may add evidence.
func (r *Resolver) AddEvidence(ctx context.Context, actor Actor, disputeID uint, note, attachmentURL string) (*domain.DisputeEvidence, error) {
	if strings.TrimSpace(note) == "" && strings.TrimSpace(attachmentURL) == "" {
		return nil, domain.Validationf("note or attachment_url is required")
	}
	var ev domain.DisputeEvidence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := lock(tx, disputeID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin && d.BuyerID != actor.UserID {
			return fmt.Errorf("%w: only the buyer or an admin may add evidence", domain.ErrForbidden)
		}
		if d.Status == domain.DisputeResolved {
			return fmt.Errorf("%w: dispute %d is resolved", domain.ErrAlreadyResolved, d.ID)
		}
		ev = domain.DisputeEvidence{
			DisputeID:     d.ID,
			SubmittedBy:   actor.UserID,
			Note:          strings.TrimSpace(note),
			AttachmentURL: strings.TrimSpace(attachmentURL),
		}
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MarkUnderReview moves an open dispute to under_review.
func (r *Resolver) MarkUnderReview(ctx context.Context, disputeID uint) (*domain.Dispute, error) {
	var d *domain.Dispute
	err := metrics.Transaction(ctx, r.db, func(tx *gorm.DB) error {
		var err error
		d, err = lock(tx, disputeID)
		if err != nil {
			return err
		}
		switch d.Status {
		case domain.DisputeResolved:
			return fmt.Errorf("%w: dispute %d is resolved", domain.ErrAlreadyResolved, d.ID)
		case domain.DisputeUnderReview:
			return fmt.Errorf("%w: dispute %d is already under review", domain.ErrInvalidTransition, d.ID)
		}
		res := tx.Model(&domain.Dispute{}).
			Where("id = ? AND status = ?", d.ID, domain.DisputeOpen).
			Update("status", domain.DisputeUnderReview)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: dispute %d changed concurrently", domain.ErrInvalidTransition, d.ID)
		}
		d.Status = domain.DisputeUnderReview
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve settles a dispute. A refund returns the escrow to the buyer and
// marks the order refunded; a release pays the vendor and marks the order
// delivered. A dispute resolves at most once.
func (r *Resolver) Resolve(ctx context.Context, adminID, disputeID uint, outcome domain.DisputeOutcome) (*domain.Dispute, error) {
	if !outcome.Valid() {
		return nil, domain.Validationf("outcome must be refund or release")
	}
	var d *domain.Dispute
	err := metrics.Transaction(ctx, r.db, func(tx *gorm.DB) error {
		var err error
		d, err = lock(tx, disputeID)
		if err != nil {
			return err
		}
		if d.Status == domain.DisputeResolved {
			return fmt.Errorf("%w: dispute %d is resolved", domain.ErrAlreadyResolved, d.ID)
		}
		o, err := order.Lock(tx, d.OrderID, order.Scope{})
		if err != nil {
			return err
		}
		if err := r.escrow.Unfreeze(tx, d.OrderID); err != nil {
			return err
		}

		now := r.now()
		next := domain.OrderDelivered
		if outcome == domain.OutcomeRefund {
			next = domain.OrderRefunded
		}
		if err := order.Transition(tx, o, next, now, r.metrics); err != nil {
			return err
		}
		if outcome == domain.OutcomeRefund {
			_, err = r.escrow.Refund(tx, d.OrderID, domain.ReasonEscrowRefund)
		} else {
			_, err = r.escrow.Release(tx, d.OrderID)
		}
		if err != nil {
			return err
		}

		res := tx.Model(&domain.Dispute{}).
			Where("id = ? AND status <> ?", d.ID, domain.DisputeResolved).
			Updates(map[string]any{
				"status":      domain.DisputeResolved,
				"outcome":     outcome,
				"resolved_by": adminID,
				"resolved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: dispute %d resolved concurrently", domain.ErrAlreadyResolved, d.ID)
		}
		d.Status = domain.DisputeResolved
		d.Outcome = outcome
		d.ResolvedBy = &adminID
		d.ResolvedAt = &now
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"dispute_id": disputeID,
			"outcome":    outcome,
			"error":      err.Error(),
		}).Warn("Dispute resolution failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"order_id":   d.OrderID,
		"outcome":    outcome,
		"admin_id":   adminID,
	}).Info("Dispute resolved")
	return d, nil
}

// Get returns a dispute with its order and evidence. Buyers only see their own.
func (r *Resolver) Get(ctx context.Context, actor Actor, disputeID uint) (*domain.Dispute, error) {
	q := r.db.WithContext(ctx).Preload("Order").Preload("Evidence", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where("id = ?", disputeID)
	if !actor.IsAdmin {
		q = q.Where("buyer_id = ?", actor.UserID)
	}
	var d domain.Dispute
	if err := q.First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("dispute")
		}
		return nil, err
	}
	return &d, nil
}

// ListForBuyer returns the buyer's disputes, newest first.
func (r *Resolver) ListForBuyer(ctx context.Context, buyerID uint, page utils.Page) ([]domain.Dispute, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&domain.Dispute{}).Where("buyer_id = ?", buyerID), page)
}

// ListAll returns every dispute, optionally filtered by status.
func (r *Resolver) ListAll(ctx context.Context, status domain.DisputeStatus, page utils.Page) ([]domain.Dispute, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Dispute{})
	switch status {
	case "":
	case domain.DisputeOpen, domain.DisputeUnderReview, domain.DisputeResolved:
		q = q.Where("status = ?", status)
	default:
		return nil, 0, domain.Validationf("unknown dispute status %q", status)
	}
	return r.list(q, page)
}

func (r *Resolver) list(q *gorm.DB, page utils.Page) ([]domain.Dispute, int64, error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var disputes []domain.Dispute
	err := q.Preload("Order").Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).Find(&disputes).Error
	if err != nil {
		return nil, 0, err
	}
	return disputes, total, nil
}

func lock(tx *gorm.DB, disputeID uint) (*domain.Dispute, error) {
	var d domain.Dispute
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, disputeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("dispute")
		}
		return nil, err
	}
	return &d, nil
}
