package wallet

import (
	"context"
	"fmt"
	"strings"

	"bebamart/internal/domain"
	"bebamart/internal/ledger"
	"bebamart/internal/metrics"
	"bebamart/internal/payment"
	"bebamart/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service exposes a user's wallet. All balance changes go through the ledger.
type Service struct {
	db       *gorm.DB
	ledger   ledger.Ledger
	gateway  payment.Gateway
	cache    *utils.Cache
	currency string
}

// NewService creates a wallet service. cache may be nil.
func NewService(db *gorm.DB, l ledger.Ledger, gw payment.Gateway, cache *utils.Cache, currency string) *Service {
	if currency == "" {
		currency = "UGX"
	}
	return &Service{db: db, ledger: l, gateway: gw, cache: cache, currency: currency}
}

// Ensure returns the user's wallet, creating an empty one when missing.
func (s *Service) Ensure(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return Ensure(s.db.WithContext(ctx), userID, s.currency)
}

// Ensure is the transactional form used at registration.
func Ensure(tx *gorm.DB, userID uint, currency string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Where(domain.Wallet{UserID: userID}).
		Attrs(domain.Wallet{Currency: currency}).
		FirstOrCreate(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func walletKey(userID uint) string {
	return fmt.Sprintf("wallet:user:%d", userID)
}

func historyPrefix(userID uint) string {
	return fmt.Sprintf("txhistory:user:%d:", userID)
}

// Get returns the user's wallet, served from cache when possible. The
// second result reports a cache hit.
func (s *Service) Get(ctx context.Context, userID uint) (*domain.Wallet, bool, error) {
	var w domain.Wallet
	if found, err := s.cache.Get(ctx, walletKey(userID), &w); err == nil && found {
		return &w, true, nil
	}
	fresh, err := ledger.WalletForUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, walletKey(userID), fresh)
	return fresh, false, nil
}

// History is one page of ledger entries.
type History struct {
	Entries    []domain.LedgerEntry `json:"transactions"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// Transactions pages through the user's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, userID uint, page utils.Page) (*History, bool, error) {
	key := fmt.Sprintf("%spage:%d:size:%d", historyPrefix(userID), page.Page, page.Size)
	var h History
	if found, err := s.cache.Get(ctx, key, &h); err == nil && found {
		return &h, true, nil
	}
	db := s.db.WithContext(ctx)
	w, err := ledger.WalletForUser(db, userID)
	if err != nil {
		return nil, false, err
	}
	entries, total, err := ledger.Entries(db, w.ID, page)
	if err != nil {
		return nil, false, err
	}
	h = History{
		Entries:    entries,
		Page:       page.Page,
		PageSize:   page.Size,
		Total:      total,
		TotalPages: page.TotalPages(total),
	}
	_ = s.cache.Set(ctx, key, h)
	return &h, false, nil
}

// Receipt is the result of a deposit or withdrawal.
type Receipt struct {
	Wallet   *domain.Wallet      `json:"wallet"`
	Entry    *domain.LedgerEntry `json:"entry"`
	PayoutID string              `json:"payout_id,omitempty"`
}

// Deposit credits amount once the gateway confirms reference. Repeating a
// deposit with the same reference credits nothing more.
func (s *Service) Deposit(ctx context.Context, userID uint, amount int64, reference string) (*Receipt, error) {
	reference = strings.TrimSpace(reference)
	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	if err := s.gateway.VerifyDeposit(ctx, reference, amount); err != nil {
		return nil, err
	}
	var r Receipt
	err := metrics.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		w, err := ledger.WalletForUser(tx, userID)
		if err != nil {
			return err
		}
		r.Entry, err = s.ledger.Append(tx, ledger.Entry{
			WalletID:  w.ID,
			Amount:    amount,
			Reason:    domain.ReasonDeposit,
			Reference: "deposit:" + reference,
		})
		if err != nil {
			return err
		}
		r.Wallet, err = ledger.LockWallet(tx, w.ID)
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"amount":    amount,
			"reference": reference,
			"error":     err.Error(),
		}).Error("Deposit failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"amount":    amount,
		"reference": reference,
		"entry_id":  r.Entry.ID,
	}).Info("Deposit transaction")
	s.invalidate(ctx, userID)
	return &r, nil
}

// Withdraw debits amount and hands it to the gateway for payout. A payout
// failure rolls the debit back.
func (s *Service) Withdraw(ctx context.Context, userID uint, amount int64, destination string) (*Receipt, error) {
	destination = strings.TrimSpace(destination)
	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	if destination == "" {
		return nil, domain.Validationf("destination is required")
	}
	payoutRef := uuid.NewString()
	var r Receipt
	err := metrics.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		w, err := ledger.WalletForUser(tx, userID)
		if err != nil {
			return err
		}
		r.Entry, err = s.ledger.Append(tx, ledger.Entry{
			WalletID:  w.ID,
			Amount:    -amount,
			Reason:    domain.ReasonWithdrawal,
			Reference: "payout:" + payoutRef,
		})
		if err != nil {
			return err
		}
		r.PayoutID, err = s.gateway.Payout(ctx, payment.PayoutRequest{
			WalletID:    w.ID,
			Amount:      amount,
			Destination: destination,
			Reference:   payoutRef,
		})
		if err != nil {
			return err
		}
		r.Wallet, err = ledger.LockWallet(tx, w.ID)
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  amount,
			"error":   err.Error(),
		}).Error("Withdrawal failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"amount":    amount,
		"payout_id": r.PayoutID,
	}).Info("Withdrawal transaction")
	s.invalidate(ctx, userID)
	return &r, nil
}

// Invalidate drops cached views of the user's wallet. Other services call it
// after they move funds.
func (s *Service) Invalidate(ctx context.Context, userIDs ...uint) {
	for _, id := range userIDs {
		s.invalidate(ctx, id)
	}
}

func (s *Service) invalidate(ctx context.Context, userID uint) {
	_ = s.cache.Delete(ctx, walletKey(userID))
	_ = s.cache.DeletePrefix(ctx, historyPrefix(userID))
}
