package ledger

import (
	"errors"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/utils"

	"gorm.io/gorm"
)

// Entries returns one page of a wallet's entries, newest first.
func Entries(db *gorm.DB, walletID uint, page utils.Page) ([]domain.LedgerEntry, int64, error) {
	var total int64
	if err := db.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []domain.LedgerEntry
	err := db.Where("wallet_id = ?", walletID).
		Order("created_at desc, id desc").
		Offset(page.Offset()).Limit(page.Size).
		Find(&entries).Error
	return entries, total, err
}

// Filter narrows the admin ledger listing.
type Filter struct {
	WalletID uint
	Reason   domain.LedgerReason
	From     *time.Time
	To       *time.Time
}

// Search lists entries across wallets, newest first.
func Search(db *gorm.DB, f Filter, page utils.Page) ([]domain.LedgerEntry, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if f.WalletID != 0 {
			q = q.Where("wallet_id = ?", f.WalletID)
		}
		if f.Reason != "" {
			q = q.Where("reason = ?", f.Reason)
		}
		if f.From != nil {
			q = q.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where("created_at <= ?", *f.To)
		}
		return q
	}
	var total int64
	if err := db.Model(&domain.LedgerEntry{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []domain.LedgerEntry
	err := db.Scopes(scope).Order("created_at desc, id desc").
		Offset(page.Offset()).Limit(page.Size).Find(&entries).Error
	return entries, total, err
}

// Reconciliation compares a wallet balance with the sum of its entries.
type Reconciliation struct {
	WalletID   uint  `json:"wallet_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Drift      int64 `json:"drift"`
	EntryCount int64 `json:"entry_count"`
}

// Balanced reports whether the balance matches the ledger.
func (r Reconciliation) Balanced() bool {
	return r.Drift == 0
}

// Reconcile recomputes a wallet's balance from its entries.
func Reconcile(db *gorm.DB, walletID uint) (*Reconciliation, error) {
	var w domain.Wallet
	if err := db.First(&w, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("wallet")
		}
		return nil, err
	}
	var agg struct {
		Sum   int64
		Count int64
	}
	if err := db.Model(&domain.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS sum, COUNT(*) AS count").
		Where("wallet_id = ?", walletID).
		Scan(&agg).Error; err != nil {
		return nil, err
	}
	return &Reconciliation{
		WalletID:   walletID,
		Balance:    w.Balance,
		LedgerSum:  agg.Sum,
		Drift:      w.Balance - agg.Sum,
		EntryCount: agg.Count,
	}, nil
}
