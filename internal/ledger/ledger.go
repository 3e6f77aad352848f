package ledger

import (
	"errors"
	"fmt"

	"bebamart/internal/domain"
	"bebamart/internal/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the only writer of wallet balances. Every method takes the
// caller's transaction so balance changes commit with the business change
// that caused them.
type Ledger interface {
	// Append applies a signed amount to a wallet balance and records it.
	Append(tx *gorm.DB, e Entry) (*domain.LedgerEntry, error)
	// Lock moves amount from balance into locked_balance.
	Lock(tx *gorm.DB, walletID uint, amount int64, orderID uint) error
	// Unlock moves amount from locked_balance back into balance.
	Unlock(tx *gorm.DB, walletID uint, amount int64, orderID uint, reason domain.LedgerReason) error
	// Settle drops amount from locked_balance once it has been paid out.
	Settle(tx *gorm.DB, walletID uint, amount int64, orderID uint) error
}

// Entry describes a balance change to append.
type Entry struct {
	WalletID  uint
	Amount    int64
	Reason    domain.LedgerReason
	OrderID   *uint
	Reference string // Optional; repeating a reference returns the first entry
}

// GormLedger implements Ledger on top of GORM.
type GormLedger struct {
	metrics *metrics.Metrics
}

// New creates a GORM-backed ledger.
func New(m *metrics.Metrics) *GormLedger {
	return &GormLedger{metrics: m}
}

var _ Ledger = (*GormLedger)(nil)

func (l *GormLedger) Append(tx *gorm.DB, e Entry) (*domain.LedgerEntry, error) {
	if e.Amount == 0 {
		return nil, domain.Validationf("ledger amount must be non-zero")
	}
	if e.Reason == "" {
		return nil, domain.Validationf("ledger reason is required")
	}
	if e.Reference != "" {
		existing, err := byReference(tx, e.Reference, false)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return sameEntry(existing, e)
		}
	}

	wallet, err := LockWallet(tx, e.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance+e.Amount < 0 {
		return nil, fmt.Errorf("%w: wallet %d holds %d, cannot apply %d", domain.ErrInsufficientFunds, wallet.ID, wallet.Balance, e.Amount)
	}

	entry := domain.LedgerEntry{
		WalletID:     wallet.ID,
		Amount:       e.Amount,
		Reason:       e.Reason,
		OrderID:      e.OrderID,
		BalanceAfter: wallet.Balance + e.Amount,
	}
	if e.Reference != "" {
		ref := e.Reference
		entry.Reference = &ref
	}
	// The entry goes in before the balance moves: a reference committed by a
	// concurrent request then fails here and nothing is credited twice.
	existing, err := insertEntry(tx, &entry)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return sameEntry(existing, e)
	}

	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND balance + ? >= 0", wallet.ID, e.Amount).
		Update("balance", gorm.Expr("balance + ?", e.Amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: wallet %d holds %d, cannot apply %d", domain.ErrInsufficientFunds, wallet.ID, wallet.Balance, e.Amount)
	}
	l.metrics.LedgerAppend(tx.Statement.Context, e.Reason)
	return &entry, nil
}

// insertEntry writes entry. When its reference already exists it returns the
// stored entry instead; the database must run with TranslateError.
func insertEntry(tx *gorm.DB, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	err := tx.Create(entry).Error
	if err == nil {
		return nil, nil
	}
	if entry.Reference == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	existing, lookupErr := byReference(tx, *entry.Reference, true)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

// byReference finds the entry recorded under reference, or nil. A locking
// read sees entries committed after the transaction started.
func byReference(tx *gorm.DB, reference string, locking bool) (*domain.LedgerEntry, error) {
	q := tx
	if locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var existing domain.LedgerEntry
	err := q.Where("reference = ?", reference).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func sameEntry(existing *domain.LedgerEntry, e Entry) (*domain.LedgerEntry, error) {
	if existing.WalletID != e.WalletID || existing.Amount != e.Amount {
		return nil, domain.Validationf("reference %q already used for a different entry", e.Reference)
	}
	return existing, nil
}

func (l *GormLedger) Lock(tx *gorm.DB, walletID uint, amount int64, orderID uint) error {
	if amount <= 0 {
		return domain.Validationf("lock amount must be positive")
	}
	if _, err := l.Append(tx, Entry{WalletID: walletID, Amount: -amount, Reason: domain.ReasonOrderLock, OrderID: &orderID}); err != nil {
		return err
	}
	return tx.Model(&domain.Wallet{}).Where("id = ?", walletID).
		Update("locked_balance", gorm.Expr("locked_balance + ?", amount)).Error
}

func (l *GormLedger) Unlock(tx *gorm.DB, walletID uint, amount int64, orderID uint, reason domain.LedgerReason) error {
	if err := l.dropLocked(tx, walletID, amount); err != nil {
		return err
	}
	_, err := l.Append(tx, Entry{WalletID: walletID, Amount: amount, Reason: reason, OrderID: &orderID})
	return err
}

func (l *GormLedger) Settle(tx *gorm.DB, walletID uint, amount int64, _ uint) error {
	return l.dropLocked(tx, walletID, amount)
}

func (l *GormLedger) dropLocked(tx *gorm.DB, walletID uint, amount int64) error {
	if amount <= 0 {
		return domain.Validationf("unlock amount must be positive")
	}
	if _, err := LockWallet(tx, walletID); err != nil {
		return err
	}
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND locked_balance >= ?", walletID, amount).
		Update("locked_balance", gorm.Expr("locked_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: wallet %d has less than %d locked", domain.ErrInsufficientFunds, walletID, amount)
	}
	return nil
}

// LockWallet reads a wallet with a row lock held until tx ends.
func LockWallet(tx *gorm.DB, walletID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("wallet")
		}
		return nil, err
	}
	return &w, nil
}

// WalletForUser returns the wallet owned by userID.
func WalletForUser(db *gorm.DB, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("wallet")
		}
		return nil, err
	}
	return &w, nil
}
