package domain

import "time"

// Wallet Model. Balance only changes through the ledger.
type Wallet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`                          // Primary key
	UserID        uint      `gorm:"uniqueIndex" json:"user_id"`                    // Foreign key to User
	Balance       int64     `gorm:"not null;default:0" json:"balance"`             // Spendable funds in minor units
	LockedBalance int64     `gorm:"not null;default:0" json:"locked_balance"`      // Funds earmarked for held escrows
	Currency      string    `gorm:"size:8;not null;default:UGX" json:"currency"`   // ISO currency code
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LedgerReason classifies a ledger entry.
type LedgerReason string

const (
	ReasonDeposit        LedgerReason = "deposit"
	ReasonWithdrawal     LedgerReason = "withdrawal"
	ReasonOrderLock      LedgerReason = "order_lock"
	ReasonOrderCancelled LedgerReason = "order_cancelled"
	ReasonEscrowRefund   LedgerReason = "escrow_refund"
	ReasonEscrowRelease  LedgerReason = "escrow_release"
)

// LedgerEntry Model. Entries are append-only; the sum of a wallet's entries
// equals its balance.
type LedgerEntry struct {
	ID           uint         `gorm:"primaryKey" json:"id"`                           // Primary key
	WalletID     uint         `gorm:"index;not null" json:"wallet_id"`                // Wallet the entry belongs to
	Amount       int64        `gorm:"not null" json:"amount"`                         // Signed amount: negative debits, positive credits
	Reason       LedgerReason `gorm:"size:32;not null" json:"reason"`                 // Why the balance moved
	OrderID      *uint        `gorm:"index" json:"order_id,omitempty"`                // Related order, if any
	Reference    *string      `gorm:"size:128;uniqueIndex" json:"reference,omitempty"` // External reference, unique when set
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`                  // Wallet balance once applied
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}
