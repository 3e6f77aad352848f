package domain

import "time"

// EscrowStatus is the settlement state of an escrow.
type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

// Escrow Model. One per order; Amount equals the order total while held.
type Escrow struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderID        uint         `gorm:"uniqueIndex;not null" json:"order_id"`
	BuyerWalletID  uint         `gorm:"index;not null" json:"buyer_wallet_id"`
	VendorWalletID uint         `gorm:"index;not null" json:"vendor_wallet_id"`
	Amount         int64        `gorm:"not null" json:"amount"`
	Status         EscrowStatus `gorm:"size:16;index;not null" json:"status"`
	Frozen         bool         `gorm:"not null" json:"frozen"` // Set while a dispute is open
	ReleasedAt     *time.Time   `json:"released_at,omitempty"`
	RefundedAt     *time.Time   `json:"refunded_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
