package domain

import "time"

// IdempotencyRecord stores the first response for a (user, key) pair so that
// retried POSTs replay it instead of executing twice.
type IdempotencyRecord struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex:idx_idempotency_user_key;not null"`
	Key       string    `gorm:"size:128;uniqueIndex:idx_idempotency_user_key;not null"`
	Method    string    `gorm:"size:8"`
	Path      string    `gorm:"size:255"`
	Status    int       `gorm:"not null"`
	Response  string    `gorm:"type:text"`
	CreatedAt time.Time
}

// Models lists every persisted model, in migration order.
func Models() []any {
	return []any{
		&User{},
		&VendorProfile{},
		&Wallet{},
		&LedgerEntry{},
		&Listing{},
		&CartItem{},
		&WishlistItem{},
		&ShippingAddress{},
		&Order{},
		&OrderItem{},
		&Escrow{},
		&Dispute{},
		&DisputeEvidence{},
		&IdempotencyRecord{},
	}
}
