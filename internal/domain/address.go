package domain

import (
	"strings"
	"time"
)

// ShippingAddress Model. A buyer has at most one default address, which
// order placement falls back to when no address is given.
type ShippingAddress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Label         string    `gorm:"size:50" json:"label"` // Home, Office, ...
	RecipientName string    `gorm:"size:255;not null" json:"recipient_name"`
	Phone         string    `gorm:"size:20;not null" json:"phone"`
	AddressLine   string    `gorm:"size:255;not null" json:"address_line"`
	City          string    `gorm:"size:100;not null" json:"city"`
	Region        string    `gorm:"size:100" json:"region"`
	Country       string    `gorm:"size:100;not null" json:"country"`
	IsDefault     bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Format renders the address as the single line snapshotted onto an order.
func (a ShippingAddress) Format() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.RecipientName, a.AddressLine, a.City, a.Region, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	line := strings.Join(parts, ", ")
	if a.Phone != "" {
		line += " (" + a.Phone + ")"
	}
	return line
}

// WishlistItem Model. A listing appears at most once in a user's wishlist.
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_wishlist_user_listing;not null" json:"user_id"`
	ListingID uint      `gorm:"uniqueIndex:idx_wishlist_user_listing;not null" json:"listing_id"`
	Listing   *Listing  `json:"listing,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
