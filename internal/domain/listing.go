package domain

import "time"

// Listing conditions
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// MaxPrice caps a listing's unit price, in minor units.
const MaxPrice int64 = 1_000_000_000_000

// ValidCondition reports whether c is a known listing condition.
func ValidCondition(c string) bool {
	return c == ConditionNew || c == ConditionUsed || c == ConditionRefurbished
}

// Listing Model
type Listing struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	VendorProfileID uint           `gorm:"index;not null" json:"vendor_profile_id"`
	VendorProfile   *VendorProfile `json:"vendor,omitempty"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Price           int64          `gorm:"not null" json:"price"` // Unit price in minor units
	Stock           int            `gorm:"not null" json:"stock"` // Units available for sale
	Condition       string         `gorm:"size:16;default:new" json:"condition"`
	IsActive        bool           `gorm:"index" json:"is_active"` // Only active listings are sold
	ViewCount       int64          `gorm:"not null;default:0" json:"view_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CartItem Model. A buyer's cart is the set of their items; it is deleted once
// the cart has been turned into orders.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_cart_user_listing;not null" json:"user_id"`
	ListingID uint      `gorm:"uniqueIndex:idx_cart_user_listing;not null" json:"listing_id"`
	Listing   *Listing  `json:"listing,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
