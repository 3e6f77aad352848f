package domain

import "time"

// User roles
const (
	RoleBuyer               = "buyer"
	RoleVendorLocal         = "vendor_local"
	RoleVendorInternational = "vendor_international"
	RoleAdmin               = "admin"
)

// Vendor types
const (
	VendorTypeLocalRetail   = "local_retail"
	VendorTypeChinaSupplier = "china_supplier"
)

// Vendor vetting statuses
const (
	VettingPending  = "pending"
	VettingApproved = "approved"
	VettingRejected = "rejected"
)

// User Model
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`                               // Primary key
	Name          string         `gorm:"size:255;not null" json:"name"`                      // Display name
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`         // Lowercased login email
	Phone         string         `gorm:"size:20;uniqueIndex;not null" json:"phone"`          // Unique phone number
	Password      string         `gorm:"not null" json:"-"`                                  // Hashed password
	Role          string         `gorm:"size:32;default:buyer" json:"role"`                  // buyer, vendor_local, vendor_international or admin
	VendorProfile *VendorProfile `gorm:"constraint:OnDelete:CASCADE;" json:"vendor_profile"` // Set for vendor accounts
	Wallet        *Wallet        `gorm:"constraint:OnDelete:CASCADE;" json:"wallet,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsVendorRole reports whether role registers a vendor profile.
func IsVendorRole(role string) bool {
	return role == RoleVendorLocal || role == RoleVendorInternational
}

// VendorTypeForRole maps a vendor registration role to its vendor type.
func VendorTypeForRole(role string) string {
	if role == RoleVendorInternational {
		return VendorTypeChinaSupplier
	}
	return VendorTypeLocalRetail
}

// VendorProfile Model
type VendorProfile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`             // Owning user
	VendorType    string    `gorm:"size:32;not null" json:"vendor_type"`             // local_retail or china_supplier
	BusinessName  string    `gorm:"size:255;not null" json:"business_name"`          // Storefront name
	Country       string    `gorm:"size:64" json:"country"`                          // Defaults to Uganda
	City          string    `gorm:"size:64" json:"city"`                             // Defaults to Kampala
	VettingStatus string    `gorm:"size:16;default:pending" json:"vetting_status"` // pending, approved or rejected
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
