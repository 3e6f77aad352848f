package middleware

import (
	"errors"   // Error comparison
	"net/http" // HTTP status codes

	"bebamart/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// VendorMiddleware loads the caller's vendor profile and rejects accounts
// without one or whose vetting was rejected
func VendorMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := UserID(c) // Get userID from context
		if !exists {
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		var profile domain.VendorProfile // Fetch profile from database
		err := db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abort(c, http.StatusForbidden, "forbidden", "Vendor account required")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "internal", "Failed to load vendor profile")
			return
		}
		// Rejected vendors keep their account but lose the storefront
		if profile.VettingStatus == domain.VettingRejected {
			abort(c, http.StatusForbidden, "forbidden", "Vendor account has been rejected")
			return
		}
		c.Set(ContextVendorProfile, &profile) // Store profile in context
		c.Next()
	}
}

// VendorProfile returns the profile loaded by VendorMiddleware
func VendorProfile(c *gin.Context) (*domain.VendorProfile, bool) {
	v, ok := c.Get(ContextVendorProfile)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.VendorProfile)
	return p, ok
}
