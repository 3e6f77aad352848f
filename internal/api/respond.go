package api

import (
	"errors"   // Error comparison
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"bebamart/internal/app"        // Service wiring
	"bebamart/internal/domain"     // Importing domain models
	"bebamart/internal/middleware" // Auth context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// errorKinds maps domain error kinds to status codes and machine codes
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrAlreadyResolved, http.StatusConflict, "already_resolved"},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// respondError writes the error envelope for err
func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{"success": false, "error": err.Error(), "code": k.code})
			return
		}
	}
	// Anything else is a server fault; the detail stays in the log
	logrus.WithFields(logrus.Fields{
		"method": c.Request.Method, // HTTP method
		"path":   c.FullPath(),     // Route pattern
		"error":  err.Error(),      // Error message
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error", "code": "internal"})
}

// badRequest writes a validation envelope with a fixed message
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message, "code": "validation_error"})
}

// respond writes a success envelope merged with payload
func respond(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// currentUser returns the authenticated user id or writes 401
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, domain.ErrUnauthorized)
	}
	return userID, ok
}

// currentVendor returns the vendor profile id or writes 403
func currentVendor(c *gin.Context) (uint, bool) {
	profile, ok := middleware.VendorProfile(c)
	if !ok {
		respondError(c, domain.ErrForbidden)
		return 0, false
	}
	return profile.ID, true
}

// pathID parses a positive numeric path parameter or writes 400
func pathID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// invalidateParties drops cached wallets of both sides of an order after
// escrow money moved
func invalidateParties(c *gin.Context, a *app.App, orderID uint) {
	if !a.Cache.Enabled() {
		return
	}
	var row struct {
		BuyerID      uint // Buyer user id
		VendorUserID uint // Vendor user id
	}
	err := a.DB.WithContext(c.Request.Context()).Table("orders").
		Select("orders.buyer_id, vendor_profiles.user_id AS vendor_user_id").
		Joins("JOIN vendor_profiles ON vendor_profiles.id = orders.vendor_profile_id").
		Where("orders.id = ?", orderID).
		Scan(&row).Error
	if err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Warn("Failed to invalidate wallet cache")
		return
	}
	a.Wallets.Invalidate(c.Request.Context(), row.BuyerID, row.VendorUserID)
}
