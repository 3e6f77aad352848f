package api

import (
	"fmt"      // Cache key formatting
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Date filters

	"bebamart/internal/app"    // Service wiring
	"bebamart/internal/domain" // Importing domain models
	"bebamart/internal/ledger" // Ledger queries
	"bebamart/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID            uint                  `json:"id"`                       // User ID
	Name          string                `json:"name"`                     // Display name
	Email         string                `json:"email"`                    // Login email
	Role          string                `json:"role"`                     // User role
	Wallet        *domain.Wallet        `json:"wallet"`                   // Associated wallet
	VendorProfile *domain.VendorProfile `json:"vendor_profile,omitempty"` // Set for vendors
}

// VettingRequest is the payload of POST /admin/vendors/:id/vetting
type VettingRequest struct {
	Status string `json:"status" binding:"required"` // pending, approved or rejected
}

// ListUsersHandler returns users with their wallet and vendor profile
func ListUsersHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()     // Request-scoped context for Redis and DB
		page := utils.PageFromQuery(c) // page and page_size
		role := c.Query("role")        // Optional role filter
		// Cache key built from the filter and pagination parameters
		cacheKey := fmt.Sprintf("admin:users:role=%s:page=%d:size=%d", role, page.Page, page.Size)
		var cached struct {
			Users []UserAdminResponse `json:"users"` // List of users
			Total int64               `json:"total"` // Total number of users
		}
		// If cached data found, return it
		if found, err := a.Cache.Get(ctx, cacheKey, &cached); err == nil && found {
			body := page.Envelope("users", cached.Users, cached.Total)
			body["cached"] = true // Indicate response is from cache
			respond(c, http.StatusOK, body)
			return
		}
		q := a.DB.WithContext(ctx).Model(&domain.User{}) // Start building the query
		if role != "" {
			q = q.Where("role = ?", role) // Filter by role
		}
		q = q.Session(&gorm.Session{}) // Reused for count and page
		var total int64 // Total user count
		if err := q.Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}
		var users []domain.User // Slice to hold users
		// Preload relations, apply offset and limit for pagination
		if err := q.Preload("Wallet").Preload("VendorProfile").
			Order("id").Offset(page.Offset()).Limit(page.Size).
			Find(&users).Error; err != nil {
			respondError(c, err)
			return
		}
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:            u.ID,            // User ID
				Name:          u.Name,          // Display name
				Email:         u.Email,         // Email
				Role:          u.Role,          // User role
				Wallet:        u.Wallet,        // Associated wallet
				VendorProfile: u.VendorProfile, // Vendor profile, if any
			}
		}
		cached.Users, cached.Total = resp, total
		_ = a.Cache.Set(ctx, cacheKey, cached) // Cache for the configured TTL
		body := page.Envelope("users", resp, total)
		body["cached"] = false // Indicate response is not from cache
		respond(c, http.StatusOK, body)
	}
}

// ListLedgerHandler returns ledger entries across wallets, filtered by wallet, reason or date
func ListLedgerHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.PageFromQuery(c) // page and page_size
		var f ledger.Filter            // Filters from the query string
		if v := c.Query("wallet_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				badRequest(c, "Invalid wallet_id")
				return
			}
			f.WalletID = uint(id) // Filter by wallet
		}
		f.Reason = domain.LedgerReason(c.Query("reason")) // Filter by reason
		var err error
		if f.From, err = queryTime(c.Query("from"), false); err != nil {
			badRequest(c, "Invalid from date")
			return
		}
		if f.To, err = queryTime(c.Query("to"), true); err != nil {
			badRequest(c, "Invalid to date")
			return
		}
		entries, total, err := ledger.Search(a.DB.WithContext(c.Request.Context()), f, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page.Envelope("entries", entries, total))
	}
}

// queryTime parses an RFC 3339 timestamp or a plain date. A plain upper
// bound covers the whole day.
func queryTime(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

// VetVendorHandler sets a vendor's vetting status; rejected vendors leave the marketplace
func VetVendorHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req VettingRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Status is required")
			return
		}
		switch req.Status {
		case domain.VettingPending, domain.VettingApproved, domain.VettingRejected:
		default:
			badRequest(c, "Status must be pending, approved or rejected")
			return
		}
		ctx := c.Request.Context()
		res := a.DB.WithContext(ctx).Model(&domain.VendorProfile{}).
			Where("id = ?", profileID).
			Update("vetting_status", req.Status)
		if res.Error != nil {
			respondError(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, domain.NotFound("vendor"))
			return
		}
		var profile domain.VendorProfile // Reload for the response
		if err := a.DB.WithContext(ctx).First(&profile, profileID).Error; err != nil {
			respondError(c, err)
			return
		}
		a.Catalog.Invalidate(ctx) // Visibility of the vendor's listings changed
		logrus.WithFields(logrus.Fields{
			"vendor_id": profileID,  // Vendor profile ID
			"status":    req.Status, // New vetting status
		}).Info("Vendor vetted")
		respond(c, http.StatusOK, gin.H{"vendor_profile": profile})
	}
}

// ReconcileWalletHandler compares a wallet's balance with the sum of its ledger entries
func ReconcileWalletHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletID, ok := pathID(c, "id")
		if !ok {
			return
		}
		r, err := ledger.Reconcile(a.DB.WithContext(c.Request.Context()), walletID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !r.Balanced() {
			// Drift means money moved outside the ledger
			logrus.WithField("wallet_id", walletID).Error("Wallet does not reconcile with its ledger")
		}
		respond(c, http.StatusOK, gin.H{"reconciliation": r, "balanced": r.Balanced()})
	}
}
