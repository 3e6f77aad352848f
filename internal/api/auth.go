package api

import (
	"errors"   // Error comparison
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation

	"bebamart/internal/app"    // Service wiring
	"bebamart/internal/domain" // Importing domain models
	"bebamart/internal/utils"  // Utility functions
	"bebamart/internal/wallet" // Wallet provisioning

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the payload of POST /auth/register
type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`        // Display name
	Email        string `json:"email" binding:"required,email"` // Login email, shape checked by the validator
	Phone        string `json:"phone" binding:"required"`       // Unique phone number
	Password     string `json:"password" binding:"required"`    // Plain password
	Role         string `json:"role"`                           // buyer (default), vendor_local or vendor_international
	BusinessName string `json:"business_name"`                  // Storefront name for vendors
	Country      string `json:"country"`                        // Vendor country
	City         string `json:"city"`                           // Vendor city
}

// LoginRequest is the payload of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	Password string `json:"password" binding:"required"` // Plain password
}

// phonePattern accepts local numbers too; the validator's e164 insists on a leading +
var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// isValidPassword checks the password length; bcrypt ignores bytes past 72
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 72
}

// validate normalises the request and checks every field
func (req *RegisterRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Role == "" {
		req.Role = domain.RoleBuyer // Default role
	}
	switch {
	case req.Name == "":
		return domain.Validationf("name is required")
	case !phonePattern.MatchString(req.Phone):
		return domain.Validationf("phone is invalid")
	case !isValidPassword(req.Password):
		return domain.Validationf("password must be 8-72 characters")
	case req.Role != domain.RoleBuyer && !domain.IsVendorRole(req.Role):
		// Admins are created out of band
		return domain.Validationf("role must be buyer, vendor_local or vendor_international")
	}
	return nil
}

// vendorProfile builds the profile registered with a vendor account
func (req *RegisterRequest) vendorProfile(userID uint) *domain.VendorProfile {
	profile := &domain.VendorProfile{
		UserID:        userID,
		VendorType:    domain.VendorTypeForRole(req.Role),
		BusinessName:  strings.TrimSpace(req.BusinessName),
		Country:       strings.TrimSpace(req.Country),
		City:          strings.TrimSpace(req.City),
		VettingStatus: domain.VettingPending,
	}
	if profile.BusinessName == "" {
		profile.BusinessName = req.Name // Fall back to the display name
	}
	if profile.Country == "" {
		profile.Country = "Uganda"
		if req.Role == domain.RoleVendorInternational {
			profile.Country = "China"
		}
	}
	if profile.City == "" && req.Role == domain.RoleVendorLocal {
		profile.City = "Kampala"
	}
	return profile
}

// RegisterHandler creates a user with a wallet, plus a vendor profile for vendor roles
func RegisterHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			badRequest(c, "Invalid request")
			return
		}
		if err := req.validate(); err != nil {
			respondError(c, err)
			return
		}
		// Hash the password before anything touches the database
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err)
			return
		}
		user := domain.User{
			Name:     req.Name,     // Display name
			Email:    req.Email,    // Lowercased email
			Phone:    req.Phone,    // Phone number
			Password: string(hash), // Hashed password
			Role:     req.Role,     // Requested role
		}
		// User, vendor profile and wallet are created together or not at all
		err = a.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var taken int64 // Existing accounts with the same email or phone
			if err := tx.Model(&domain.User{}).
				Where("email = ? OR phone = ?", user.Email, user.Phone).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return domain.Validationf("email or phone already registered")
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if domain.IsVendorRole(user.Role) {
				user.VendorProfile = req.vendorProfile(user.ID)
				if err := tx.Create(user.VendorProfile).Error; err != nil {
					return err
				}
			}
			w, err := wallet.Ensure(tx, user.ID, a.Config.Currency)
			user.Wallet = w
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Log the new account
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,   // New user ID
			"role":    user.Role, // Registered role
		}).Info("User registered")
		token, err := utils.GenerateJWT(user.ID, user.Role, a.Config.JWTSecret, a.Config.JWTTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"user": user, "token": token})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		var user domain.User // Fetch user from database
		err := a.DB.WithContext(c.Request.Context()).
			Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown email and wrong password look the same
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		// Generate JWT token carrying the role
		token, err := utils.GenerateJWT(user.ID, user.Role, a.Config.JWTSecret, a.Config.JWTTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithField("user_id", user.ID).Info("User logged in")
		respond(c, http.StatusOK, gin.H{"token": token, "role": user.Role})
	}
}

// CurrentUserHandler returns the authenticated user with wallet and vendor profile
func CurrentUserHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var user domain.User // Fetch user with relations
		err := a.DB.WithContext(c.Request.Context()).
			Preload("Wallet").Preload("VendorProfile").
			First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.NotFound("user"))
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"user": user})
	}
}
