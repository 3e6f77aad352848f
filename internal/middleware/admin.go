package middleware

import (
	"net/http" // HTTP status codes

	"bebamart/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ContextIsAdmin caches the database admin check for the rest of the request
const ContextIsAdmin = "isAdmin"

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if userID exists in context
		if _, exists := UserID(c); !exists {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		// Check if user role is admin; a stale token role is not trusted
		if !IsAdmin(c, db) {
			// If not admin, abort with forbidden status
			abort(c, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}

// IsAdmin reports whether the authenticated user currently holds the admin
// role in the database. The token's role claim is ignored, so a demoted admin
// loses access at once. The answer is kept for the rest of the request.
func IsAdmin(c *gin.Context, db *gorm.DB) bool {
	if v, ok := c.Get(ContextIsAdmin); ok {
		admin, _ := v.(bool)
		return admin
	}
	admin := false
	if userID, ok := UserID(c); ok {
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Select("id", "role").First(&user, userID).Error; err == nil {
			admin = user.Role == domain.RoleAdmin
		}
	}
	c.Set(ContextIsAdmin, admin) // Store the answer in context
	return admin
}
