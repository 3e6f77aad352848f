package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app" // Service wiring

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetWishlistHandler returns the wishlist with its listings
func GetWishlistHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		items, err := a.Wishlists.List(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"wishlists": items})
	}
}

// AddToWishlistHandler wishlists a listing
func AddToWishlistHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, listingID, ok := wishlistTarget(c)
		if !ok {
			return
		}
		item, err := a.Wishlists.Add(c.Request.Context(), userID, listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"item": item})
	}
}

// RemoveFromWishlistHandler drops a listing from the wishlist
func RemoveFromWishlistHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, listingID, ok := wishlistTarget(c)
		if !ok {
			return
		}
		if err := a.Wishlists.Remove(c.Request.Context(), userID, listingID); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Removed from wishlist"})
	}
}

// ToggleWishlistHandler adds or removes a listing
func ToggleWishlistHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, listingID, ok := wishlistTarget(c)
		if !ok {
			return
		}
		added, err := a.Wishlists.Toggle(c.Request.Context(), userID, listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"in_wishlist": added})
	}
}

// MoveToCartHandler moves a wishlisted listing into the cart
func MoveToCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, listingID, ok := wishlistTarget(c)
		if !ok {
			return
		}
		req := CartQuantityRequest{Quantity: 1} // Empty body moves one unit
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid request")
				return
			}
		}
		item, err := a.Wishlists.MoveToCart(c.Request.Context(), userID, listingID, req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"item": item})
	}
}

// WishlistCountHandler returns the number of wishlisted listings
func WishlistCountHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		n, err := a.Wishlists.Count(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"count": n})
	}
}

// wishlistTarget reads the caller and the :listingId path parameter
func wishlistTarget(c *gin.Context) (uint, uint, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	listingID, ok := pathID(c, "listingId")
	return userID, listingID, ok
}
