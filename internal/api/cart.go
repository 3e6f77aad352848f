package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app" // Service wiring

	"github.com/gin-gonic/gin" // Gin web framework
)

// CartQuantityRequest carries a quantity for add and update
type CartQuantityRequest struct {
	Quantity int `json:"quantity"` // Units; add defaults to 1
}

// GetCartHandler returns the raw cart items with their listings
func GetCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		items, err := a.Carts.Items(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"items": items})
	}
}

// AddToCartHandler adds units of a listing to the cart
func AddToCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "listingId")
		if !ok {
			return
		}
		req := CartQuantityRequest{Quantity: 1} // Empty body adds one unit
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid request")
				return
			}
		}
		item, err := a.Carts.Add(c.Request.Context(), userID, listingID, req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"item": item})
	}
}

// UpdateCartHandler sets the quantity of a listing already in the cart
func UpdateCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "listingId")
		if !ok {
			return
		}
		var req CartQuantityRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		item, err := a.Carts.SetQuantity(c.Request.Context(), userID, listingID, req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"item": item})
	}
}

// RemoveFromCartHandler drops a listing from the cart
func RemoveFromCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "listingId")
		if !ok {
			return
		}
		if err := a.Carts.Remove(c.Request.Context(), userID, listingID); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Item removed"})
	}
}

// ClearCartHandler empties the cart
func ClearCartHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		if err := a.Carts.Clear(c.Request.Context(), userID); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// CartSummaryHandler prices the cart per vendor
func CartSummaryHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		sum, err := a.Carts.Summary(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"summary": sum})
	}
}
