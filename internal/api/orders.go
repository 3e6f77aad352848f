package api

import (
	"context"  // Request context
	"net/http" // HTTP status codes

	"bebamart/internal/app"        // Service wiring
	"bebamart/internal/domain"     // Importing domain models
	"bebamart/internal/middleware" // Auth context helpers
	"bebamart/internal/order"      // Order lifecycle
	"bebamart/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// PlaceOrderRequest is the payload of POST /orders/place
type PlaceOrderRequest struct {
	AddressID       uint   `json:"address_id"`       // Saved address; wins over shipping_address
	ShippingAddress string `json:"shipping_address"` // Typed address; the default address applies when both are empty
}

// VendorStatusRequest is the payload of POST /vendor/orders/:id/status
type VendorStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"` // processing, shipped or cancelled
}

// ListOrdersHandler pages through the buyer's orders
func ListOrdersHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listOrders(c, a, order.Scope{BuyerID: userID})
	}
}

// ListVendorOrdersHandler pages through orders placed with the vendor
func ListVendorOrdersHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		listOrders(c, a, order.Scope{VendorProfileID: vendorID})
	}
}

func listOrders(c *gin.Context, a *app.App, scope order.Scope) {
	page := utils.PageFromQuery(c)                  // page and page_size
	status := domain.OrderStatus(c.Query("status")) // Optional status filter
	orders, total, err := a.Orders.List(c.Request.Context(), scope, status, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, page.Envelope("orders", orders, total))
}

// GetOrderHandler returns one of the buyer's orders
func GetOrderHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		getOrder(c, a, order.Scope{BuyerID: userID})
	}
}

// GetVendorOrderHandler returns one order placed with the vendor
func GetVendorOrderHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		getOrder(c, a, order.Scope{VendorProfileID: vendorID})
	}
}

func getOrder(c *gin.Context, a *app.App, scope order.Scope) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := a.Orders.Get(c.Request.Context(), scope, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

// CheckoutHandler previews the orders the cart would place
func CheckoutHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		sum, err := a.Orders.Checkout(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		w, _, err := a.Wallets.Get(c.Request.Context(), userID) // Balance shown next to the total
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"summary":    sum,                           // Per-vendor totals
			"wallet":     w,                             // Current wallet
			"can_afford": w.Balance >= sum.Totals.Total, // Enough balance to place
			"currency":   a.Config.Currency,             // Currency of every amount
		})
	}
}

// PlaceOrderHandler turns the cart into one pending order per vendor
func PlaceOrderHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req PlaceOrderRequest // Empty body ships to the default address
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid request")
				return
			}
		}
		orders, err := a.Orders.Place(c.Request.Context(), userID, order.PlaceInput{
			AddressID:       req.AddressID,
			ShippingAddress: req.ShippingAddress,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		a.Wallets.Invalidate(c.Request.Context(), userID) // Funds moved to locked
		a.Catalog.Invalidate(c.Request.Context())         // Stock changed
		respond(c, http.StatusCreated, gin.H{"orders": orders})
	}
}

// PayOrderHandler confirms payment of a pending order from the held funds
func PayOrderHandler(a *app.App) gin.HandlerFunc {
	return buyerAction(a, a.Orders.Pay)
}

// CancelOrderHandler cancels a pending or paid order and refunds the buyer
func CancelOrderHandler(a *app.App) gin.HandlerFunc {
	return buyerAction(a, a.Orders.Cancel)
}

// ConfirmDeliveryHandler marks a shipped order delivered and pays the vendor
func ConfirmDeliveryHandler(a *app.App) gin.HandlerFunc {
	return buyerAction(a, a.Orders.ConfirmDelivery)
}

// buyerAction runs an order operation scoped to the authenticated buyer
func buyerAction(a *app.App, fn func(ctx context.Context, buyerID, orderID uint) (*domain.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := pathID(c, "id")
		if !ok {
			return
		}
		o, err := fn(c.Request.Context(), userID, orderID)
		if err != nil {
			respondError(c, err)
			return
		}
		settled(c, a, o)
		respond(c, http.StatusOK, gin.H{"order": o})
	}
}

// UpdateVendorOrderStatusHandler lets a vendor progress or cancel an order
func UpdateVendorOrderStatusHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		orderID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req VendorStatusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Status is required")
			return
		}
		o, err := a.Orders.UpdateStatusByVendor(c.Request.Context(), vendorID, orderID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		settled(c, a, o)
		respond(c, http.StatusOK, gin.H{"order": o})
	}
}

// settled invalidates caches once an order reached a state that moved money or stock
func settled(c *gin.Context, a *app.App, o *domain.Order) {
	switch o.Status {
	case domain.OrderCancelled:
		a.Catalog.Invalidate(c.Request.Context()) // Units went back to stock
		invalidateParties(c, a, o.ID)
	case domain.OrderDelivered, domain.OrderRefunded:
		invalidateParties(c, a, o.ID)
	}
}

// VendorDashboardHandler returns the vendor's order and listing statistics
func VendorDashboardHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		stats, err := a.Orders.VendorStats(c.Request.Context(), vendorID)
		if err != nil {
			respondError(c, err)
			return
		}
		profile, _ := middleware.VendorProfile(c)
		respond(c, http.StatusOK, gin.H{"profile": profile, "stats": stats})
	}
}
