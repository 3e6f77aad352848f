package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app"        // Service wiring
	"bebamart/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin" // Gin web framework
)

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(a *app.App) *gin.Engine {
	r := gin.New() // Logging and recovery are added explicitly
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(a.Metrics))

	if a.Metrics != nil {
		r.GET("/metrics", gin.WrapH(a.Metrics.Handler())) // Prometheus scrape endpoint
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth routes, rate limited per client IP
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: a.Config.AuthRatePerMinute,
		Burst:             a.Config.AuthRateBurst,
	})
	auth := v1.Group("/auth", limiter.Middleware())
	auth.POST("/register", RegisterHandler(a)) // Registration endpoint
	auth.POST("/login", LoginHandler(a))       // Login endpoint

	// Public marketplace
	v1.GET("/marketplace", BrowseHandler(a))         // Browse listings
	v1.GET("/marketplace/:id", GetListingHandler(a)) // Listing detail

	// Everything below needs a bearer token; POSTs may carry an Idempotency-Key
	authed := v1.Group("", middleware.JWTAuthMiddleware(a.Config.JWTSecret), middleware.Idempotency(a.DB))
	authed.GET("/user", CurrentUserHandler(a)) // Current user

	cart := authed.Group("/cart")
	cart.GET("", GetCartHandler(a))                             // Cart items
	cart.POST("/add/:listingId", AddToCartHandler(a))           // Add units
	cart.POST("/update/:listingId", UpdateCartHandler(a))       // Set quantity
	cart.DELETE("/remove/:listingId", RemoveFromCartHandler(a)) // Drop item
	cart.POST("/clear", ClearCartHandler(a))                    // Empty cart
	cart.GET("/summary", CartSummaryHandler(a))                 // Priced summary

	wishlist := authed.Group("/wishlist")
	wishlist.GET("", GetWishlistHandler(a))                            // Wishlisted listings
	wishlist.POST("/add/:listingId", AddToWishlistHandler(a))          // Add listing
	wishlist.DELETE("/remove/:listingId", RemoveFromWishlistHandler(a)) // Drop listing
	wishlist.POST("/toggle/:listingId", ToggleWishlistHandler(a))      // Add or drop
	wishlist.POST("/move-to-cart/:listingId", MoveToCartHandler(a))    // Into the cart
	wishlist.GET("/count", WishlistCountHandler(a))                    // Badge count

	addresses := authed.Group("/addresses")
	addresses.GET("", ListAddressesHandler(a))                      // Address book
	addresses.POST("", CreateAddressHandler(a))                     // Save address
	addresses.PUT("/:id", UpdateAddressHandler(a))                  // Edit address
	addresses.DELETE("/:id", DeleteAddressHandler(a))               // Delete address
	addresses.POST("/:id/set-default", SetDefaultAddressHandler(a)) // Default for checkout

	orders := authed.Group("/orders")
	orders.GET("", ListOrdersHandler(a))                            // Buyer orders
	orders.GET("/checkout", CheckoutHandler(a))                     // Checkout preview
	orders.POST("/place", PlaceOrderHandler(a))                     // Place orders
	orders.GET("/:id", GetOrderHandler(a))                          // Order detail
	orders.POST("/:id/cancel", CancelOrderHandler(a))               // Cancel and refund
	orders.POST("/:id/confirm-delivery", ConfirmDeliveryHandler(a)) // Release escrow
	orders.POST("/:id/pay-with-wallet", PayOrderHandler(a))         // Mark paid

	wallet := authed.Group("/wallet")
	wallet.GET("", GetWalletHandler(a))                          // Get wallet endpoint
	wallet.GET("/transactions", GetTransactionHistoryHandler(a)) // Ledger history endpoint
	wallet.POST("/deposit", DepositHandler(a))                   // Deposit endpoint
	wallet.POST("/withdraw", WithdrawHandler(a))                 // Withdraw endpoint

	disputes := authed.Group("/disputes")
	disputes.GET("", ListDisputesHandler(a))                  // Buyer disputes
	disputes.POST("/:id", OpenDisputeHandler(a))              // Open on order :id
	disputes.GET("/:id", GetDisputeHandler(a))                // Dispute detail
	disputes.POST("/:id/add-evidence", AddEvidenceHandler(a)) // Attach evidence
	disputes.POST("/:id/resolve", middleware.AdminOnlyMiddleware(a.DB), ResolveDisputeHandler(a))

	// Vendor routes need a profile that was not rejected
	vendor := authed.Group("/vendor", middleware.VendorMiddleware(a.DB))
	vendor.GET("/dashboard", VendorDashboardHandler(a))
	vendor.GET("/listings", ListVendorListingsHandler(a))
	vendor.POST("/listings", CreateListingHandler(a))
	vendor.GET("/listings/:id", GetVendorListingHandler(a))
	vendor.PUT("/listings/:id", UpdateListingHandler(a))
	vendor.DELETE("/listings/:id", DeleteListingHandler(a))
	vendor.POST("/listings/:id/toggle-status", ToggleListingHandler(a))
	vendor.GET("/orders", ListVendorOrdersHandler(a))
	vendor.GET("/orders/:id", GetVendorOrderHandler(a))
	vendor.POST("/orders/:id/status", UpdateVendorOrderStatusHandler(a))

	// Admin routes check the role against the database
	admin := authed.Group("/admin", middleware.AdminOnlyMiddleware(a.DB))
	admin.GET("/users", ListUsersHandler(a))                       // List users endpoint
	admin.GET("/ledger", ListLedgerHandler(a))                     // Ledger search endpoint
	admin.GET("/disputes", ListAllDisputesHandler(a))              // All disputes
	admin.POST("/disputes/:id/review", ReviewDisputeHandler(a))    // Start review
	admin.POST("/vendors/:id/vetting", VetVendorHandler(a))        // Vet a vendor
	admin.GET("/wallets/:id/reconcile", ReconcileWalletHandler(a)) // Ledger check

	return r
}
