package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app"   // Service wiring
	"bebamart/internal/utils" // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// DepositRequest represents a deposit request
type DepositRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"` // Deposit amount in minor units
	Reference string `json:"reference" binding:"required"`   // Payment provider reference
}

// WithdrawRequest represents a withdrawal request
type WithdrawRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`  // Withdrawal amount in minor units
	Destination string `json:"destination" binding:"required"` // Mobile money number or bank account
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		w, cached, err := a.Wallets.Get(c.Request.Context(), userID) // Cache first, then DB
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"wallet": w, "cached": cached})
	}
}

// GetTransactionHistoryHandler returns the ledger entries of the user's wallet
func GetTransactionHistoryHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		page := utils.PageFromQuery(c) // page and page_size
		h, cached, err := a.Wallets.Transactions(c.Request.Context(), userID, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"transactions": h.Entries,    // Ledger entries
			"page":         h.Page,       // Current page
			"page_size":    h.PageSize,   // Page size
			"total":        h.Total,      // Total entries
			"total_pages":  h.TotalPages, // Total pages
			"cached":       cached,       // Served from Redis
		})
	}
}

// DepositHandler credits the user's wallet once the gateway accepts the reference
func DepositHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid amount or reference")
			return
		}
		r, err := a.Wallets.Deposit(c.Request.Context(), userID, req.Amount, req.Reference)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Deposit successful", "wallet": r.Wallet, "entry": r.Entry})
	}
}

// WithdrawHandler debits the user's wallet and queues a payout
func WithdrawHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid amount or destination")
			return
		}
		r, err := a.Wallets.Withdraw(c.Request.Context(), userID, req.Amount, req.Destination)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"message":   "Withdrawal queued", // Payout is settled by the gateway
			"wallet":    r.Wallet,            // Wallet after the debit
			"entry":     r.Entry,             // Ledger entry
			"payout_id": r.PayoutID,          // Gateway payout id
		})
	}
}
