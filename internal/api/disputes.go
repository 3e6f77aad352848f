package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app"        // Service wiring
	"bebamart/internal/dispute"    // Dispute resolution
	"bebamart/internal/domain"     // Importing domain models
	"bebamart/internal/middleware" // Auth context helpers
	"bebamart/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// OpenDisputeRequest is the payload of POST /disputes/:id, where id names the order
type OpenDisputeRequest struct {
	Reason        string `json:"reason" binding:"required"` // Why the buyer disputes the order
	Note          string `json:"note"`                      // Optional first evidence note
	AttachmentURL string `json:"attachment_url"`            // Optional first evidence file
}

// EvidenceRequest is the payload of POST /disputes/:id/add-evidence
type EvidenceRequest struct {
	Note          string `json:"note"`           // Free text
	AttachmentURL string `json:"attachment_url"` // Link to an uploaded file
}

// ResolveRequest is the payload of POST /disputes/:id/resolve
type ResolveRequest struct {
	Outcome domain.DisputeOutcome `json:"outcome" binding:"required"` // refund or release
}

// actor describes the caller to the resolver; admin rights come from the database
func actor(c *gin.Context, a *app.App, userID uint) dispute.Actor {
	return dispute.Actor{UserID: userID, IsAdmin: middleware.IsAdmin(c, a.DB)}
}

// ListDisputesHandler pages through the buyer's disputes
func ListDisputesHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		page := utils.PageFromQuery(c) // page and page_size
		disputes, total, err := a.Disputes.ListForBuyer(c.Request.Context(), userID, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page.Envelope("disputes", disputes, total))
	}
}

// OpenDisputeHandler disputes one of the buyer's orders and freezes its escrow
func OpenDisputeHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := pathID(c, "id") // Order being disputed
		if !ok {
			return
		}
		var req OpenDisputeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Reason is required")
			return
		}
		d, err := a.Disputes.Open(c.Request.Context(), userID, orderID, dispute.OpenInput{
			Reason:        req.Reason,
			Note:          req.Note,
			AttachmentURL: req.AttachmentURL,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"dispute": d})
	}
}

// GetDisputeHandler returns a dispute with its order and evidence
func GetDisputeHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		disputeID, ok := pathID(c, "id")
		if !ok {
			return
		}
		d, err := a.Disputes.Get(c.Request.Context(), actor(c, a, userID), disputeID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"dispute": d})
	}
}

// AddEvidenceHandler attaches a note or file to an unresolved dispute
func AddEvidenceHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		disputeID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req EvidenceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		ev, err := a.Disputes.AddEvidence(c.Request.Context(), actor(c, a, userID), disputeID, req.Note, req.AttachmentURL)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"evidence": ev})
	}
}

// ListAllDisputesHandler pages through every dispute for admins
func ListAllDisputesHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.PageFromQuery(c)                    // page and page_size
		status := domain.DisputeStatus(c.Query("status")) // Optional status filter
		disputes, total, err := a.Disputes.ListAll(c.Request.Context(), status, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page.Envelope("disputes", disputes, total))
	}
}

// ReviewDisputeHandler marks an open dispute as under review
func ReviewDisputeHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		disputeID, ok := pathID(c, "id")
		if !ok {
			return
		}
		d, err := a.Disputes.MarkUnderReview(c.Request.Context(), disputeID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"dispute": d})
	}
}

// ResolveDisputeHandler settles a dispute by refunding the buyer or releasing to the vendor
func ResolveDisputeHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := currentUser(c)
		if !ok {
			return
		}
		disputeID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req ResolveRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Outcome is required")
			return
		}
		d, err := a.Disputes.Resolve(c.Request.Context(), adminID, disputeID, req.Outcome)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateParties(c, a, d.OrderID) // Escrow settled
		respond(c, http.StatusOK, gin.H{"dispute": d})
	}
}
