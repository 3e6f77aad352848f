package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/app"     // Service wiring
	"bebamart/internal/catalog" // Listings and marketplace
	"bebamart/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListVendorListingsHandler pages through the vendor's own listings
func ListVendorListingsHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		page := utils.PageFromQuery(c) // page and page_size
		listings, total, err := a.Catalog.ListForVendor(c.Request.Context(), vendorID, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page.Envelope("listings", listings, total))
	}
}

// CreateListingHandler adds a listing to the vendor's storefront
func CreateListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		var in catalog.ListingInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		l, err := a.Catalog.Create(c.Request.Context(), vendorID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"listing": l})
	}
}

// GetVendorListingHandler returns one of the vendor's listings, active or not
func GetVendorListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return
		}
		l, err := a.Catalog.GetForVendor(c.Request.Context(), vendorID, listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"listing": l})
	}
}

// UpdateListingHandler edits the given fields of a listing
func UpdateListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in catalog.ListingInput // Only present fields change
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		l, err := a.Catalog.Update(c.Request.Context(), vendorID, listingID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"listing": l})
	}
}

// DeleteListingHandler removes a listing
func DeleteListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := a.Catalog.Delete(c.Request.Context(), vendorID, listingID); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Listing deleted"})
	}
}

// ToggleListingHandler flips a listing between active and inactive
func ToggleListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, ok := currentVendor(c)
		if !ok {
			return
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return
		}
		l, err := a.Catalog.ToggleStatus(c.Request.Context(), vendorID, listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"listing": l})
	}
}
