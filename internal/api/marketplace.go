package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"bebamart/internal/app"     // Service wiring
	"bebamart/internal/catalog" // Listings and marketplace
	"bebamart/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// BrowseHandler lists active listings with search, price, condition and sort filters
func BrowseHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := catalog.BrowseFilter{
			Search:    c.Query("search"),    // Matches title or description
			Condition: c.Query("condition"), // new, used or refurbished
			SortBy:    c.Query("sort_by"),   // created_at, price or title
			SortDir:   c.Query("sort_dir"),  // asc or desc
		}
		var ok bool
		if f.MinPrice, ok = queryAmount(c, "min_price"); !ok {
			return
		}
		if f.MaxPrice, ok = queryAmount(c, "max_price"); !ok {
			return
		}
		page := utils.PageFromQuery(c) // page and page_size
		listings, total, err := a.Catalog.Browse(c.Request.Context(), f, page)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page.Envelope("listings", listings, total))
	}
}

// GetListingHandler returns an active listing with its vendor
func GetListingHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := pathID(c, "id")
		if !ok {
			return
		}
		l, err := a.Catalog.GetActive(c.Request.Context(), listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"listing": l})
	}
}

// queryAmount parses an optional minor-unit amount or writes 400
func queryAmount(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true // Not filtered
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}
