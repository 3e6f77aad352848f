package api

import (
	"net/http" // HTTP status codes

	"bebamart/internal/address" // Address book
	"bebamart/internal/app"     // Service wiring

	"github.com/gin-gonic/gin" // Gin web framework
)

// AddressRequest is the payload of POST /addresses and PUT /addresses/:id
type AddressRequest struct {
	Label         string `json:"label" binding:"max=50"`                    // Home, Office, ...
	RecipientName string `json:"recipient_name" binding:"required,max=255"` // Who receives the parcel
	Phone         string `json:"phone" binding:"required"`                  // Courier contact number
	AddressLine   string `json:"address_line" binding:"required,max=255"`   // Street, plot or building
	City          string `json:"city" binding:"required,max=100"`           // Delivery city
	Region        string `json:"region" binding:"max=100"`                  // Optional region or district
	Country       string `json:"country" binding:"max=100"`                 // Defaults to Uganda
	IsDefault     bool   `json:"is_default"`                                // Make this the default address
}

// input validates the phone and converts the request
func (req AddressRequest) input() (address.Input, bool) {
	if !phonePattern.MatchString(req.Phone) {
		return address.Input{}, false
	}
	return address.Input{
		Label:         req.Label,
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		AddressLine:   req.AddressLine,
		City:          req.City,
		Region:        req.Region,
		Country:       req.Country,
		IsDefault:     req.IsDefault,
	}, true
}

// bindAddress binds and checks an address payload, writing 400 on failure
func bindAddress(c *gin.Context) (address.Input, bool) {
	var req AddressRequest // Bind JSON request to struct
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return address.Input{}, false
	}
	in, ok := req.input()
	if !ok {
		badRequest(c, "phone is invalid")
	}
	return in, ok
}

// ListAddressesHandler returns the address book, default first
func ListAddressesHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		list, err := a.Addresses.List(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"addresses": list})
	}
}

// CreateAddressHandler saves a new address
func CreateAddressHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		in, ok := bindAddress(c)
		if !ok {
			return
		}
		addr, err := a.Addresses.Create(c.Request.Context(), userID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"address": addr})
	}
}

// UpdateAddressHandler replaces the fields of a saved address
func UpdateAddressHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		in, ok := bindAddress(c)
		if !ok {
			return
		}
		addr, err := a.Addresses.Update(c.Request.Context(), userID, id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"address": addr})
	}
}

// DeleteAddressHandler removes a saved address
func DeleteAddressHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := a.Addresses.Delete(c.Request.Context(), userID, id); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Address deleted"})
	}
}

// SetDefaultAddressHandler makes a saved address the default
func SetDefaultAddressHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		addr, err := a.Addresses.SetDefault(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"address": addr})
	}
}
