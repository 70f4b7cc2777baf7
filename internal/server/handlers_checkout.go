package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"domainhub/internal/lifecycle"
	"domainhub/internal/provider"
	"domainhub/pkg/api"
)

func (s *Server) handleLookup(c *gin.Context) {
	var req api.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	policy, ok := s.catalog.Policy(req.ProductID)
	if !ok {
		fail(c, http.StatusBadRequest, api.CodeValidation, "unknown product")
		return
	}

	result, err := s.engine.Lookup(c.Request.Context(), req.Domain, policy)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := api.LookupResponse{
		Domain:    result.Domain,
		Available: result.Available,
		Premium:   result.Premium,
	}
	if result.Currency != "" {
		resp.Price = result.Price.StringFixed(2)
		resp.RenewalPrice = result.RenewalPrice.StringFixed(2)
		resp.Currency = result.Currency
		resp.FormattedPrice = result.FormattedPrice
	}
	respondOK(c, resp)
}

// handleRegister is invoked by the storefront once payment is captured.
// Errors come back as structured envelopes so the checkout page can show
// an inline message without breaking the purchase flow.
func (s *Server) handleRegister(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	policy, ok := s.catalog.Policy(req.ProductID)
	if !ok {
		fail(c, http.StatusBadRequest, api.CodeValidation, "unknown product")
		return
	}

	record, err := s.engine.Register(c.Request.Context(), lifecycle.RegisterRequest{
		CustomerID:  req.CustomerID,
		Domain:      req.Domain,
		Years:       req.Years,
		Contact:     toContact(req.Contact),
		Nameservers: req.Nameservers,
	}, policy)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, domainResponse(record))
}

func toContact(c *api.Contact) *provider.Contact {
	if c == nil {
		return nil
	}
	return &provider.Contact{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Phone:         c.Phone,
		Address1:      c.Address1,
		Address2:      c.Address2,
		City:          c.City,
		StateProvince: c.StateProvince,
		PostalCode:    c.PostalCode,
		Country:       c.Country,
	}
}
