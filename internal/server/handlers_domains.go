package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"domainhub/pkg/api"
)

func (s *Server) handleListDomains(c *gin.Context) {
	customer := currentCustomer(c)
	domains, err := s.store.ListCustomerDomains(customer.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]api.DomainResponse, 0, len(domains))
	for i := range domains {
		out = append(out, domainResponse(&domains[i]))
	}
	respondOK(c, out)
}

func (s *Server) handleUpdateNameservers(c *gin.Context) {
	id, ok := domainID(c)
	if !ok {
		return
	}
	var req api.NameserversRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	customer := currentCustomer(c)
	if err := s.engine.UpdateNameservers(c.Request.Context(), customer.ID, id, req.Nameservers); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: "nameservers updated"})
}

func (s *Server) handleToggleWhoisPrivacy(c *gin.Context) {
	id, ok := domainID(c)
	if !ok {
		return
	}
	var req api.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	customer := currentCustomer(c)
	if err := s.engine.SetWhoisPrivacy(c.Request.Context(), customer.ID, id, req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: "whois privacy updated"})
}

func (s *Server) handleToggleLock(c *gin.Context) {
	id, ok := domainID(c)
	if !ok {
		return
	}
	var req api.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	customer := currentCustomer(c)
	if err := s.engine.SetLock(c.Request.Context(), customer.ID, id, req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: "domain lock updated"})
}

func (s *Server) handleToggleAutoRenew(c *gin.Context) {
	id, ok := domainID(c)
	if !ok {
		return
	}
	var req api.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	customer := currentCustomer(c)
	if err := s.engine.SetAutoRenew(c.Request.Context(), customer.ID, id, req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: "auto-renew updated"})
}

func (s *Server) handleRenew(c *gin.Context) {
	id, ok := domainID(c)
	if !ok {
		return
	}
	var req api.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	customer := currentCustomer(c)
	record, err := s.engine.RenewForCustomer(c.Request.Context(), customer.ID, id, req.Years)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, domainResponse(record))
}

func domainID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid domain id")
		return 0, false
	}
	return uint(id), true
}
