package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"domainhub/pkg/api"
)

func (s *Server) handleImport(c *gin.Context) {
	result, err := s.importer.Import(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.ImportResponse{
		Provider:  result.Provider,
		Count:     result.Count,
		Timestamp: result.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	result, err := s.importer.Refresh(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.ImportResponse{
		Provider:  result.Provider,
		Count:     result.Count,
		Timestamp: result.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleListPricing(c *gin.Context) {
	entries, err := s.store.ListPricing(c.Query("enabled") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]api.PricingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.PricingEntry{
			TLD:          e.TLD,
			Currency:     e.Currency,
			Registration: e.Registration.StringFixed(2),
			Renewal:      e.Renewal.StringFixed(2),
			Transfer:     e.Transfer.StringFixed(2),
			WhoisPrivacy: e.WhoisPrivacy.StringFixed(2),
			Enabled:      e.Enabled,
			LastUpdated:  e.LastUpdated.Format(time.RFC3339),
		})
	}
	respondOK(c, out)
}

func (s *Server) handleToggleTLD(c *gin.Context) {
	var req api.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}
	if err := s.store.SetTLDEnabled(c.Param("tld"), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: fmt.Sprintf(".%s updated", c.Param("tld"))})
}

func (s *Server) handleTestConnection(c *gin.Context) {
	name := c.Param("name")
	p, err := s.router.Route(name)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := p.TestConnection(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, api.MessageResponse{Message: fmt.Sprintf("%s connection ok", p.Name())})
}
