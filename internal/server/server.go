// Package server exposes the HTTP API: checkout and admin endpoints for
// the storefront (service token), and per-domain management endpoints for
// the customer dashboard (customer token).
package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"domainhub/internal/config"
	"domainhub/internal/lifecycle"
	"domainhub/internal/models"
	"domainhub/internal/pricing"
	"domainhub/internal/provider"
	"domainhub/internal/storage"
	"domainhub/pkg/api"
)

type Server struct {
	store    storage.Store
	engine   *lifecycle.Engine
	importer *pricing.Importer
	router   provider.Router
	catalog  *config.Catalog

	adminToken string
}

func New(store storage.Store, engine *lifecycle.Engine, importer *pricing.Importer, router provider.Router, catalog *config.Catalog, adminToken string) *Server {
	return &Server{
		store:      store,
		engine:     engine,
		importer:   importer,
		router:     router,
		catalog:    catalog,
		adminToken: adminToken,
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.Default()
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.Envelope{OK: true})
	})

	v1 := r.Group("/api/v1")

	// Checkout calls come from the storefront backend, not the browser.
	checkout := v1.Group("/checkout", s.serviceAuth())
	checkout.POST("/lookup", s.handleLookup)
	checkout.POST("/register", s.handleRegister)

	domains := v1.Group("/domains", s.customerAuth())
	domains.GET("", s.handleListDomains)
	domains.PUT("/:id/nameservers", s.handleUpdateNameservers)
	domains.PUT("/:id/whois-privacy", s.handleToggleWhoisPrivacy)
	domains.PUT("/:id/lock", s.handleToggleLock)
	domains.PUT("/:id/auto-renew", s.handleToggleAutoRenew)
	domains.POST("/:id/renew", s.handleRenew)

	admin := v1.Group("/admin", s.serviceAuth())
	admin.POST("/pricing/import", s.handleImport)
	admin.POST("/pricing/refresh", s.handleRefresh)
	admin.GET("/pricing", s.handleListPricing)
	admin.PUT("/pricing/:tld", s.handleToggleTLD)
	admin.POST("/providers/:name/test", s.handleTestConnection)

	return r
}

// serviceAuth guards endpoints reserved for the storefront backend and
// operators, authenticated with the shared admin token.
func (s *Server) serviceAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope{
				OK: false, ErrorCode: api.CodeUnauthorized, ErrorMessage: "invalid service token",
			})
			return
		}
		c.Next()
	}
}

// customerAuth resolves the bearer token to a customer via the store.
func (s *Server) customerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope{
				OK: false, ErrorCode: api.CodeUnauthorized, ErrorMessage: "missing token",
			})
			return
		}
		customer, err := s.store.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope{
				OK: false, ErrorCode: api.CodeUnauthorized, ErrorMessage: "invalid token",
			})
			return
		}
		c.Set("customer", customer)
		c.Next()
	}
}

func currentCustomer(c *gin.Context) *models.Customer {
	v, _ := c.Get("customer")
	customer, _ := v.(*models.Customer)
	return customer
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
