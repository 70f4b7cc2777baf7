package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
	"domainhub/internal/provider"
	"domainhub/internal/sentry"
	"domainhub/pkg/api"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, api.Envelope{OK: true, Data: data})
}

// respondError maps the error taxonomy onto HTTP statuses and envelope
// codes. Provider business messages pass through verbatim; internal
// consistency problems surface as a generic failure.
func respondError(c *gin.Context, err error) {
	var missingContact *apperrors.MissingContactError
	var businessErr *provider.BusinessError
	var transportErr *provider.TransportError

	switch {
	case errors.As(err, &missingContact):
		fail(c, http.StatusBadRequest, api.CodeValidation,
			"missing contact fields: "+strings.Join(missingContact.Fields, ", "))

	case errors.As(err, &transportErr):
		fail(c, http.StatusBadGateway, api.CodeTransport,
			"provider temporarily unreachable, please retry")

	case errors.As(err, &businessErr):
		fail(c, http.StatusUnprocessableEntity, api.CodeProvider, businessErr.Message)

	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrNoProviderConfigured),
		errors.Is(err, apperrors.ErrDomainNotManageable):
		fail(c, http.StatusBadRequest, api.CodeValidation, err.Error())

	case errors.Is(err, apperrors.ErrImportInProgress),
		errors.Is(err, apperrors.ErrRenewalInProgress):
		fail(c, http.StatusConflict, api.CodeConcurrency, err.Error())

	case errors.Is(err, apperrors.ErrDomainExists):
		fail(c, http.StatusConflict, api.CodeConsistency, "domain is already registered")

	case errors.Is(err, apperrors.ErrNotAuthorized):
		fail(c, http.StatusForbidden, api.CodeUnauthorized, "you do not own this domain")

	case errors.Is(err, apperrors.ErrNotFound):
		fail(c, http.StatusNotFound, api.CodeNotFound, "not found")

	default:
		sentry.CaptureErrorWithContext(c, err, "unhandled API error")
		fail(c, http.StatusInternalServerError, api.CodeInternal, "internal error")
	}
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, api.Envelope{OK: false, ErrorCode: code, ErrorMessage: message})
}

func domainResponse(d *models.Domain) api.DomainResponse {
	return api.DomainResponse{
		ID:               d.ID,
		Name:             d.Name,
		Provider:         d.Provider,
		Status:           d.Status,
		RegistrationDate: d.RegistrationDate.Format("2006-01-02"),
		ExpirationDate:   d.ExpirationDate.Format("2006-01-02"),
		AutoRenew:        d.AutoRenew,
		WhoisPrivacy:     d.WhoisPrivacy,
		DomainLock:       d.DomainLock,
		Nameservers:      d.NameserverList(),
	}
}
