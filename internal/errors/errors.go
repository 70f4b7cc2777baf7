// Package errors defines the application-level error taxonomy. Callers
// import it as apperrors to avoid clashing with the standard library.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKey is returned by the storage layer when an insert
	// violates a unique constraint (e.g. a second active record for the
	// same domain name).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoProviderConfigured is returned by the router when neither the
	// product policy nor the global default resolves to an enabled provider.
	ErrNoProviderConfigured = errors.New("no domain provider configured")

	// ErrImportInProgress is returned when a pricing import is requested
	// while another import for the same provider is still running.
	// The caller should back off; requests are not queued.
	ErrImportInProgress = errors.New("pricing import already in progress")

	// ErrRenewalInProgress is returned when a renewal is requested for a
	// domain that already has a renewal call in flight.
	ErrRenewalInProgress = errors.New("renewal already in progress")

	// ErrNotAuthorized is returned when a customer attempts to manage a
	// domain they do not own.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrDomainExists is returned when a registration is attempted for a
	// domain that already has an active record locally.
	ErrDomainExists = errors.New("domain already registered")

	// ErrDomainNotManageable is returned when a management operation is
	// attempted on a domain whose status does not allow it.
	ErrDomainNotManageable = errors.New("domain status does not allow this operation")

	// ErrValidation wraps caller-fixable input problems that never reach
	// the network.
	ErrValidation = errors.New("validation failed")
)

// MissingContactError reports which registrant contact fields were absent
// from a registration request. It is raised before any provider call.
type MissingContactError struct {
	Fields []string
}

func (e *MissingContactError) Error() string {
	return fmt.Sprintf("missing contact fields: %s", strings.Join(e.Fields, ", "))
}
