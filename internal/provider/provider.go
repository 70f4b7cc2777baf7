// Package provider defines the registrar capability interface implemented
// by each concrete adapter, the shared request/response types, and the
// router that resolves a product policy to an adapter instance.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider names understood by the router.
const (
	OpenSRS   = "opensrs"
	NameCheap = "namecheap"
)

// Availability is the normalized result of a domain availability lookup.
// Each adapter decides availability from its own response shape; nothing
// upstream second-guesses it.
type Availability struct {
	Domain    string
	Available bool
	Premium   bool
}

// PriceSet holds the per-TLD prices for one currency. Prices are fixed
// point decimals, never integer cents.
type PriceSet struct {
	Registration decimal.Decimal
	Renewal      decimal.Decimal
	Transfer     decimal.Decimal
	WhoisPrivacy decimal.Decimal
	Currency     string
}

// Contact is the registrant contact block. The eight exported fields below
// are all mandatory for adapters that require contact information.
type Contact struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address1   string
	City       string
	PostalCode string
	Country    string

	// Optional.
	StateProvince string
	Address2      string
}

// RequiredContactFields lists the mandatory contact fields in a stable
// order, used when reporting a rejected registration.
var RequiredContactFields = []string{
	"first_name", "last_name", "email", "phone",
	"address1", "city", "postal_code", "country",
}

// MissingFields returns the names of mandatory fields that are empty.
// A nil contact is missing everything.
func (c *Contact) MissingFields() []string {
	if c == nil {
		return append([]string(nil), RequiredContactFields...)
	}
	values := []string{
		c.FirstName, c.LastName, c.Email, c.Phone,
		c.Address1, c.City, c.PostalCode, c.Country,
	}
	var missing []string
	for i, v := range values {
		if v == "" {
			missing = append(missing, RequiredContactFields[i])
		}
	}
	return missing
}

// RegistrationRequest describes a registration to be placed with a provider.
type RegistrationRequest struct {
	Domain       string
	Years        int
	Contact      *Contact
	Nameservers  []string
	WhoisPrivacy bool
}

// RegistrationResult is the provider's confirmation of a registration.
type RegistrationResult struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
}

// DomainInfo is the provider-side state of a registered domain.
type DomainInfo struct {
	Domain         string
	ExpirationDate time.Time
	Locked         bool
	WhoisPrivacy   bool
	Nameservers    []string
}

// Provider is the capability interface implemented by each registrar
// adapter. Adapters are stateless per call and own their own credentials
// and live/sandbox mode; errors are returned as *TransportError or
// *BusinessError so callers can branch on retryability.
type Provider interface {
	Name() string

	// RequiresContact reports whether registrations must carry a complete
	// contact block. Checked before any network call.
	RequiresContact() bool

	TestConnection(ctx context.Context) error
	LookupDomain(ctx context.Context, fqdn string) (Availability, error)
	GetPricing(ctx context.Context) (map[string]PriceSet, error)
	RegisterDomain(ctx context.Context, req RegistrationRequest) (RegistrationResult, error)
	GetDomainInfo(ctx context.Context, fqdn string) (DomainInfo, error)
	UpdateNameservers(ctx context.Context, fqdn string, nameservers []string) error
	SetWhoisPrivacy(ctx context.Context, fqdn string, enabled bool) error
	SetLock(ctx context.Context, fqdn string, locked bool) error

	// RenewDomain renews for the given period and returns the new
	// expiration date when the provider reports one (zero otherwise).
	RenewDomain(ctx context.Context, fqdn string, years int) (time.Time, error)
}
