// Package lifecycle owns domain registration and post-registration
// management. The local store is a mirror of provider truth: every write
// happens only after the provider confirmed the corresponding change.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"domainhub/internal/config"
	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
	"domainhub/internal/provider"
	"domainhub/internal/storage"
)

// DefaultCurrency is used for pricing lookups until multi-currency
// storefronts exist.
const DefaultCurrency = "USD"

type Engine struct {
	router provider.Router
	store  storage.Store
	now    func() time.Time

	mu       sync.Mutex
	renewing map[uint]bool
}

func NewEngine(router provider.Router, store storage.Store) *Engine {
	return &Engine{
		router:   router,
		store:    store,
		now:      time.Now,
		renewing: make(map[uint]bool),
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// LookupResult is the availability answer handed to the checkout layer.
// Pricing fields are populated only when the domain is available and its
// TLD has an enabled cache entry.
type LookupResult struct {
	Domain         string
	Available      bool
	Premium        bool
	Price          decimal.Decimal
	RenewalPrice   decimal.Decimal
	Currency       string
	FormattedPrice string
}

// Lookup checks availability through the policy's provider and attaches
// the cached price for the TLD.
func (e *Engine) Lookup(ctx context.Context, fqdn string, policy config.ProductPolicy) (LookupResult, error) {
	fqdn, err := normalizeDomain(fqdn)
	if err != nil {
		return LookupResult{}, err
	}
	tld, err := tldOf(fqdn)
	if err != nil {
		return LookupResult{}, err
	}
	if !policy.AllowsTLD(tld) {
		return LookupResult{}, fmt.Errorf("%w: .%s is not offered for this product", apperrors.ErrValidation, tld)
	}

	p, err := e.router.Route(policy.Provider)
	if err != nil {
		return LookupResult{}, err
	}
	avail, err := p.LookupDomain(ctx, fqdn)
	if err != nil {
		return LookupResult{}, err
	}

	result := LookupResult{
		Domain:    fqdn,
		Available: avail.Available,
		Premium:   avail.Premium,
	}
	if !avail.Available {
		return result, nil
	}

	price, err := e.store.GetTLDPrice(tld, DefaultCurrency)
	switch {
	case err == nil && price.Enabled:
		result.Price = price.Registration
		result.RenewalPrice = price.Renewal
		result.Currency = price.Currency
		result.FormattedPrice = fmt.Sprintf("%s %s/yr", price.Registration.StringFixed(2), price.Currency)
	case errors.Is(err, apperrors.ErrNotFound), err == nil:
		// No enabled pricing row: the domain is reported available but
		// cannot be sold at a dynamic price.
	default:
		return LookupResult{}, err
	}
	return result, nil
}

// RegisterRequest is a registration placed after payment capture.
type RegisterRequest struct {
	CustomerID  uint
	Domain      string
	Years       int
	Contact     *provider.Contact
	Nameservers []string
}

// Register places a registration with the policy's provider and persists a
// DomainRecord on success. Contact validation and the duplicate check both
// happen before any network call; a provider failure creates no record and
// is never retried automatically.
func (e *Engine) Register(ctx context.Context, req RegisterRequest, policy config.ProductPolicy) (*models.Domain, error) {
	name, err := normalizeDomain(req.Domain)
	if err != nil {
		return nil, err
	}
	req.Domain = name
	tld, err := tldOf(req.Domain)
	if err != nil {
		return nil, err
	}
	if !policy.AllowsTLD(tld) {
		return nil, fmt.Errorf("%w: .%s is not offered for this product", apperrors.ErrValidation, tld)
	}
	if req.Years < 1 {
		req.Years = 1
	}
	if len(req.Nameservers) > 4 {
		return nil, fmt.Errorf("%w: at most 4 nameservers", apperrors.ErrValidation)
	}

	p, err := e.router.Route(policy.Provider)
	if err != nil {
		return nil, err
	}

	if p.RequiresContact() {
		if missing := req.Contact.MissingFields(); len(missing) > 0 {
			return nil, &apperrors.MissingContactError{Fields: missing}
		}
	}

	// At most one row exists per name. Only active/expiring/pending rows
	// occupy it; an expired or failed row releases the name and is
	// reclaimed in place below, so the unique index never blocks a
	// legitimate re-registration after the provider has been charged.
	existing, err := e.store.GetDomainByName(req.Domain)
	switch {
	case err == nil:
		if existing.Status != models.StatusExpired && existing.Status != models.StatusFailed {
			return nil, fmt.Errorf("%s: %w", req.Domain, apperrors.ErrDomainExists)
		}
	case errors.Is(err, apperrors.ErrNotFound):
		existing = nil
	default:
		return nil, err
	}

	result, err := p.RegisterDomain(ctx, provider.RegistrationRequest{
		Domain:       req.Domain,
		Years:        req.Years,
		Contact:      req.Contact,
		Nameservers:  req.Nameservers,
		WhoisPrivacy: policy.WhoisPrivacyIncluded,
	})
	if err != nil {
		log.Printf("lifecycle: registration of %s via %s failed: %v", req.Domain, p.Name(), err)
		return nil, err
	}

	now := e.now()
	record := existing
	if record == nil {
		record = &models.Domain{Name: req.Domain}
	}
	record.CustomerID = req.CustomerID
	record.Provider = p.Name()
	record.Status = models.StatusActive
	record.RegistrationDate = now
	record.ExpirationDate = now.AddDate(req.Years, 0, 0)
	record.Period = req.Years
	record.AutoRenew = policy.AutoRenewDefault
	record.WhoisPrivacy = policy.WhoisPrivacyIncluded
	record.DomainLock = false
	record.Nameservers = ""
	if len(req.Nameservers) > 0 {
		record.SetNameservers(req.Nameservers)
	}
	if existing != nil {
		err = e.store.UpdateDomain(record)
	} else {
		err = e.store.CreateDomain(record)
	}
	if err != nil {
		// The provider registered the domain but the local mirror write
		// failed. Surface loudly: this needs manual reconciliation.
		return nil, fmt.Errorf("registered %s (order %s) but failed to persist record: %w",
			req.Domain, result.OrderID, err)
	}
	log.Printf("lifecycle: registered %s via %s (order %s)", req.Domain, p.Name(), result.OrderID)
	return record, nil
}

// UpdateNameservers replaces the domain's nameservers at the provider and
// mirrors them locally once the provider confirms.
func (e *Engine) UpdateNameservers(ctx context.Context, customerID, domainID uint, nameservers []string) error {
	if len(nameservers) < 1 || len(nameservers) > 4 {
		return fmt.Errorf("%w: between 1 and 4 nameservers required", apperrors.ErrValidation)
	}
	domain, p, err := e.manageable(customerID, domainID)
	if err != nil {
		return err
	}
	if err := p.UpdateNameservers(ctx, domain.Name, nameservers); err != nil {
		return err
	}
	domain.SetNameservers(nameservers)
	return e.store.UpdateDomain(domain)
}

// SetWhoisPrivacy toggles WHOIS privacy at the provider, then mirrors the
// flag locally.
func (e *Engine) SetWhoisPrivacy(ctx context.Context, customerID, domainID uint, enabled bool) error {
	domain, p, err := e.manageable(customerID, domainID)
	if err != nil {
		return err
	}
	if err := p.SetWhoisPrivacy(ctx, domain.Name, enabled); err != nil {
		return err
	}
	domain.WhoisPrivacy = enabled
	return e.store.UpdateDomain(domain)
}

// SetLock toggles the registrar transfer lock.
func (e *Engine) SetLock(ctx context.Context, customerID, domainID uint, locked bool) error {
	domain, p, err := e.manageable(customerID, domainID)
	if err != nil {
		return err
	}
	if err := p.SetLock(ctx, domain.Name, locked); err != nil {
		return err
	}
	domain.DomainLock = locked
	return e.store.UpdateDomain(domain)
}

// SetAutoRenew flips the local auto-renew flag. No provider call: renewal
// is driven by our own scheduler, not registrar-side auto-renew.
func (e *Engine) SetAutoRenew(ctx context.Context, customerID, domainID uint, enabled bool) error {
	domain, err := e.authorized(customerID, domainID)
	if err != nil {
		return err
	}
	domain.AutoRenew = enabled
	return e.store.UpdateDomain(domain)
}

// RenewForCustomer is the dashboard's manual renewal path.
func (e *Engine) RenewForCustomer(ctx context.Context, customerID, domainID uint, years int) (*models.Domain, error) {
	if _, err := e.authorized(customerID, domainID); err != nil {
		return nil, err
	}
	return e.Renew(ctx, domainID, years)
}

// Renew issues a renewal with the domain's registering provider. Renewal
// is permitted from any status: a successful renew call is authoritative
// and returns the domain to active, including resurrection of an expired
// domain inside the provider's grace window. A per-domain guard keeps the
// scheduler and a racing manual renewal from double-charging.
func (e *Engine) Renew(ctx context.Context, domainID uint, years int) (*models.Domain, error) {
	if years < 1 {
		years = 1
	}
	if !e.acquireRenewal(domainID) {
		return nil, apperrors.ErrRenewalInProgress
	}
	defer e.releaseRenewal(domainID)

	domain, err := e.store.GetDomainByID(domainID)
	if err != nil {
		return nil, err
	}
	p, err := e.router.Route(domain.Provider)
	if err != nil {
		return nil, err
	}

	newExpiry, err := p.RenewDomain(ctx, domain.Name, years)
	if err != nil {
		return nil, err
	}
	if newExpiry.IsZero() {
		newExpiry = domain.ExpirationDate.AddDate(years, 0, 0)
	}
	domain.ExpirationDate = newExpiry
	domain.Status = models.StatusActive
	domain.Period = years
	if err := e.store.UpdateDomain(domain); err != nil {
		return nil, err
	}
	log.Printf("lifecycle: renewed %s for %d year(s), new expiry %s",
		domain.Name, years, newExpiry.Format("2006-01-02"))
	return domain, nil
}

// authorized loads the domain and verifies ownership.
func (e *Engine) authorized(customerID, domainID uint) (*models.Domain, error) {
	domain, err := e.store.GetDomainByID(domainID)
	if err != nil {
		return nil, err
	}
	if domain.CustomerID != customerID {
		return nil, apperrors.ErrNotAuthorized
	}
	return domain, nil
}

// manageable loads an owned domain, checks its status admits management
// operations, and resolves its registering provider.
func (e *Engine) manageable(customerID, domainID uint) (*models.Domain, provider.Provider, error) {
	domain, err := e.authorized(customerID, domainID)
	if err != nil {
		return nil, nil, err
	}
	switch domain.Status {
	case models.StatusActive, models.StatusExpiring:
	default:
		return nil, nil, fmt.Errorf("%s is %s: %w", domain.Name, domain.Status, apperrors.ErrDomainNotManageable)
	}
	p, err := e.router.Route(domain.Provider)
	if err != nil {
		return nil, nil, err
	}
	return domain, p, nil
}

func (e *Engine) acquireRenewal(domainID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.renewing[domainID] {
		return false
	}
	e.renewing[domainID] = true
	return true
}

func (e *Engine) releaseRenewal(domainID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.renewing, domainID)
}

// normalizeDomain lowercases the name and converts unicode labels to
// their punycode form; adapters only ever see ASCII.
func normalizeDomain(fqdn string) (string, error) {
	fqdn = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(fqdn)), ".")
	ascii, err := idna.Lookup.ToASCII(fqdn)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a valid domain name", apperrors.ErrValidation, fqdn)
	}
	return ascii, nil
}

// tldOf extracts the public suffix, so multi-label TLDs like co.uk match
// their pricing rows and policy entries.
func tldOf(fqdn string) (string, error) {
	suffix, _ := publicsuffix.PublicSuffix(fqdn)
	if suffix == "" || suffix == fqdn || !strings.Contains(fqdn, ".") {
		return "", fmt.Errorf("%w: %q is not a valid domain name", apperrors.ErrValidation, fqdn)
	}
	return suffix, nil
}
