package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"domainhub/internal/config"
	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
	"domainhub/internal/provider"
	"domainhub/internal/storage"
)

// stubProvider counts calls and fails on demand. The renewBlock channels
// let the single-flight test hold a renewal open mid-call.
type stubProvider struct {
	mu sync.Mutex

	name            string
	requiresContact bool
	available       bool

	registerErr error
	whoisErr    error
	renewErr    error
	renewExpiry time.Time

	renewStarted chan struct{}
	renewRelease chan struct{}

	registerCalls int
	whoisCalls    int
	lockCalls     int
	nsCalls       int
	renewCalls    int
}

func (s *stubProvider) Name() string {
	if s.name == "" {
		return provider.OpenSRS
	}
	return s.name
}

func (s *stubProvider) RequiresContact() bool                { return s.requiresContact }
func (s *stubProvider) TestConnection(context.Context) error { return nil }

func (s *stubProvider) LookupDomain(_ context.Context, fqdn string) (provider.Availability, error) {
	return provider.Availability{Domain: fqdn, Available: s.available}, nil
}

func (s *stubProvider) GetPricing(context.Context) (map[string]provider.PriceSet, error) {
	return nil, nil
}

func (s *stubProvider) RegisterDomain(_ context.Context, req provider.RegistrationRequest) (provider.RegistrationResult, error) {
	s.mu.Lock()
	s.registerCalls++
	s.mu.Unlock()
	if s.registerErr != nil {
		return provider.RegistrationResult{}, s.registerErr
	}
	return provider.RegistrationResult{OrderID: "order-1"}, nil
}

func (s *stubProvider) GetDomainInfo(_ context.Context, fqdn string) (provider.DomainInfo, error) {
	return provider.DomainInfo{Domain: fqdn}, nil
}

func (s *stubProvider) UpdateNameservers(context.Context, string, []string) error {
	s.mu.Lock()
	s.nsCalls++
	s.mu.Unlock()
	return nil
}

func (s *stubProvider) SetWhoisPrivacy(context.Context, string, bool) error {
	s.mu.Lock()
	s.whoisCalls++
	s.mu.Unlock()
	return s.whoisErr
}

func (s *stubProvider) SetLock(context.Context, string, bool) error {
	s.mu.Lock()
	s.lockCalls++
	s.mu.Unlock()
	return nil
}

func (s *stubProvider) RenewDomain(context.Context, string, int) (time.Time, error) {
	s.mu.Lock()
	s.renewCalls++
	s.mu.Unlock()
	if s.renewStarted != nil {
		s.renewStarted <- struct{}{}
		<-s.renewRelease
	}
	return s.renewExpiry, s.renewErr
}

func (s *stubProvider) calls() (register, whois, renew int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerCalls, s.whoisCalls, s.renewCalls
}

// stubRouter routes every name to the same stub.
type stubRouter struct {
	p *stubProvider
}

func (r stubRouter) Route(string) (provider.Provider, error) { return r.p, nil }
func (r stubRouter) AnyEnabled() bool                        { return true }

func setupEngine(t *testing.T, p *stubProvider) (*Engine, storage.Store) {
	t.Helper()
	f, err := os.CreateTemp("", "domainhub-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	store, err := storage.NewSQLiteStore(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewEngine(stubRouter{p: p}, store), store
}

func seedCustomer(t *testing.T, store storage.Store) uint {
	t.Helper()
	c := &models.Customer{Email: "test@example.com"}
	if err := store.CreateCustomer(c); err != nil {
		t.Fatalf("seedCustomer: %v", err)
	}
	return c.ID
}

func fullContact() *provider.Contact {
	return &provider.Contact{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Phone:      "+44.2071234567",
		Address1:   "12 Analytical Way",
		City:       "London",
		PostalCode: "EC1A 1AA",
		Country:    "GB",
	}
}

// TestRegister_Success verifies a confirmed registration creates exactly
// one active record with the policy defaults stamped on.
func TestRegister_Success(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return start })

	policy := config.ProductPolicy{AutoRenewDefault: true, WhoisPrivacyIncluded: true}
	domain, err := engine.Register(context.Background(), RegisterRequest{
		CustomerID: customerID,
		Domain:     "Example.COM",
		Years:      2,
	}, policy)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if domain.Name != "example.com" {
		t.Errorf("expected normalized name example.com, got %q", domain.Name)
	}
	if domain.Status != models.StatusActive {
		t.Errorf("expected status active, got %q", domain.Status)
	}
	if !domain.AutoRenew || !domain.WhoisPrivacy {
		t.Error("policy defaults not applied to new record")
	}
	if want := start.AddDate(2, 0, 0); !domain.ExpirationDate.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, domain.ExpirationDate)
	}

	stored, err := store.GetActiveDomainByName("example.com")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if stored.CustomerID != customerID {
		t.Errorf("expected customer %d, got %d", customerID, stored.CustomerID)
	}
}

// TestRegister_ProviderFailure verifies a provider rejection leaves no
// local record behind.
func TestRegister_ProviderFailure(t *testing.T) {
	p := &stubProvider{
		registerErr: &provider.BusinessError{Provider: provider.OpenSRS, Code: "485", Message: "domain taken"},
	}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	_, err := engine.Register(context.Background(), RegisterRequest{
		CustomerID: customerID,
		Domain:     "taken.com",
	}, config.ProductPolicy{})

	var bizErr *provider.BusinessError
	if !errors.As(err, &bizErr) {
		t.Fatalf("expected BusinessError, got: %v", err)
	}
	if register, _, _ := p.calls(); register != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", register)
	}
	if _, err := store.GetActiveDomainByName("taken.com"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("failed registration must not persist a record, got: %v", err)
	}
}

// TestRegister_MissingContact verifies contact validation happens before
// any provider call and reports every missing field at once.
func TestRegister_MissingContact(t *testing.T) {
	p := &stubProvider{requiresContact: true}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	_, err := engine.Register(context.Background(), RegisterRequest{
		CustomerID: customerID,
		Domain:     "example.com",
	}, config.ProductPolicy{})

	var missingErr *apperrors.MissingContactError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingContactError, got: %v", err)
	}
	if len(missingErr.Fields) != len(provider.RequiredContactFields) {
		t.Errorf("expected all %d fields reported, got %v",
			len(provider.RequiredContactFields), missingErr.Fields)
	}
	if register, _, _ := p.calls(); register != 0 {
		t.Errorf("validation must precede network calls, got %d calls", register)
	}
}

// TestRegister_DuplicateActive verifies a second registration for a name
// still occupied locally is rejected without a provider call.
func TestRegister_DuplicateActive(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	req := RegisterRequest{CustomerID: customerID, Domain: "example.com"}
	if _, err := engine.Register(context.Background(), req, config.ProductPolicy{}); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	_, err := engine.Register(context.Background(), req, config.ProductPolicy{})
	if !errors.Is(err, apperrors.ErrDomainExists) {
		t.Fatalf("expected ErrDomainExists, got: %v", err)
	}
	if register, _, _ := p.calls(); register != 1 {
		t.Errorf("duplicate must be rejected locally, got %d provider calls", register)
	}
}

// TestRegister_ReclaimsExpiredRecord verifies a name released by an
// expired record can be registered again: the provider confirms and the
// old row is reused in place instead of tripping the name's unique index.
func TestRegister_ReclaimsExpiredRecord(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	previousOwner := seedCustomer(t, store)

	expired := &models.Domain{
		Name:           "example.com",
		CustomerID:     previousOwner,
		Provider:       provider.OpenSRS,
		Status:         models.StatusExpired,
		AutoRenew:      true,
		ExpirationDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CreateDomain(expired); err != nil {
		t.Fatalf("seed expired domain: %v", err)
	}

	buyer := &models.Customer{Email: "buyer@example.com"}
	if err := store.CreateCustomer(buyer); err != nil {
		t.Fatalf("create buyer: %v", err)
	}

	domain, err := engine.Register(context.Background(), RegisterRequest{
		CustomerID: buyer.ID,
		Domain:     "example.com",
	}, config.ProductPolicy{})
	if err != nil {
		t.Fatalf("Register over expired record: %v", err)
	}
	if register, _, _ := p.calls(); register != 1 {
		t.Errorf("expected 1 provider call, got %d", register)
	}
	if domain.ID != expired.ID {
		t.Errorf("expected the expired row %d to be reclaimed, got new row %d", expired.ID, domain.ID)
	}
	if domain.Status != models.StatusActive || domain.CustomerID != buyer.ID {
		t.Errorf("reclaimed row not reset: status %q, customer %d", domain.Status, domain.CustomerID)
	}
	if domain.AutoRenew {
		t.Error("previous owner's auto-renew flag must not survive re-registration")
	}
}

// TestRegister_TLDNotAllowed verifies product policy restricts the TLD.
func TestRegister_TLDNotAllowed(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	_, err := engine.Register(context.Background(), RegisterRequest{
		CustomerID: customerID,
		Domain:     "example.io",
	}, config.ProductPolicy{AllowedTLDs: []string{"com", "net"}})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

// TestSetWhoisPrivacy_ProviderFailure verifies a failed provider call
// leaves the stored flag unchanged.
func TestSetWhoisPrivacy_ProviderFailure(t *testing.T) {
	p := &stubProvider{
		whoisErr: &provider.TransportError{Provider: provider.OpenSRS, Op: "MODIFY", Err: errors.New("timeout")},
	}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	domain := &models.Domain{Name: "example.com", CustomerID: customerID, Status: models.StatusActive, Provider: provider.OpenSRS}
	if err := store.CreateDomain(domain); err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	err := engine.SetWhoisPrivacy(context.Background(), customerID, domain.ID, true)
	if !provider.IsRetryable(err) {
		t.Fatalf("expected retryable transport error, got: %v", err)
	}

	stored, err := store.GetDomainByID(domain.ID)
	if err != nil {
		t.Fatalf("GetDomainByID: %v", err)
	}
	if stored.WhoisPrivacy {
		t.Error("failed provider call must not flip the stored flag")
	}
}

// TestSetAutoRenew_LocalOnly verifies the auto-renew toggle never talks to
// the provider.
func TestSetAutoRenew_LocalOnly(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	domain := &models.Domain{Name: "example.com", CustomerID: customerID, Status: models.StatusActive, Provider: provider.OpenSRS}
	if err := store.CreateDomain(domain); err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	if err := engine.SetAutoRenew(context.Background(), customerID, domain.ID, true); err != nil {
		t.Fatalf("SetAutoRenew: %v", err)
	}

	stored, _ := store.GetDomainByID(domain.ID)
	if !stored.AutoRenew {
		t.Error("auto-renew flag not persisted")
	}
	if register, whois, renew := p.calls(); register+whois+renew > 0 {
		t.Error("auto-renew toggle must not call the provider")
	}
}

// TestManagement_NotAuthorized verifies another customer cannot manage the
// domain.
func TestManagement_NotAuthorized(t *testing.T) {
	p := &stubProvider{}
	engine, store := setupEngine(t, p)
	owner := seedCustomer(t, store)

	other := &models.Customer{Email: "other@example.com"}
	if err := store.CreateCustomer(other); err != nil {
		t.Fatalf("create other customer: %v", err)
	}

	domain := &models.Domain{Name: "example.com", CustomerID: owner, Status: models.StatusActive, Provider: provider.OpenSRS}
	if err := store.CreateDomain(domain); err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	err := engine.SetLock(context.Background(), other.ID, domain.ID, true)
	if !errors.Is(err, apperrors.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got: %v", err)
	}
}

// TestRenew_ResurrectsExpired verifies a successful renewal returns an
// expired domain to active with the provider's expiry date.
func TestRenew_ResurrectsExpired(t *testing.T) {
	newExpiry := time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &stubProvider{renewExpiry: newExpiry}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	domain := &models.Domain{
		Name:           "example.com",
		CustomerID:     customerID,
		Status:         models.StatusExpired,
		Provider:       provider.OpenSRS,
		ExpirationDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CreateDomain(domain); err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	renewed, err := engine.Renew(context.Background(), domain.ID, 1)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if renewed.Status != models.StatusActive {
		t.Errorf("expected status active after renewal, got %q", renewed.Status)
	}
	if !renewed.ExpirationDate.Equal(newExpiry) {
		t.Errorf("expected expiry %s, got %s", newExpiry, renewed.ExpirationDate)
	}
}

// TestRenew_SingleFlight verifies a second renewal of the same domain is
// rejected while the first one is still running.
func TestRenew_SingleFlight(t *testing.T) {
	p := &stubProvider{
		renewStarted: make(chan struct{}),
		renewRelease: make(chan struct{}),
	}
	engine, store := setupEngine(t, p)
	customerID := seedCustomer(t, store)

	domain := &models.Domain{Name: "example.com", CustomerID: customerID, Status: models.StatusActive, Provider: provider.OpenSRS}
	if err := store.CreateDomain(domain); err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.Renew(context.Background(), domain.ID, 1)
		firstDone <- err
	}()

	<-p.renewStarted // first renewal is now inside the provider call

	_, err := engine.Renew(context.Background(), domain.ID, 1)
	if !errors.Is(err, apperrors.ErrRenewalInProgress) {
		t.Errorf("expected ErrRenewalInProgress for concurrent renewal, got: %v", err)
	}

	close(p.renewRelease)
	if err := <-firstDone; err != nil {
		t.Fatalf("first renewal failed: %v", err)
	}
	if _, _, renew := p.calls(); renew != 1 {
		t.Errorf("expected exactly 1 provider renewal, got %d", renew)
	}
}

// TestLookup_PricedFromCache verifies availability carries the cached
// price only when the TLD row is enabled.
func TestLookup_PricedFromCache(t *testing.T) {
	p := &stubProvider{available: true}
	engine, store := setupEngine(t, p)

	_, err := store.ReplacePricing([]models.TLDPrice{{
		TLD:          "com",
		Currency:     "USD",
		Registration: decimal.RequireFromString("10.87"),
		Renewal:      decimal.RequireFromString("12.99"),
		Enabled:      true,
		LastUpdated:  time.Now(),
	}})
	if err != nil {
		t.Fatalf("seed pricing: %v", err)
	}

	result, err := engine.Lookup(context.Background(), "example.com", config.ProductPolicy{})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !result.Available {
		t.Fatal("expected available")
	}
	if result.FormattedPrice != "10.87 USD/yr" {
		t.Errorf("FormattedPrice = %q, want %q", result.FormattedPrice, "10.87 USD/yr")
	}

	if err := store.SetTLDEnabled("com", false); err != nil {
		t.Fatalf("SetTLDEnabled: %v", err)
	}
	result, err = engine.Lookup(context.Background(), "example.com", config.ProductPolicy{})
	if err != nil {
		t.Fatalf("Lookup after disable: %v", err)
	}
	if result.FormattedPrice != "" || result.Currency != "" {
		t.Error("disabled TLD must not surface a price")
	}
}

// TestLookup_NormalizesIDN verifies internationalized names are converted
// to their punycode form before reaching the provider, and that names the
// IDNA tables reject never leave the engine.
func TestLookup_NormalizesIDN(t *testing.T) {
	p := &stubProvider{available: true}
	engine, _ := setupEngine(t, p)

	result, err := engine.Lookup(context.Background(), "Müller.DE", config.ProductPolicy{})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if result.Domain != "xn--mller-kva.de" {
		t.Errorf("Domain = %q, want %q", result.Domain, "xn--mller-kva.de")
	}

	for _, bad := range []string{"ex ample.com", "exa_mple.com", "-dash.com", ".com"} {
		if _, err := engine.Lookup(context.Background(), bad, config.ProductPolicy{}); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("Lookup(%q): expected validation error, got %v", bad, err)
		}
	}
}

// TestLookup_MultiLabelTLD verifies names under a multi-label public
// suffix resolve the whole suffix, so the co.uk price row matches and a
// policy scoped to co.uk admits the name.
func TestLookup_MultiLabelTLD(t *testing.T) {
	p := &stubProvider{available: true}
	engine, store := setupEngine(t, p)

	_, err := store.ReplacePricing([]models.TLDPrice{{
		TLD:          "co.uk",
		Currency:     "USD",
		Registration: decimal.RequireFromString("6.50"),
		Renewal:      decimal.RequireFromString("8.00"),
		Enabled:      true,
		LastUpdated:  time.Now(),
	}})
	if err != nil {
		t.Fatalf("seed pricing: %v", err)
	}

	policy := config.ProductPolicy{AllowedTLDs: []string{"co.uk"}}
	result, err := engine.Lookup(context.Background(), "shop.co.uk", policy)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if result.FormattedPrice != "6.50 USD/yr" {
		t.Errorf("FormattedPrice = %q, want %q", result.FormattedPrice, "6.50 USD/yr")
	}

	// The same policy must reject a bare .uk name.
	if _, err := engine.Lookup(context.Background(), "example.uk", policy); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for .uk under a co.uk policy, got %v", err)
	}
}
