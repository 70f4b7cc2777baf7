package storage

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
)

// setupTestStore creates a SQLite store backed by a temp file.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "domainhub-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	store, err := NewSQLiteStore(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestCustomer(t *testing.T, store *SQLiteStore) uint {
	t.Helper()
	c := &models.Customer{Email: "test@example.com"}
	if err := store.CreateCustomer(c); err != nil {
		t.Fatalf("createTestCustomer: %v", err)
	}
	return c.ID
}

// TestCreateDomain_UniqueConstraint verifies that inserting a domain with
// the same name twice returns ErrDuplicateKey instead of a raw SQLite error.
func TestCreateDomain_UniqueConstraint(t *testing.T) {
	store := setupTestStore(t)
	customerID := createTestCustomer(t, store)

	first := &models.Domain{Name: "example.com", CustomerID: customerID, Status: models.StatusActive}
	if err := store.CreateDomain(first); err != nil {
		t.Fatalf("first CreateDomain failed unexpectedly: %v", err)
	}

	duplicate := &models.Domain{Name: "example.com", CustomerID: customerID, Status: models.StatusActive}
	err := store.CreateDomain(duplicate)
	if err == nil {
		t.Fatal("expected error for duplicate domain name, got nil")
	}
	if !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got: %v", err)
	}
}

// TestGetActiveDomainByName verifies that only records still occupying the
// name are returned: an expired record does not block the lookup.
func TestGetActiveDomainByName(t *testing.T) {
	store := setupTestStore(t)
	customerID := createTestCustomer(t, store)

	active := &models.Domain{Name: "active.com", CustomerID: customerID, Status: models.StatusActive}
	expired := &models.Domain{Name: "expired.com", CustomerID: customerID, Status: models.StatusExpired}
	for _, d := range []*models.Domain{active, expired} {
		if err := store.CreateDomain(d); err != nil {
			t.Fatalf("CreateDomain(%s): %v", d.Name, err)
		}
	}

	got, err := store.GetActiveDomainByName("active.com")
	if err != nil {
		t.Fatalf("GetActiveDomainByName(active.com): %v", err)
	}
	if got.ID != active.ID {
		t.Errorf("expected domain %d, got %d", active.ID, got.ID)
	}

	if _, err := store.GetActiveDomainByName("expired.com"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired record, got: %v", err)
	}
}

// TestTokenRoundTrip verifies a created token validates back to its
// customer and an unknown token is rejected.
func TestTokenRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	customerID := createTestCustomer(t, store)

	token, err := store.CreateToken(customerID)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	customer, err := store.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if customer.ID != customerID {
		t.Errorf("expected customer %d, got %d", customerID, customer.ID)
	}

	if _, err := store.ValidateToken("dh_bogus"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown token, got: %v", err)
	}
}

func price(tld, registration string, enabled bool) models.TLDPrice {
	return models.TLDPrice{
		TLD:          tld,
		Currency:     "USD",
		Registration: decimal.RequireFromString(registration),
		Renewal:      decimal.RequireFromString(registration),
		Enabled:      enabled,
		LastUpdated:  time.Now(),
	}
}

// TestReplacePricing_UpsertPreservesEnabled verifies that a re-import
// updates prices but never re-enables a TLD an admin disabled.
func TestReplacePricing_UpsertPreservesEnabled(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.ReplacePricing([]models.TLDPrice{price("com", "10.00", true)}); err != nil {
		t.Fatalf("initial import: %v", err)
	}
	if err := store.SetTLDEnabled("com", false); err != nil {
		t.Fatalf("SetTLDEnabled: %v", err)
	}

	count, err := store.ReplacePricing([]models.TLDPrice{price("com", "12.50", true)})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	got, err := store.GetTLDPrice("com", "USD")
	if err != nil {
		t.Fatalf("GetTLDPrice: %v", err)
	}
	if !got.Registration.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("expected registration 12.50, got %s", got.Registration)
	}
	if got.Enabled {
		t.Error("re-import must not re-enable a disabled TLD")
	}
}

// TestReplacePricing_RollbackOnInvalidEntry verifies all-or-nothing
// semantics: one bad entry rolls back the entire batch.
func TestReplacePricing_RollbackOnInvalidEntry(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.ReplacePricing([]models.TLDPrice{price("com", "10.00", true)}); err != nil {
		t.Fatalf("seed import: %v", err)
	}

	_, err := store.ReplacePricing([]models.TLDPrice{
		price("com", "99.99", true),
		price("", "1.00", true), // invalid: no TLD
	})
	if err == nil {
		t.Fatal("expected error for invalid entry, got nil")
	}

	got, err := store.GetTLDPrice("com", "USD")
	if err != nil {
		t.Fatalf("GetTLDPrice: %v", err)
	}
	if !got.Registration.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("failed batch must leave previous snapshot intact; got %s", got.Registration)
	}
}

// TestSetTLDEnabled_Unknown verifies toggling a TLD with no cached row
// reports not found rather than silently affecting zero rows.
func TestSetTLDEnabled_Unknown(t *testing.T) {
	store := setupTestStore(t)
	if err := store.SetTLDEnabled("zz", true); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// TestListAutoRenewDue verifies the cutoff query: only auto-renew domains
// expiring on or before the cutoff are returned, expired ones included.
func TestListAutoRenewDue(t *testing.T) {
	store := setupTestStore(t)
	customerID := createTestCustomer(t, store)
	now := time.Now()

	domains := []*models.Domain{
		{Name: "due.com", CustomerID: customerID, Status: models.StatusExpiring, AutoRenew: true, ExpirationDate: now.AddDate(0, 0, 10)},
		{Name: "graceperiod.com", CustomerID: customerID, Status: models.StatusExpired, AutoRenew: true, ExpirationDate: now.AddDate(0, 0, -5)},
		{Name: "notdue.com", CustomerID: customerID, Status: models.StatusActive, AutoRenew: true, ExpirationDate: now.AddDate(1, 0, 0)},
		{Name: "manual.com", CustomerID: customerID, Status: models.StatusExpiring, AutoRenew: false, ExpirationDate: now.AddDate(0, 0, 10)},
	}
	for _, d := range domains {
		if err := store.CreateDomain(d); err != nil {
			t.Fatalf("CreateDomain(%s): %v", d.Name, err)
		}
	}

	due, err := store.ListAutoRenewDue(now.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("ListAutoRenewDue: %v", err)
	}
	names := make(map[string]bool)
	for _, d := range due {
		names[d.Name] = true
	}
	if len(due) != 2 || !names["due.com"] || !names["graceperiod.com"] {
		t.Errorf("expected [due.com graceperiod.com], got %v", names)
	}
}
