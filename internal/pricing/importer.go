// Package pricing populates and refreshes the local TLD pricing cache
// from a provider's price list.
package pricing

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
	"domainhub/internal/provider"
	"domainhub/internal/storage"
)

// ImportResult summarizes one completed import.
type ImportResult struct {
	Provider  string
	Count     int
	Timestamp time.Time
}

// Importer fetches provider pricing and bulk-replaces the cache. At most
// one import per provider runs at a time; an overlapping request is
// rejected with ErrImportInProgress, not queued.
type Importer struct {
	router provider.Router
	store  storage.Store

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewImporter(router provider.Router, store storage.Store) *Importer {
	return &Importer{
		router:   router,
		store:    store,
		inFlight: make(map[string]bool),
	}
}

// Import fetches the full TLD price list from the named provider (or the
// default when empty) and upserts it into the cache in one transaction.
func (i *Importer) Import(ctx context.Context, providerName string) (ImportResult, error) {
	p, err := i.router.Route(providerName)
	if err != nil {
		return ImportResult{}, err
	}

	if !i.acquire(p.Name()) {
		return ImportResult{}, fmt.Errorf("provider %q: %w", p.Name(), apperrors.ErrImportInProgress)
	}
	defer i.release(p.Name())

	pricing, err := p.GetPricing(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	entries := make([]models.TLDPrice, 0, len(pricing))
	now := time.Now()
	for tld, set := range pricing {
		tld = normalizeTLD(tld)
		if tld == "" {
			continue
		}
		currency := set.Currency
		if currency == "" {
			currency = "USD"
		}
		entries = append(entries, models.TLDPrice{
			TLD:          tld,
			Currency:     currency,
			Registration: set.Registration,
			Renewal:      set.Renewal,
			Transfer:     set.Transfer,
			WhoisPrivacy: set.WhoisPrivacy,
			Enabled:      true,
			LastUpdated:  now,
		})
	}

	count, err := i.store.ReplacePricing(entries)
	if err != nil {
		return ImportResult{}, fmt.Errorf("store pricing: %w", err)
	}

	log.Printf("pricing: imported %d TLDs from %s", count, p.Name())
	return ImportResult{Provider: p.Name(), Count: count, Timestamp: now}, nil
}

// Refresh re-runs the import with identical mechanics. It exists as a
// separate entry point for the periodic job and the admin refresh action.
func (i *Importer) Refresh(ctx context.Context, providerName string) (ImportResult, error) {
	return i.Import(ctx, providerName)
}

func (i *Importer) acquire(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.inFlight[name] {
		return false
	}
	i.inFlight[name] = true
	return true
}

func (i *Importer) release(name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.inFlight, name)
}

// normalizeTLD lowercases and strips a leading dot, the cache's key form.
func normalizeTLD(tld string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
}
