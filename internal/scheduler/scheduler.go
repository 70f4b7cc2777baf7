// Package scheduler runs the periodic reconciliation jobs: expiry sync
// against provider truth, auto-renewal of domains approaching expiry, and
// an optional pricing refresh.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/lifecycle"
	"domainhub/internal/models"
	"domainhub/internal/notify"
	"domainhub/internal/pricing"
	"domainhub/internal/provider"
	"domainhub/internal/storage"
)

// WhoisFunc performs a raw WHOIS query. Used as a fallback when the
// provider's domain-info call fails during expiry sync.
type WhoisFunc func(domain string) (string, error)

type Options struct {
	ExpirySyncInterval     time.Duration
	AutoRenewInterval      time.Duration
	PricingRefreshInterval time.Duration // 0 disables the refresh job

	ExpiringThresholdDays  int
	AutoRenewThresholdDays int
}

type Scheduler struct {
	store    storage.Store
	router   provider.Router
	engine   *lifecycle.Engine
	importer *pricing.Importer
	notifier notify.Notifier
	whois    WhoisFunc
	opts     Options
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
}

func New(store storage.Store, router provider.Router, engine *lifecycle.Engine, importer *pricing.Importer, notifier notify.Notifier, whois WhoisFunc, opts Options) *Scheduler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if opts.ExpiringThresholdDays <= 0 {
		opts.ExpiringThresholdDays = 45
	}
	if opts.AutoRenewThresholdDays <= 0 {
		opts.AutoRenewThresholdDays = 30
	}
	return &Scheduler{
		store:    store,
		router:   router,
		engine:   engine,
		importer: importer,
		notifier: notifier,
		whois:    whois,
		opts:     opts,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetClock overrides the scheduler's time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Start launches the periodic jobs. Each tick runs all due jobs in one
// goroutine; the jobs are idempotent and safe to run more often than
// strictly needed.
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	expiryTicker := time.NewTicker(s.opts.ExpirySyncInterval)
	defer expiryTicker.Stop()
	renewTicker := time.NewTicker(s.opts.AutoRenewInterval)
	defer renewTicker.Stop()

	var pricingCh <-chan time.Time
	if s.opts.PricingRefreshInterval > 0 {
		pricingTicker := time.NewTicker(s.opts.PricingRefreshInterval)
		defer pricingTicker.Stop()
		pricingCh = pricingTicker.C
	}

	log.Printf("scheduler: started (expiry sync every %s, auto-renew every %s)",
		s.opts.ExpirySyncInterval, s.opts.AutoRenewInterval)

	for {
		select {
		case <-s.stop:
			log.Println("scheduler: stopped")
			return
		case <-expiryTicker.C:
			s.RunExpirySync(context.Background())
		case <-renewTicker.C:
			s.RunAutoRenew(context.Background())
		case <-pricingCh:
			s.RunPricingRefresh(context.Background())
		}
	}
}

// RunExpirySync reconciles stored expiration dates and statuses against
// provider truth, one domain at a time. A single domain's failure never
// aborts the pass. Returns the number of domains updated and failed.
func (s *Scheduler) RunExpirySync(ctx context.Context) (updated, failed int) {
	if !s.router.AnyEnabled() {
		return 0, 0
	}
	domains, err := s.store.ListDomainsForExpirySync()
	if err != nil {
		log.Printf("scheduler: expiry sync: list domains: %v", err)
		return 0, 0
	}

	now := s.now()
	for i := range domains {
		domain := &domains[i]

		expiry, err := s.providerExpiry(ctx, domain)
		if err != nil {
			log.Printf("scheduler: expiry sync: %s: %v", domain.Name, err)
			failed++
			continue
		}

		changed := false
		if !expiry.IsZero() && !expiry.Equal(domain.ExpirationDate) {
			domain.ExpirationDate = expiry
			changed = true
		}

		if next := s.nextStatus(domain, now); next != domain.Status {
			if next == models.StatusExpiring && !domain.AutoRenew {
				s.notifier.DomainExpiring(domain.Name, domain.DaysUntilExpiry(now))
			}
			domain.Status = next
			changed = true
		}

		if !changed {
			continue
		}
		if err := s.store.UpdateDomain(domain); err != nil {
			log.Printf("scheduler: expiry sync: persist %s: %v", domain.Name, err)
			failed++
			continue
		}
		updated++
	}

	log.Printf("scheduler: expiry sync finished (%d updated, %d failed of %d)", updated, failed, len(domains))
	return updated, failed
}

// providerExpiry fetches the provider-side expiration date, falling back
// to a raw WHOIS query when the provider call fails.
func (s *Scheduler) providerExpiry(ctx context.Context, domain *models.Domain) (time.Time, error) {
	p, err := s.router.Route(domain.Provider)
	if err != nil {
		return time.Time{}, err
	}
	info, err := p.GetDomainInfo(ctx, domain.Name)
	if err == nil {
		return info.ExpirationDate, nil
	}
	if s.whois == nil {
		return time.Time{}, err
	}
	raw, werr := s.whois(domain.Name)
	if werr != nil {
		return time.Time{}, err
	}
	expiry, ok := extractWhoisExpiry(raw)
	if !ok {
		return time.Time{}, err
	}
	log.Printf("scheduler: expiry sync: %s: provider lookup failed (%v), using whois expiry %s",
		domain.Name, err, expiry.Format("2006-01-02"))
	return expiry, nil
}

// nextStatus applies the state machine's scheduler-driven transitions:
// active -> expiring when the threshold is crossed, -> expired once the
// date passes, and back to active when a renewal pushed the date out.
func (s *Scheduler) nextStatus(domain *models.Domain, now time.Time) string {
	switch domain.Status {
	case models.StatusActive, models.StatusExpiring:
		if domain.ExpirationDate.Before(now) {
			return models.StatusExpired
		}
		if domain.DaysUntilExpiry(now) <= s.opts.ExpiringThresholdDays {
			return models.StatusExpiring
		}
		return models.StatusActive
	default:
		// pending/expired/failed are not the scheduler's to change;
		// expired exits only through a successful renewal.
		return domain.Status
	}
}

// RunAutoRenew renews auto-renew domains whose remaining time is below the
// threshold. Failures are logged and retried naturally on the next pass.
func (s *Scheduler) RunAutoRenew(ctx context.Context) (renewed, failed int) {
	if !s.router.AnyEnabled() {
		return 0, 0
	}
	cutoff := s.now().AddDate(0, 0, s.opts.AutoRenewThresholdDays)
	domains, err := s.store.ListAutoRenewDue(cutoff)
	if err != nil {
		log.Printf("scheduler: auto-renew: list domains: %v", err)
		return 0, 0
	}

	for i := range domains {
		domain := &domains[i]
		years := domain.Period
		if years < 1 {
			years = 1
		}
		if _, err := s.engine.Renew(ctx, domain.ID, years); err != nil {
			if errors.Is(err, apperrors.ErrRenewalInProgress) {
				// A manual renewal is racing us; it wins.
				continue
			}
			log.Printf("scheduler: auto-renew: %s: %v", domain.Name, err)
			s.notifier.RenewalFailed(domain.Name, err)
			failed++
			continue
		}
		renewed++
	}

	if len(domains) > 0 {
		log.Printf("scheduler: auto-renew finished (%d renewed, %d failed of %d)", renewed, failed, len(domains))
	}
	return renewed, failed
}

// RunPricingRefresh refreshes the pricing cache from the default provider.
func (s *Scheduler) RunPricingRefresh(ctx context.Context) {
	if !s.router.AnyEnabled() || s.importer == nil {
		return
	}
	if _, err := s.importer.Refresh(ctx, ""); err != nil && !errors.Is(err, apperrors.ErrImportInProgress) {
		log.Printf("scheduler: pricing refresh: %v", err)
	}
}
