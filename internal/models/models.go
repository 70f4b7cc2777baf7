package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Customer struct {
	gorm.Model
	Email     string `gorm:"uniqueIndex"`
	FirstName string
	LastName  string
}

type Token struct {
	gorm.Model
	TokenHash  string `gorm:"uniqueIndex"` // SHA256 hash of the token
	CustomerID uint
	Customer   Customer
}

// Domain statuses. A domain is never hard-deleted: expiration is a status,
// not a removal.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
	StatusFailed   = "failed"
)

// Domain is the locally persisted mirror of a registered domain. The
// provider column is immutable once set: a domain never silently migrates
// to another registrar.
type Domain struct {
	gorm.Model
	Name             string `gorm:"uniqueIndex"`
	CustomerID       uint
	Customer         Customer
	Provider         string
	Status           string `gorm:"default:pending"`
	RegistrationDate time.Time
	ExpirationDate   time.Time
	Period           int // years of the last registration/renewal
	AutoRenew        bool
	WhoisPrivacy     bool
	DomainLock       bool
	Nameservers      string // JSON array, 1-4 entries
}

// NameserverList decodes the stored nameserver JSON. An empty or invalid
// value yields an empty slice.
func (d *Domain) NameserverList() []string {
	if d.Nameservers == "" {
		return nil
	}
	var ns []string
	if err := json.Unmarshal([]byte(d.Nameservers), &ns); err != nil {
		return nil
	}
	return ns
}

// SetNameservers encodes the nameserver list as JSON for storage.
func (d *Domain) SetNameservers(ns []string) {
	b, err := json.Marshal(ns)
	if err != nil {
		return
	}
	d.Nameservers = string(b)
}

// DaysUntilExpiry returns whole days remaining until the expiration date,
// negative when the domain is past expiry.
func (d *Domain) DaysUntilExpiry(now time.Time) int {
	return int(d.ExpirationDate.Sub(now).Hours() / 24)
}

// TLDPrice is one row of the local pricing cache: exactly one row per
// (TLD, currency) tuple, last-write-wins on refresh. The enabled flag is
// an admin toggle, never touched by imports of existing rows.
type TLDPrice struct {
	gorm.Model
	TLD          string          `gorm:"uniqueIndex:idx_tld_currency"`
	Currency     string          `gorm:"uniqueIndex:idx_tld_currency"`
	Registration decimal.Decimal `gorm:"type:numeric"`
	Renewal      decimal.Decimal `gorm:"type:numeric"`
	Transfer     decimal.Decimal `gorm:"type:numeric"`
	WhoisPrivacy decimal.Decimal `gorm:"type:numeric"`
	Enabled      bool
	LastUpdated  time.Time
}
