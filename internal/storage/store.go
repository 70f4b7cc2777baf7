package storage

import (
	"time"

	"domainhub/internal/models"
)

// Store defines the interface for data persistence operations.
// This allows for easy testing with mock implementations and
// potential future support for different storage backends.
type Store interface {
	// Customer operations
	CreateCustomer(customer *models.Customer) error
	GetCustomerByID(id uint) (*models.Customer, error)

	// Token operations
	CreateToken(customerID uint) (string, error)
	ValidateToken(token string) (*models.Customer, error)

	// Domain operations
	CreateDomain(domain *models.Domain) error
	GetDomainByID(id uint) (*models.Domain, error)
	GetDomainByName(name string) (*models.Domain, error)
	GetActiveDomainByName(name string) (*models.Domain, error)
	ListCustomerDomains(customerID uint) ([]models.Domain, error)
	UpdateDomain(domain *models.Domain) error
	UpdateDomainStatus(id uint, status string) error

	// Scheduler queries
	ListDomainsForExpirySync() ([]models.Domain, error)
	ListAutoRenewDue(before time.Time) ([]models.Domain, error)

	// Pricing operations
	ReplacePricing(entries []models.TLDPrice) (int, error)
	GetTLDPrice(tld, currency string) (*models.TLDPrice, error)
	ListPricing(onlyEnabled bool) ([]models.TLDPrice, error)
	SetTLDEnabled(tld string, enabled bool) error

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
