package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/models"
)

// SQLiteStore is the gorm-backed Store implementation.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Token{},
		&models.Domain{},
		&models.TLDPrice{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps driver-level unique violations to the sentinel so
// callers can branch with errors.Is.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicateKey, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}

// --- Customers & tokens ---

func (s *SQLiteStore) CreateCustomer(customer *models.Customer) error {
	return translateError(s.db.Create(customer).Error)
}

func (s *SQLiteStore) GetCustomerByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.First(&customer, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

// CreateToken issues a new API token for the customer and returns the
// plaintext exactly once; only the SHA256 hash is persisted.
func (s *SQLiteStore) CreateToken(customerID uint) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := "dh_" + hex.EncodeToString(raw)
	record := models.Token{TokenHash: hashToken(token), CustomerID: customerID}
	if err := s.db.Create(&record).Error; err != nil {
		return "", translateError(err)
	}
	return token, nil
}

func (s *SQLiteStore) ValidateToken(token string) (*models.Customer, error) {
	var record models.Token
	err := s.db.Preload("Customer").Where("token_hash = ?", hashToken(token)).First(&record).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &record.Customer, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// --- Domains ---

func (s *SQLiteStore) CreateDomain(domain *models.Domain) error {
	return translateError(s.db.Create(domain).Error)
}

func (s *SQLiteStore) GetDomainByID(id uint) (*models.Domain, error) {
	var domain models.Domain
	if err := s.db.First(&domain, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &domain, nil
}

// GetDomainByName returns the record for the name regardless of status.
// At most one row exists per name; an expired row is reclaimed in place on
// re-registration rather than shadowed by a second one.
func (s *SQLiteStore) GetDomainByName(name string) (*models.Domain, error) {
	var domain models.Domain
	if err := s.db.Where("name = ?", name).First(&domain).Error; err != nil {
		return nil, translateError(err)
	}
	return &domain, nil
}

// GetActiveDomainByName finds a record for the name that still occupies
// the domain (anything not expired/failed). Used to reject duplicate
// registrations locally before a provider call is placed.
func (s *SQLiteStore) GetActiveDomainByName(name string) (*models.Domain, error) {
	var domain models.Domain
	err := s.db.
		Where("name = ? AND status NOT IN ?", name, []string{models.StatusExpired, models.StatusFailed}).
		First(&domain).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &domain, nil
}

func (s *SQLiteStore) ListCustomerDomains(customerID uint) ([]models.Domain, error) {
	var domains []models.Domain
	err := s.db.Where("customer_id = ?", customerID).Order("created_at DESC").Find(&domains).Error
	return domains, translateError(err)
}

func (s *SQLiteStore) UpdateDomain(domain *models.Domain) error {
	return translateError(s.db.Save(domain).Error)
}

func (s *SQLiteStore) UpdateDomainStatus(id uint, status string) error {
	return translateError(
		s.db.Model(&models.Domain{}).Where("id = ?", id).Update("status", status).Error,
	)
}

// ListDomainsForExpirySync returns active and expiring domains ordered by
// soonest expiration, the iteration order of the reconciliation pass.
func (s *SQLiteStore) ListDomainsForExpirySync() ([]models.Domain, error) {
	var domains []models.Domain
	err := s.db.
		Where("status IN ?", []string{models.StatusActive, models.StatusExpiring}).
		Order("expiration_date ASC").
		Find(&domains).Error
	return domains, translateError(err)
}

// ListAutoRenewDue returns auto-renew domains expiring on or before the
// cutoff. Expired domains are included: a renewal within the provider's
// grace window can still resurrect them.
func (s *SQLiteStore) ListAutoRenewDue(before time.Time) ([]models.Domain, error) {
	var domains []models.Domain
	err := s.db.
		Where("auto_renew = ? AND expiration_date <= ? AND status IN ?",
			true, before,
			[]string{models.StatusActive, models.StatusExpiring, models.StatusExpired}).
		Order("expiration_date ASC").
		Find(&domains).Error
	return domains, translateError(err)
}

// --- Pricing ---

// ReplacePricing bulk-upserts the pricing cache inside one transaction.
// Existing rows keep their enabled flag (disabling a TLD is an explicit
// admin action, never an import side-effect); rows absent from the batch
// are left untouched. Any failure rolls the whole batch back.
func (s *SQLiteStore) ReplacePricing(entries []models.TLDPrice) (int, error) {
	count := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			entry := entries[i]
			if entry.TLD == "" || entry.Currency == "" {
				return fmt.Errorf("pricing entry %d: missing tld or currency", i)
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "tld"}, {Name: "currency"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"registration", "renewal", "transfer", "whois_privacy", "last_updated",
				}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (s *SQLiteStore) GetTLDPrice(tld, currency string) (*models.TLDPrice, error) {
	var price models.TLDPrice
	err := s.db.Where("tld = ? AND currency = ?", tld, currency).First(&price).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &price, nil
}

func (s *SQLiteStore) ListPricing(onlyEnabled bool) ([]models.TLDPrice, error) {
	var prices []models.TLDPrice
	q := s.db.Order("tld ASC")
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}
	err := q.Find(&prices).Error
	return prices, translateError(err)
}

func (s *SQLiteStore) SetTLDEnabled(tld string, enabled bool) error {
	result := s.db.Model(&models.TLDPrice{}).Where("tld = ?", tld).Update("enabled", enabled)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
