// Package api holds the wire types shared by the HTTP server and the
// domainctl admin CLI.
package api

// Envelope is the uniform response wrapper. Data is present on success;
// ErrorCode and ErrorMessage on failure. ErrorCode distinguishes transport
// failures (retryable) from provider business errors and local validation.
type Envelope struct {
	OK           bool   `json:"ok"`
	Data         any    `json:"data,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Error codes used in Envelope.ErrorCode.
const (
	CodeTransport    = "transport_error"
	CodeProvider     = "provider_error"
	CodeValidation   = "validation_error"
	CodeConcurrency  = "operation_in_progress"
	CodeConsistency  = "consistency_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal_error"
)

type LookupRequest struct {
	Domain    string `json:"domain"`
	ProductID string `json:"product_id"`
}

type LookupResponse struct {
	Domain         string `json:"domain"`
	Available      bool   `json:"available"`
	Premium        bool   `json:"premium,omitempty"`
	Price          string `json:"price,omitempty"`
	RenewalPrice   string `json:"renewal_price,omitempty"`
	Currency       string `json:"currency,omitempty"`
	FormattedPrice string `json:"formatted_price,omitempty"`
}

type Contact struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city"`
	StateProvince string `json:"state_province,omitempty"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

type RegisterRequest struct {
	Domain      string   `json:"domain"`
	ProductID   string   `json:"product_id"`
	CustomerID  uint     `json:"customer_id"`
	Years       int      `json:"years"`
	Contact     *Contact `json:"contact,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
}

type DomainResponse struct {
	ID               uint     `json:"id"`
	Name             string   `json:"name"`
	Provider         string   `json:"provider"`
	Status           string   `json:"status"`
	RegistrationDate string   `json:"registration_date"`
	ExpirationDate   string   `json:"expiration_date"`
	AutoRenew        bool     `json:"auto_renew"`
	WhoisPrivacy     bool     `json:"whois_privacy"`
	DomainLock       bool     `json:"domain_lock"`
	Nameservers      []string `json:"nameservers,omitempty"`
}

type NameserversRequest struct {
	Nameservers []string `json:"nameservers"`
}

type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type RenewRequest struct {
	Years int `json:"years"`
}

type ImportResponse struct {
	Provider  string `json:"provider"`
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

type PricingEntry struct {
	TLD          string `json:"tld"`
	Currency     string `json:"currency"`
	Registration string `json:"registration"`
	Renewal      string `json:"renewal"`
	Transfer     string `json:"transfer"`
	WhoisPrivacy string `json:"whois_privacy"`
	Enabled      bool   `json:"enabled"`
	LastUpdated  string `json:"last_updated"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
