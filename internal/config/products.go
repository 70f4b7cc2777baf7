package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProductPolicy is the per-product configuration consumed from the
// storefront's product layer: which provider registers the domain, which
// TLDs the product may sell, and the default flags stamped onto new
// registrations.
type ProductPolicy struct {
	Provider             string   `yaml:"provider"`
	AllowedTLDs          []string `yaml:"allowed_tlds"`
	PricingModel         string   `yaml:"pricing_model"` // "dynamic" or "included"
	AutoRenewDefault     bool     `yaml:"auto_renew_default"`
	WhoisPrivacyIncluded bool     `yaml:"whois_privacy_included"`
}

// AllowsTLD reports whether the policy permits the TLD. An empty allowed
// list permits any TLD the pricing cache knows about.
func (p ProductPolicy) AllowsTLD(tld string) bool {
	if len(p.AllowedTLDs) == 0 {
		return true
	}
	tld = strings.ToLower(strings.TrimPrefix(tld, "."))
	for _, allowed := range p.AllowedTLDs {
		if strings.ToLower(strings.TrimPrefix(allowed, ".")) == tld {
			return true
		}
	}
	return false
}

// Catalog maps product identifiers to their policies.
type Catalog struct {
	Products map[string]ProductPolicy `yaml:"products"`
}

// LoadCatalog reads the product catalog file. A missing file yields an
// empty catalog, which makes every checkout call fail with an unknown
// product error rather than crashing startup.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{Products: map[string]ProductPolicy{}}, nil
		}
		return nil, fmt.Errorf("read product catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse product catalog: %w", err)
	}
	if catalog.Products == nil {
		catalog.Products = map[string]ProductPolicy{}
	}
	return &catalog, nil
}

// Policy looks up the policy for a product.
func (c *Catalog) Policy(productID string) (ProductPolicy, bool) {
	policy, ok := c.Products[productID]
	return policy, ok
}
