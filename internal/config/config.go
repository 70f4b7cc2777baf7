// Package config reads service settings from the environment (loaded from
// .env by the server entrypoint) and product policies from a YAML catalog.
package config

import (
	"os"
	"strconv"
	"time"

	"domainhub/internal/provider"
)

// Config holds the static service settings read once at startup. Provider
// credentials are deliberately NOT part of this snapshot: the settings
// source below reads them from the environment at adapter-resolution time
// so a credential change applies on the next call.
type Config struct {
	DatabasePath string
	ListenAddr   string

	// DomainName enables autocert HTTPS when set; empty means plain HTTP.
	DomainName string
	Email      string

	AdminToken string
	SentryDSN  string

	ProductsPath string

	ExpiringThresholdDays  int
	AutoRenewThresholdDays int

	ExpirySyncInterval     time.Duration
	AutoRenewInterval      time.Duration
	PricingRefreshInterval time.Duration // 0 disables the refresh job

	TelegramToken  string
	TelegramChatID int64
}

func Load() *Config {
	return &Config{
		DatabasePath: envOr("DATABASE_PATH", "domainhub.db"),
		ListenAddr:   envOr("LISTEN_ADDR", ":8080"),
		DomainName:   os.Getenv("DOMAIN_NAME"),
		Email:        os.Getenv("EMAIL"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		ProductsPath: envOr("PRODUCTS_PATH", "products.yaml"),

		ExpiringThresholdDays:  envInt("EXPIRING_THRESHOLD_DAYS", 45),
		AutoRenewThresholdDays: envInt("AUTO_RENEW_THRESHOLD_DAYS", 30),

		ExpirySyncInterval:     envDuration("EXPIRY_SYNC_INTERVAL", 12*time.Hour),
		AutoRenewInterval:      envDuration("AUTO_RENEW_INTERVAL", 6*time.Hour),
		PricingRefreshInterval: envDuration("PRICING_REFRESH_INTERVAL", 24*time.Hour),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: int64(envInt("TELEGRAM_CHAT_ID", 0)),
	}
}

// EnvSettings implements provider.SettingsSource on top of the process
// environment. Every lookup re-reads the variables, which is what makes a
// credential update effective without a restart.
type EnvSettings struct{}

var _ provider.SettingsSource = EnvSettings{}

func (EnvSettings) Provider(name string) (provider.Config, bool) {
	switch name {
	case provider.OpenSRS:
		return provider.Config{
			Name:     provider.OpenSRS,
			Enabled:  envBool("OPENSRS_ENABLED"),
			Sandbox:  envOr("OPENSRS_MODE", "sandbox") != "live",
			Username: os.Getenv("OPENSRS_USERNAME"),
			APIKey:   os.Getenv("OPENSRS_API_KEY"),
		}, true
	case provider.NameCheap:
		return provider.Config{
			Name:     provider.NameCheap,
			Enabled:  envBool("NAMECHEAP_ENABLED"),
			Sandbox:  envOr("NAMECHEAP_MODE", "sandbox") != "live",
			Username: os.Getenv("NAMECHEAP_USERNAME"),
			APIUser:  os.Getenv("NAMECHEAP_API_USER"),
			APIKey:   os.Getenv("NAMECHEAP_API_KEY"),
			ClientIP: os.Getenv("NAMECHEAP_CLIENT_IP"),
		}, true
	default:
		return provider.Config{}, false
	}
}

func (EnvSettings) DefaultProvider() string {
	return envOr("DEFAULT_PROVIDER", provider.OpenSRS)
}

func (e EnvSettings) EnabledProviders() []string {
	var enabled []string
	for _, name := range []string{provider.OpenSRS, provider.NameCheap} {
		if cfg, ok := e.Provider(name); ok && cfg.Enabled {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
