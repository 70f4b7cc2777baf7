package provider

// Config is one provider's credential set and mode, read from the live
// settings source each time an adapter is constructed so credential
// changes apply on the next call without a restart.
type Config struct {
	Name    string
	Enabled bool
	Sandbox bool

	// OpenSRS reseller credentials.
	Username string
	APIKey   string

	// NameCheap credentials. APIKey is shared with the field above.
	APIUser  string
	ClientIP string
}

// Router is the resolution facade consumed by the lifecycle engine, the
// pricing importer and the scheduler. Implemented by the router subpackage;
// tests substitute stub implementations.
type Router interface {
	Route(name string) (Provider, error)
	AnyEnabled() bool
}

// SettingsSource supplies current provider settings to the router.
type SettingsSource interface {
	// Provider returns the settings for one provider by name.
	Provider(name string) (Config, bool)

	// DefaultProvider returns the name of the global default provider,
	// or "" when none is configured.
	DefaultProvider() string

	// EnabledProviders lists the names of all enabled providers.
	EnabledProviders() []string
}
