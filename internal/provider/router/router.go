// Package router resolves a provider name (from a product policy or the
// global default) to a concrete registrar adapter.
package router

import (
	"fmt"

	apperrors "domainhub/internal/errors"
	"domainhub/internal/provider"
	"domainhub/internal/provider/namecheap"
	"domainhub/internal/provider/opensrs"
)

// Router builds adapters on demand from the live settings source. It never
// branches on provider identity beyond this initial resolution; everything
// downstream goes through the capability interface.
type Router struct {
	settings provider.SettingsSource
}

func New(settings provider.SettingsSource) *Router {
	return &Router{settings: settings}
}

var _ provider.Router = (*Router)(nil)

// Route returns an adapter for the named provider. An empty name resolves
// to the global default. Adapters are constructed fresh per call so that a
// credential update takes effect on the next request.
func (r *Router) Route(name string) (provider.Provider, error) {
	if name == "" {
		name = r.settings.DefaultProvider()
	}
	if name == "" {
		return nil, apperrors.ErrNoProviderConfigured
	}
	cfg, ok := r.settings.Provider(name)
	if !ok || !cfg.Enabled {
		return nil, fmt.Errorf("provider %q: %w", name, apperrors.ErrNoProviderConfigured)
	}

	switch name {
	case provider.OpenSRS:
		return opensrs.New(opensrs.Options{
			Username: cfg.Username,
			APIKey:   cfg.APIKey,
			Sandbox:  cfg.Sandbox,
		})
	case provider.NameCheap:
		return namecheap.New(namecheap.Options{
			APIUser:  cfg.APIUser,
			APIKey:   cfg.APIKey,
			Username: cfg.Username,
			ClientIP: cfg.ClientIP,
			Sandbox:  cfg.Sandbox,
		})
	default:
		return nil, fmt.Errorf("provider %q: %w", name, apperrors.ErrNoProviderConfigured)
	}
}

// AnyEnabled reports whether at least one provider is enabled. Scheduler
// jobs skip entirely when this is false.
func (r *Router) AnyEnabled() bool {
	return len(r.settings.EnabledProviders()) > 0
}
