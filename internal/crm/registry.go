package crm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/crmbridge/crmbridge/internal/config"
)

// Factory builds an adapter from the application configuration. The token
// provider is only consumed by adapters that authenticate via OAuth.
type Factory func(cfg *config.Config, tokens TokenProvider) Adapter

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("zoho", func(cfg *config.Config, tokens TokenProvider) Adapter {
		return NewZohoAdapter(cfg, tokens)
	})
	Register("hubspot", func(cfg *config.Config, _ TokenProvider) Adapter {
		return NewHubSpotAdapter(cfg)
	})
	Register("salesforce", func(cfg *config.Config, _ TokenProvider) Adapter {
		return NewSalesforceAdapter(cfg)
	})
}

// Register adds or replaces an adapter factory keyed by CRM name.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
}

// Names returns the registered CRM names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves the adapter named by cfg.ActiveCRM, initializes it, and
// returns it together with a connector instance ID used to correlate logs.
func Load(cfg *config.Config, tokens TokenProvider) (Adapter, string, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.ActiveCRM]
	registryMu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("crm: unknown CRM %q, registered: %v", cfg.ActiveCRM, Names())
	}

	adapter := factory(cfg, tokens)
	if err := adapter.Initialize(); err != nil {
		return nil, "", err
	}

	connectorID := uuid.NewString()
	log.WithField("crm", cfg.ActiveCRM).Debugf("loaded CRM adapter, connector %s", connectorID)
	return adapter, connectorID, nil
}
