package providers

import (
	"fmt"

	"ledgerlink/internal/domain/linking"
	"ledgerlink/internal/infrastructure/ledgerapi"
)

// Keys holds the per-provider client-side keys read from configuration
type Keys struct {
	TellerApplicationID  string
	TellerEnvironment    string
	StripePublishableKey string
}

// Factory builds the per-session handshake runner and script descriptor for
// a catalog provider, all wired through the session's bridge.
type Factory struct {
	catalog *Catalog
	api     ledgerapi.ClientInterface
	keys    Keys
}

// NewFactory creates a provider client factory
func NewFactory(catalog *Catalog, api ledgerapi.ClientInterface, keys Keys) *Factory {
	return &Factory{catalog: catalog, api: api, keys: keys}
}

// Clients is the set of capability handles one session needs
type Clients struct {
	Script    linking.ProviderScript
	Runtime   linking.ScriptRuntime
	Handshake linking.HandshakeRunner
}

// Build resolves the catalog entry for a family/provider pair and returns
// the session's clients, backed by the given bridge.
func (f *Factory) Build(bridge *Bridge, family linking.ProviderFamily, providerID string) (Clients, error) {
	entry, err := f.catalog.Find(family, providerID)
	if err != nil {
		return Clients{}, err
	}

	clients := Clients{Runtime: bridge}

	if entry.Script != nil {
		clients.Script = linking.ProviderScript{
			GlobalName:  entry.Script.Global,
			URL:         entry.Script.URL,
			RequiresKey: entry.Script.RequiresKey,
		}
		if entry.Script.RequiresKey {
			// The client key is what the front-end initializes the SDK with:
			// the application id for widget providers, the publishable key
			// for modal-session ones. Absence is a configuration error the
			// loader reports distinctly from a load failure.
			switch entry.Strategy {
			case StrategyWidget:
				clients.Script.PublishableKey = f.keys.TellerApplicationID
			case StrategyModal:
				clients.Script.PublishableKey = f.keys.StripePublishableKey
			}
		}
	}

	switch entry.Strategy {
	case StrategyWidget:
		bridge.SetWidgetConfig(WidgetConfig{
			ApplicationID: f.keys.TellerApplicationID,
			Environment:   f.keys.TellerEnvironment,
		})
		clients.Handshake = linking.NewWidgetStrategy(bridge)
	case StrategyModal:
		clients.Handshake = linking.NewModalStrategy(f.api, bridge)
	case StrategyOAuthPopup:
		clients.Handshake = linking.NewPopupStrategy(f.api, bridge, providerID)
	default:
		return Clients{}, fmt.Errorf("provider %q has no handshake strategy", providerID)
	}

	return clients, nil
}
