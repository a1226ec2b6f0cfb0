// Package providers holds the provider catalog and the command/event bridge
// that connects the linking engine to the front-end environment actually
// hosting the provider SDKs.
package providers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ledgerlink/internal/domain/linking"
)

// Strategy names the handshake variant a provider uses
type Strategy string

const (
	StrategyWidget     Strategy = "widget"
	StrategyModal      Strategy = "modal"
	StrategyOAuthPopup Strategy = "oauth-popup"
)

// ScriptSpec describes the SDK script a provider loads from its CDN
type ScriptSpec struct {
	Global      string `yaml:"global"`
	URL         string `yaml:"url"`
	RequiresKey bool   `yaml:"requires_key"`
}

// Entry is one provider in the catalog
type Entry struct {
	ID       string      `yaml:"id"`
	Family   string      `yaml:"family"`
	Name     string      `yaml:"name"`
	Strategy Strategy    `yaml:"strategy"`
	Script   *ScriptSpec `yaml:"script"`
}

// Catalog is the set of linkable providers, loaded from a YAML file
type Catalog struct {
	Providers []Entry `yaml:"providers"`
}

// LoadCatalog reads and validates the provider catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}

	for _, e := range catalog.Providers {
		if e.ID == "" {
			return nil, fmt.Errorf("provider catalog entry is missing an id")
		}
		if !linking.ProviderFamily(e.Family).Valid() {
			return nil, fmt.Errorf("provider %q: unknown family %q", e.ID, e.Family)
		}
		switch e.Strategy {
		case StrategyWidget, StrategyModal, StrategyOAuthPopup:
		default:
			return nil, fmt.Errorf("provider %q: unknown strategy %q", e.ID, e.Strategy)
		}
	}

	return &catalog, nil
}

// Find returns the catalog entry for a family/provider pair
func (c *Catalog) Find(family linking.ProviderFamily, id string) (*Entry, error) {
	for i := range c.Providers {
		e := &c.Providers[i]
		if e.ID == id && linking.ProviderFamily(e.Family) == family {
			return e, nil
		}
	}
	return nil, fmt.Errorf("unknown provider %q in family %q", id, family)
}
