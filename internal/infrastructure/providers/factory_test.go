package providers

import (
	"testing"

	"ledgerlink/internal/domain/linking"
)

func testCatalog() *Catalog {
	return &Catalog{Providers: []Entry{
		{
			ID: "teller", Family: "bank", Name: "Teller", Strategy: StrategyWidget,
			Script: &ScriptSpec{Global: "TellerConnect", URL: "https://cdn.teller.io/connect/connect.js", RequiresKey: true},
		},
		{
			ID: "stripe-fc", Family: "bank", Name: "Stripe Financial Connections", Strategy: StrategyModal,
			Script: &ScriptSpec{Global: "Stripe", URL: "https://js.stripe.com/v3/", RequiresKey: true},
		},
		{ID: "quickbooks", Family: "service", Name: "QuickBooks", Strategy: StrategyOAuthPopup},
	}}
}

func TestFactory_BuildWidget(t *testing.T) {
	keys := Keys{TellerApplicationID: "app_123", TellerEnvironment: "sandbox"}
	factory := NewFactory(testCatalog(), nil, keys)
	bridge := NewBridge()

	clients, err := factory.Build(bridge, linking.FamilyBank, "teller")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if clients.Script.GlobalName != "TellerConnect" || !clients.Script.RequiresKey {
		t.Errorf("script = %+v", clients.Script)
	}
	if clients.Script.PublishableKey != "app_123" {
		t.Errorf("PublishableKey = %q, want the application id", clients.Script.PublishableKey)
	}
	if clients.Runtime != bridge {
		t.Error("runtime should be the session bridge")
	}
	if clients.Handshake == nil {
		t.Error("handshake runner missing")
	}
	if bridge.widget.ApplicationID != "app_123" || bridge.widget.Environment != "sandbox" {
		t.Errorf("widget config = %+v", bridge.widget)
	}
}

func TestFactory_BuildModal(t *testing.T) {
	factory := NewFactory(testCatalog(), nil, Keys{StripePublishableKey: "pk_test"})

	clients, err := factory.Build(NewBridge(), linking.FamilyBank, "stripe-fc")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if clients.Script.PublishableKey != "pk_test" {
		t.Errorf("PublishableKey = %q", clients.Script.PublishableKey)
	}
}

func TestFactory_BuildPopup(t *testing.T) {
	factory := NewFactory(testCatalog(), nil, Keys{})

	clients, err := factory.Build(NewBridge(), linking.FamilyService, "quickbooks")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if clients.Script.GlobalName != "" {
		t.Errorf("popup provider has no script, got %+v", clients.Script)
	}
	if clients.Handshake == nil {
		t.Error("handshake runner missing")
	}
}

func TestFactory_BuildMissingKeyLeavesScriptUnkeyed(t *testing.T) {
	factory := NewFactory(testCatalog(), nil, Keys{})

	clients, err := factory.Build(NewBridge(), linking.FamilyBank, "teller")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	// The loader turns this into a configuration error at load time.
	if clients.Script.PublishableKey != "" {
		t.Errorf("PublishableKey = %q, want empty", clients.Script.PublishableKey)
	}
}

func TestFactory_BuildUnknownProvider(t *testing.T) {
	factory := NewFactory(testCatalog(), nil, Keys{})

	if _, err := factory.Build(NewBridge(), linking.FamilyBank, "monzo"); err == nil {
		t.Error("expected error for an unknown provider")
	}
}
