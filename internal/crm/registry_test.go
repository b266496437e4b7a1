package crm

import (
	"strings"
	"testing"

	"github.com/crmbridge/crmbridge/internal/config"
)

func TestNamesIncludesBuiltins(t *testing.T) {
	t.Parallel()

	names := strings.Join(Names(), ",")
	for _, want := range []string{"hubspot", "salesforce", "zoho"} {
		if !strings.Contains(names, want) {
			t.Errorf("Names() = %s, missing %s", names, want)
		}
	}
}

func TestLoadUnknownCRM(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{ActiveCRM: "pipedrive"}
	_, _, err := Load(cfg, &fakeTokenProvider{})
	if err == nil {
		t.Fatal("expected error for unregistered CRM")
	}
	if !strings.Contains(err.Error(), "pipedrive") {
		t.Errorf("error %q should name the unknown CRM", err)
	}
}

func TestLoadZohoAdapter(t *testing.T) {
	t.Parallel()

	cfg := zohoTestConfig()
	cfg.ActiveCRM = "zoho"
	adapter, connectorID, err := Load(cfg, &fakeTokenProvider{token: "at"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.ServerName() != "zoho_crm" {
		t.Errorf("ServerName = %q, want zoho_crm", adapter.ServerName())
	}
	if connectorID == "" {
		t.Error("connector ID should be non-empty")
	}
}

func TestLoadInitializeFailure(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{ActiveCRM: "hubspot"}
	if _, _, err := Load(cfg, nil); err == nil {
		t.Error("expected initialize error when HubSpot MCP URL is unset")
	}
}
