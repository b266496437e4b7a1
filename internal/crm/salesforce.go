package crm

import (
	"context"
	"fmt"

	"github.com/crmbridge/crmbridge/internal/config"
)

// SalesforceAdapter connects to a Salesforce MCP tool server.
type SalesforceAdapter struct {
	cfg *config.Config
}

// NewSalesforceAdapter constructs the Salesforce adapter.
func NewSalesforceAdapter(cfg *config.Config) *SalesforceAdapter {
	return &SalesforceAdapter{cfg: cfg}
}

func (a *SalesforceAdapter) Initialize() error {
	if a.cfg.Salesforce.MCPURL == "" {
		return fmt.Errorf("crm: SALESFORCE_MCP_URL is not configured")
	}
	return nil
}

func (a *SalesforceAdapter) ServerName() string { return "salesforce_crm" }

func (a *SalesforceAdapter) ConnectionConfig(ctx context.Context) (ConnectionConfig, error) {
	return ConnectionConfig{
		Transport: "streamable_http",
		URL:       a.cfg.Salesforce.MCPURL,
	}, nil
}
