package crm

import (
	"context"
	"fmt"

	"github.com/crmbridge/crmbridge/internal/config"
)

// HubSpotAdapter connects to a HubSpot MCP tool server using a static
// private-app access token.
type HubSpotAdapter struct {
	cfg *config.Config
}

// NewHubSpotAdapter constructs the HubSpot adapter.
func NewHubSpotAdapter(cfg *config.Config) *HubSpotAdapter {
	return &HubSpotAdapter{cfg: cfg}
}

func (a *HubSpotAdapter) Initialize() error {
	if a.cfg.HubSpot.MCPURL == "" {
		return fmt.Errorf("crm: HUBSPOT_MCP_URL is not configured")
	}
	return nil
}

func (a *HubSpotAdapter) ServerName() string { return "hubspot_crm" }

func (a *HubSpotAdapter) ConnectionConfig(ctx context.Context) (ConnectionConfig, error) {
	conn := ConnectionConfig{
		Transport: "sse",
		URL:       a.cfg.HubSpot.MCPURL,
	}
	if a.cfg.HubSpot.AccessToken != "" {
		conn.Headers = map[string]string{
			"Authorization": "Bearer " + a.cfg.HubSpot.AccessToken,
		}
	}
	return conn, nil
}
