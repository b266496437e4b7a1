package crm

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/crmbridge/crmbridge/internal/auth/zoho"
	"github.com/crmbridge/crmbridge/internal/config"
)

// TokenProvider supplies a currently-valid bearer credential. Satisfied by
// *zoho.TokenManager; faked in tests.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// ZohoAdapter connects the bridge to the Zoho CRM MCP server, attaching a
// bearer token obtained from the token lifecycle manager.
type ZohoAdapter struct {
	cfg    *config.Config
	tokens TokenProvider
}

// NewZohoAdapter constructs the Zoho adapter.
func NewZohoAdapter(cfg *config.Config, tokens TokenProvider) *ZohoAdapter {
	return &ZohoAdapter{cfg: cfg, tokens: tokens}
}

func (a *ZohoAdapter) Initialize() error {
	if a.cfg.Zoho.MCPURL == "" {
		return fmt.Errorf("crm: ZOHO_MCP_URL is not configured")
	}
	return nil
}

func (a *ZohoAdapter) ServerName() string { return "zoho_crm" }

// ConnectionConfig returns the MCP connection details with a bearer header.
// When the OAuth client is unconfigured the connection is returned without
// authentication, matching deployments where the MCP URL embeds its own key.
// A ReauthorizationRequiredError is surfaced to the caller, who decides
// whether its protocol tolerates anonymous calls.
func (a *ZohoAdapter) ConnectionConfig(ctx context.Context) (ConnectionConfig, error) {
	conn := ConnectionConfig{
		Transport: "streamable_http",
		URL:       a.cfg.Zoho.MCPURL,
	}

	if a.cfg.Zoho.ClientID == "" || a.cfg.Zoho.ClientSecret == "" {
		log.Warn("Zoho OAuth client not configured; connecting without bearer authentication")
		return conn, nil
	}

	accessToken, err := a.tokens.GetValidAccessToken(ctx)
	if err != nil {
		var reauth *zoho.ReauthorizationRequiredError
		if errors.As(err, &reauth) {
			return ConnectionConfig{}, err
		}
		return ConnectionConfig{}, fmt.Errorf("crm: obtain Zoho access token failed: %w", err)
	}

	conn.Headers = map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return conn, nil
}
