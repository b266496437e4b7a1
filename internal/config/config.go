// Package config provides configuration management for the CRM bridge.
// It handles loading and parsing YAML configuration files, applies
// environment-variable overrides, and provides structured access to
// application settings including the active CRM, OAuth client credentials,
// and token persistence options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values mirroring the reference deployment.
const (
	DefaultScope                = "ZohoCRM.modules.ALL"
	DefaultAccountsServer       = "https://accounts.zoho.com"
	DefaultRedirectURI          = "http://localhost:8080/oauth/callback"
	DefaultTokenFile            = ".tokens.json"
	DefaultRefreshBufferSeconds = 300
	DefaultRequestTimeoutSecs   = 30
)

// Config represents the application's configuration, loaded from a YAML file
// with environment overrides applied on top.
type Config struct {
	// ActiveCRM selects which CRM adapter the bridge connects to ("zoho", "hubspot", "salesforce").
	ActiveCRM string `yaml:"active-crm"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url"`

	// RequestTimeoutSeconds bounds every call to the authorization server.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds"`

	// LoggingDir enables rotating file logs when set; empty logs to stdout only.
	LoggingDir string `yaml:"logging-dir"`

	// Debug lowers the log level to debug when true.
	Debug bool `yaml:"debug"`

	// Zoho holds the Zoho CRM OAuth client registration and token options.
	Zoho ZohoConfig `yaml:"zoho"`

	// HubSpot holds the HubSpot adapter settings.
	HubSpot HubSpotConfig `yaml:"hubspot"`

	// Salesforce holds the Salesforce adapter settings.
	Salesforce SalesforceConfig `yaml:"salesforce"`
}

// ZohoConfig groups the Zoho OAuth client registration with token lifecycle knobs.
type ZohoConfig struct {
	// ClientID identifies the registered OAuth client.
	ClientID string `yaml:"client-id"`
	// ClientSecret authenticates the client against the token endpoint.
	ClientSecret string `yaml:"client-secret"`
	// RedirectURI must match the URI registered with the authorization server.
	RedirectURI string `yaml:"redirect-uri"`
	// Scope is the requested scope set for the consent flow.
	Scope string `yaml:"scope"`
	// AccountsServer is the authorization server base URL.
	AccountsServer string `yaml:"accounts-server"`
	// MCPURL is the Zoho MCP endpoint the connection config points at.
	MCPURL string `yaml:"mcp-url"`
	// TokenFile is the path of the persisted token record.
	TokenFile string `yaml:"token-file"`
	// RefreshBufferSeconds is the safety margin before expiry at which a
	// proactive refresh is triggered.
	RefreshBufferSeconds int `yaml:"refresh-buffer-seconds"`
	// AlwaysRefresh forces a refresh on every token request when true.
	AlwaysRefresh bool `yaml:"always-refresh"`
}

// HubSpotConfig holds connection settings for the HubSpot adapter.
type HubSpotConfig struct {
	MCPURL      string `yaml:"mcp-url"`
	AccessToken string `yaml:"access-token"`
}

// SalesforceConfig holds connection settings for the Salesforce adapter.
type SalesforceConfig struct {
	MCPURL string `yaml:"mcp-url"`
}

// LoadConfig reads the YAML configuration from configFile, applies defaults
// and environment overrides, and returns the resulting Config. A missing file
// is not an error: the bridge can run entirely from environment variables.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s failed: %w", configFile, errUnmarshal)
		}
	case os.IsNotExist(err):
		// fall through to env-only configuration
	default:
		return nil, fmt.Errorf("config: read %s failed: %w", configFile, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.ActiveCRM, "ACTIVE_CRM")
	setString(&c.ProxyURL, "PROXY_URL")

	setString(&c.Zoho.ClientID, "ZOHO_CLIENT_ID")
	setString(&c.Zoho.ClientSecret, "ZOHO_CLIENT_SECRET")
	setString(&c.Zoho.RedirectURI, "ZOHO_REDIRECT_URI")
	setString(&c.Zoho.Scope, "ZOHO_SCOPE")
	setString(&c.Zoho.AccountsServer, "ZOHO_ACCOUNTS_SERVER")
	setString(&c.Zoho.MCPURL, "ZOHO_MCP_URL")
	setString(&c.Zoho.TokenFile, "ZOHO_TOKEN_FILE")
	setInt(&c.Zoho.RefreshBufferSeconds, "ZOHO_REFRESH_BUFFER_SECONDS")
	setBool(&c.Zoho.AlwaysRefresh, "ZOHO_ALWAYS_REFRESH")

	setString(&c.HubSpot.MCPURL, "HUBSPOT_MCP_URL")
	setString(&c.HubSpot.AccessToken, "HUBSPOT_ACCESS_TOKEN")
	setString(&c.Salesforce.MCPURL, "SALESFORCE_MCP_URL")
}

func (c *Config) applyDefaults() {
	if c.ActiveCRM == "" {
		c.ActiveCRM = "zoho"
	}
	c.ActiveCRM = strings.ToLower(strings.TrimSpace(c.ActiveCRM))
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSecs
	}
	if c.Zoho.Scope == "" {
		c.Zoho.Scope = DefaultScope
	}
	if c.Zoho.AccountsServer == "" {
		c.Zoho.AccountsServer = DefaultAccountsServer
	}
	c.Zoho.AccountsServer = strings.TrimRight(c.Zoho.AccountsServer, "/")
	if c.Zoho.RedirectURI == "" {
		c.Zoho.RedirectURI = DefaultRedirectURI
	}
	if c.Zoho.TokenFile == "" {
		c.Zoho.TokenFile = DefaultTokenFile
	}
	if c.Zoho.RefreshBufferSeconds <= 0 {
		c.Zoho.RefreshBufferSeconds = DefaultRefreshBufferSeconds
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}
