// Package crm defines the CRM adapter abstraction: each supported CRM
// (Zoho, HubSpot, Salesforce) provides the connection details an MCP client
// needs to reach its tool server, including any authentication headers.
package crm

import "context"

// ConnectionConfig is what an MCP client needs to connect to a CRM tool
// server.
type ConnectionConfig struct {
	// Transport names the MCP transport, e.g. "streamable_http" or "sse".
	Transport string
	// URL is the tool server endpoint.
	URL string
	// Headers carries optional HTTP headers, typically a bearer
	// Authorization header.
	Headers map[string]string
}

// Adapter is implemented once per CRM.
type Adapter interface {
	// Initialize validates configuration and prepares the adapter.
	Initialize() error
	// ConnectionConfig returns the MCP connection details. Adapters that
	// authenticate may block on a token refresh.
	ConnectionConfig(ctx context.Context) (ConnectionConfig, error)
	// ServerName returns the unique MCP server name, e.g. "zoho_crm".
	ServerName() string
}
