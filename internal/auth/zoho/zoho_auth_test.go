package zoho

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/crmbridge/crmbridge/internal/config"
)

func newTestAuth(t *testing.T, accountsServer string) *ZohoAuth {
	t.Helper()
	cfg := &config.Config{
		RequestTimeoutSeconds: 5,
		Zoho: config.ZohoConfig{
			ClientID:       "client-id",
			ClientSecret:   "client-secret",
			RedirectURI:    "http://localhost:8080/oauth/callback",
			Scope:          "ZohoCRM.modules.ALL",
			AccountsServer: accountsServer,
		},
	}
	auth := NewZohoAuth(cfg)
	auth.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return auth
}

func TestGenerateAuthURL(t *testing.T) {
	t.Parallel()

	auth := newTestAuth(t, "https://accounts.zoho.com")
	rawURL := auth.GenerateAuthURL("state-123")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("auth URL does not parse: %v", err)
	}
	if parsed.Path != "/oauth/v2/auth" {
		t.Errorf("path = %q, want /oauth/v2/auth", parsed.Path)
	}

	query := parsed.Query()
	for key, want := range map[string]string{
		"client_id":     "client-id",
		"response_type": "code",
		"redirect_uri":  "http://localhost:8080/oauth/callback",
		"scope":         "ZohoCRM.modules.ALL",
		"access_type":   "offline",
		"prompt":        "consent",
		"state":         "state-123",
	} {
		if got := query.Get(key); got != want {
			t.Errorf("query[%s] = %q, want %q", key, got, want)
		}
	}
}

func TestExchangeCodeForTokens(t *testing.T) {
	t.Parallel()

	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/oauth/v2/token" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("content type = %q", ct)
		}
		_ = r.ParseForm()
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","token_type":"Bearer","expires_in":3600,"api_domain":"https://www.zohoapis.com"}`))
	}))
	defer server.Close()

	auth := newTestAuth(t, server.URL)
	rec, err := auth.ExchangeCodeForTokens(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}

	for key, want := range map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"redirect_uri":  "http://localhost:8080/oauth/callback",
		"code":          "auth-code-1",
	} {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form[%s] = %q, want %q", key, got, want)
		}
	}

	if rec.AccessToken != "at-new" || rec.RefreshToken != "rt-new" {
		t.Errorf("record = %+v, want response tokens", rec)
	}
	if rec.ExpiresAt != 1_700_000_000+3600 {
		t.Errorf("ExpiresAt = %d, want issuance time + expires_in", rec.ExpiresAt)
	}
}

func TestRefreshTokensSendsRefreshGrant(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-1" {
			t.Errorf("refresh_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-refreshed","expires_in":3600}`))
	}))
	defer server.Close()

	auth := newTestAuth(t, server.URL)
	rec, err := auth.RefreshTokens(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rec.AccessToken != "at-refreshed" {
		t.Errorf("AccessToken = %q", rec.AccessToken)
	}
	// Zoho omits the refresh token on refresh; the caller restores it.
	if rec.RefreshToken != "" {
		t.Errorf("RefreshToken = %q, want empty from response", rec.RefreshToken)
	}
}

func TestTokenRequestEndpointError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
	}))
	defer server.Close()

	auth := newTestAuth(t, server.URL)
	_, err := auth.ExchangeCodeForTokens(context.Background(), "bad-code")

	var endpointErr *EndpointError
	if !errors.As(err, &endpointErr) {
		t.Fatalf("error type = %T, want *EndpointError", err)
	}
	if endpointErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", endpointErr.StatusCode)
	}
	if !strings.Contains(endpointErr.Body, "invalid_code") {
		t.Errorf("Body = %q, want server body", endpointErr.Body)
	}
}

func TestTokenRequestErrorBodyWithOKStatus(t *testing.T) {
	t.Parallel()

	// Zoho reports some grant failures with HTTP 200 and an error payload.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	auth := newTestAuth(t, server.URL)
	_, err := auth.RefreshTokens(context.Background(), "rt-1")

	var endpointErr *EndpointError
	if !errors.As(err, &endpointErr) {
		t.Fatalf("error type = %T, want *EndpointError", err)
	}
}

func TestTokenRequestNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	auth := newTestAuth(t, server.URL)
	_, err := auth.RefreshTokens(context.Background(), "rt-1")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *NetworkError", err)
	}
}
