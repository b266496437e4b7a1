package zoho

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/crmbridge/crmbridge/internal/config"
	"github.com/crmbridge/crmbridge/internal/util"
)

// Authorization server paths relative to the accounts server base.
const (
	authPath  = "/oauth/v2/auth"
	tokenPath = "/oauth/v2/token"
)

// ZohoAuth performs the two network operations of the OAuth flow (code
// exchange and refresh) against the Zoho accounts server and builds the
// one-time consent URL. It is stateless: persistence and freshness policy
// belong to the TokenManager.
type ZohoAuth struct {
	clientID       string
	clientSecret   string
	redirectURI    string
	scope          string
	accountsServer string
	httpClient     *http.Client

	now func() time.Time
}

// NewZohoAuth constructs a ZohoAuth from the application configuration with
// a proxy-aware HTTP client and a bounded request timeout.
func NewZohoAuth(cfg *config.Config) *ZohoAuth {
	client := &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second}
	return &ZohoAuth{
		clientID:       cfg.Zoho.ClientID,
		clientSecret:   cfg.Zoho.ClientSecret,
		redirectURI:    cfg.Zoho.RedirectURI,
		scope:          cfg.Zoho.Scope,
		accountsServer: strings.TrimRight(cfg.Zoho.AccountsServer, "/"),
		httpClient:     util.SetProxy(cfg.ProxyURL, client),
		now:            time.Now,
	}
}

// GenerateAuthURL builds the consent redirect URL. Offline access is always
// requested and re-consent is forced so a refresh token is guaranteed to be
// issued even if the user previously authorized.
func (z *ZohoAuth) GenerateAuthURL(state string) string {
	conf := &oauth2.Config{
		ClientID:    z.clientID,
		RedirectURL: z.redirectURI,
		Scopes:      []string{z.scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  z.accountsServer + authPath,
			TokenURL: z.accountsServer + tokenPath,
		},
	}
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCodeForTokens exchanges an authorization code for the initial
// access and refresh tokens.
func (z *ZohoAuth) ExchangeCodeForTokens(ctx context.Context, code string) (*TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", z.clientID)
	form.Set("client_secret", z.clientSecret)
	form.Set("redirect_uri", z.redirectURI)
	form.Set("code", code)

	return z.doTokenRequest(ctx, "code exchange", form)
}

// RefreshTokens exchanges a refresh token for a new access token.
func (z *ZohoAuth) RefreshTokens(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("zoho auth: refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", z.clientID)
	form.Set("client_secret", z.clientSecret)
	form.Set("refresh_token", refreshToken)

	return z.doTokenRequest(ctx, "token refresh", form)
}

func (z *ZohoAuth) doTokenRequest(ctx context.Context, op string, form url.Values) (*TokenRecord, error) {
	endpoint := z.accountsServer + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("zoho auth: create %s request failed: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &EndpointError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Zoho reports some grant failures with a 200 status and an error body.
	if errField := extractErrorField(body); errField != "" {
		return nil, &EndpointError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	rec, err := newTokenRecordFromResponse(body, z.now())
	if err != nil {
		return nil, fmt.Errorf("zoho auth: parse %s response failed: %w", op, err)
	}
	return rec, nil
}

func extractErrorField(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "error").String()
}
