package zoho

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/crmbridge/crmbridge/internal/misc"
)

// DefaultRefreshBuffer is the safety margin before actual expiry at which a
// proactive refresh is triggered.
const DefaultRefreshBuffer = 5 * time.Minute

// Endpoint is the network boundary of the token lifecycle: the consent URL
// builder plus the two token endpoint operations. The manager is tested
// against a fake implementation.
type Endpoint interface {
	GenerateAuthURL(state string) string
	ExchangeCodeForTokens(ctx context.Context, code string) (*TokenRecord, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenRecord, error)
}

// Options configures the TokenManager's refresh policy.
type Options struct {
	// RefreshBuffer is the early-refresh margin. Zero selects
	// DefaultRefreshBuffer.
	RefreshBuffer time.Duration
	// AlwaysRefresh forces a refresh on every token request, trading
	// efficiency for maximum safety against clock skew or short-lived
	// tokens.
	AlwaysRefresh bool
}

// TokenManager owns the current in-memory token record, decides when to
// refresh, calls the endpoint client, and delegates persistence to the
// store. Every caller of GetValidAccessToken receives a token that will
// remain valid for at least the configured refresh buffer; concurrent
// callers never race to refresh redundantly.
type TokenManager struct {
	endpoint Endpoint
	store    *TokenStore
	opts     Options

	mu     sync.Mutex
	record *TokenRecord
	// failed latches an endpoint rejection of the refresh grant. Once set,
	// token requests fail with ReauthorizationRequiredError until a new
	// grant is obtained.
	failed error

	group singleflight.Group
	now   func() time.Time
}

// NewTokenManager constructs a manager bound to the given endpoint client
// and store, loading any previously persisted record.
func NewTokenManager(endpoint Endpoint, store *TokenStore, opts Options) *TokenManager {
	if opts.RefreshBuffer <= 0 {
		opts.RefreshBuffer = DefaultRefreshBuffer
	}
	m := &TokenManager{
		endpoint: endpoint,
		store:    store,
		opts:     opts,
		now:      time.Now,
	}
	m.record = store.Load()
	return m
}

// GetValidAccessToken returns an access token guaranteed to remain valid for
// at least the refresh buffer, refreshing proactively when needed. It may
// block on an in-flight refresh started by a concurrent caller.
func (m *TokenManager) GetValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	rec := m.record
	failedErr := m.failed
	m.mu.Unlock()

	if rec == nil || rec.AccessToken == "" {
		return "", m.reauthorizationRequired(fmt.Errorf("no access token available; run the authorization flow first"))
	}
	if failedErr != nil {
		return "", m.reauthorizationRequired(failedErr)
	}
	if !m.needsRefresh(rec) {
		return rec.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// IsAuthenticated reports whether GetValidAccessToken would currently
// succeed. Like the token request itself it may trigger a refresh.
func (m *TokenManager) IsAuthenticated(ctx context.Context) bool {
	_, err := m.GetValidAccessToken(ctx)
	return err == nil
}

// GetAuthorizationURL returns a fresh consent URL for the one-time
// authorization flow.
func (m *TokenManager) GetAuthorizationURL() string {
	state, err := misc.GenerateRandomState()
	if err != nil {
		// crypto/rand failure is effectively unreachable; an empty state
		// still yields a usable consent URL.
		state = ""
	}
	return m.endpoint.GenerateAuthURL(state)
}

// ExchangeCodeForTokens bootstraps the credential from a one-time
// authorization code, persists it, and adopts it as the current record.
func (m *TokenManager) ExchangeCodeForTokens(ctx context.Context, code string) (*TokenRecord, error) {
	rec, err := m.endpoint.ExchangeCodeForTokens(ctx, code)
	if err != nil {
		return nil, err
	}

	errSave := m.store.Save(rec)

	// Adopt the grant even when persistence failed: the in-memory token is
	// usable for the current process.
	m.mu.Lock()
	m.record = rec
	m.failed = nil
	m.mu.Unlock()

	if errSave != nil {
		return nil, errSave
	}
	return rec.Clone(), nil
}

// CurrentRecord returns a snapshot of the held token record, or nil when
// unbootstrapped.
func (m *TokenManager) CurrentRecord() *TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.Clone()
}

// ReloadFromStore re-reads the persisted record, adopting it when present.
// Used when another process rewrote the token file; it never writes back.
func (m *TokenManager) ReloadFromStore() {
	rec := m.store.Load()
	if rec == nil {
		return
	}
	m.mu.Lock()
	m.record = rec
	m.failed = nil
	m.mu.Unlock()
	log.Debugf("reloaded token record from %s", m.store.Path())
}

// needsRefresh reports whether the record is inside the refresh window:
// now >= expires_at - buffer, or unconditionally in always-refresh mode.
func (m *TokenManager) needsRefresh(rec *TokenRecord) bool {
	if m.opts.AlwaysRefresh {
		return true
	}
	return !m.now().Before(rec.ExpiryTime().Add(-m.opts.RefreshBuffer))
}

// refresh funnels all callers through a single in-flight refresh. A refresh
// runs to completion even if the requesting caller goes away; callers that
// arrive while one is in flight wait for and reuse its result.
func (m *TokenManager) refresh(ctx context.Context) (*TokenRecord, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenRecord), nil
}

func (m *TokenManager) doRefresh(ctx context.Context) (*TokenRecord, error) {
	m.mu.Lock()
	current := m.record
	m.mu.Unlock()

	if current == nil {
		return nil, m.reauthorizationRequired(errors.New("no token record held"))
	}

	// A caller that observed staleness just before a concurrent refresh
	// completed lands here with an already-fresh record; don't refresh again.
	if !m.opts.AlwaysRefresh && !m.needsRefresh(current) {
		return current, nil
	}

	if current.RefreshToken == "" {
		return nil, m.reauthorizationRequired(errors.New("missing refresh token; run the authorization flow again"))
	}

	fresh, err := m.endpoint.RefreshTokens(ctx, current.RefreshToken)
	if err != nil {
		var endpointErr *EndpointError
		if errors.As(err, &endpointErr) {
			// The server rejected the grant (revoked or invalid refresh
			// token). The previous access token is not returned as a
			// fallback.
			m.mu.Lock()
			m.failed = err
			m.mu.Unlock()
			return nil, m.reauthorizationRequired(err)
		}
		// Transport failure on an opportunistic refresh: while the current
		// token is still inside its hard expiry, keep serving it and retry
		// on the next demand.
		if m.now().Before(current.ExpiryTime()) {
			log.Warnf("token refresh failed, serving still-valid access token: %v", err)
			return current, nil
		}
		return nil, err
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}

	if errSave := m.store.Save(fresh); errSave != nil {
		// Lose durability, not service: the refreshed token works for this
		// process, a restart will need re-authorization.
		log.Errorf("persisting refreshed tokens failed: %v", errSave)
	}

	m.mu.Lock()
	m.record = fresh
	m.failed = nil
	m.mu.Unlock()

	log.Debugf("access token refreshed, valid until %s", fresh.ExpiryTime().Format(time.RFC3339))
	return fresh, nil
}

func (m *TokenManager) reauthorizationRequired(reason error) error {
	return &ReauthorizationRequiredError{
		AuthorizationURL: m.GetAuthorizationURL(),
		Reason:           reason,
	}
}
