// Package zoho implements the OAuth2 token lifecycle for Zoho CRM: the
// persisted token record, its file store, the token endpoint client, the
// consent URL builder, and the manager that keeps an always-valid access
// token available to callers.
package zoho

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// defaultExpiresIn is assumed when the authorization server omits
// expires_in from a token response.
const defaultExpiresIn = 3600

// TokenRecord describes one credential grant. Known fields are promoted to
// struct members; any additional fields returned by the authorization server
// (api_domain and friends) are preserved opaquely in the raw payload and
// survive persistence round-trips.
type TokenRecord struct {
	// AccessToken is the current bearer credential.
	AccessToken string
	// RefreshToken is the long-lived credential used to mint new access
	// tokens. Most servers omit it on refresh responses; the store and the
	// manager both guarantee it is never dropped once held.
	RefreshToken string
	// TokenType is typically "Bearer".
	TokenType string
	// Scope is the granted scope set, informational.
	Scope string
	// ExpiresIn is the lifetime in seconds as reported at issuance time.
	ExpiresIn int64
	// ExpiresAt is the absolute expiry as epoch seconds, computed locally at
	// issuance from ExpiresIn. It is authoritative for freshness checks.
	ExpiresAt int64

	raw []byte
}

// newTokenRecordFromResponse builds a TokenRecord from a raw token endpoint
// response body, computing the absolute expiry from the server-reported
// lifetime at the moment of issuance.
func newTokenRecordFromResponse(body []byte, now time.Time) (*TokenRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("zoho auth: token response is not valid JSON")
	}
	rec := &TokenRecord{}
	if err := rec.UnmarshalJSON(body); err != nil {
		return nil, err
	}
	if rec.AccessToken == "" {
		return nil, fmt.Errorf("zoho auth: token response contains no access_token")
	}
	if rec.ExpiresIn <= 0 {
		rec.ExpiresIn = defaultExpiresIn
	}
	rec.ExpiresAt = now.Unix() + rec.ExpiresIn
	return rec, nil
}

// UnmarshalJSON restores a record from its persisted form, retaining the raw
// payload so unknown fields are preserved.
func (t *TokenRecord) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("zoho auth: token record is not valid JSON")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return fmt.Errorf("zoho auth: token record is not a JSON object")
	}
	t.raw = append([]byte(nil), data...)
	t.AccessToken = parsed.Get("access_token").String()
	t.RefreshToken = parsed.Get("refresh_token").String()
	t.TokenType = parsed.Get("token_type").String()
	t.Scope = parsed.Get("scope").String()
	t.ExpiresIn = parsed.Get("expires_in").Int()
	t.ExpiresAt = parsed.Get("expires_at").Int()
	return nil
}

// MarshalJSON overlays the promoted fields onto the raw payload so extension
// fields the server returned remain part of the durable state.
func (t *TokenRecord) MarshalJSON() ([]byte, error) {
	out := t.raw
	if len(out) == 0 {
		out = []byte("{}")
	}
	var err error
	if out, err = sjson.SetBytes(out, "access_token", t.AccessToken); err != nil {
		return nil, err
	}
	if t.RefreshToken != "" {
		if out, err = sjson.SetBytes(out, "refresh_token", t.RefreshToken); err != nil {
			return nil, err
		}
	}
	if t.TokenType != "" {
		if out, err = sjson.SetBytes(out, "token_type", t.TokenType); err != nil {
			return nil, err
		}
	}
	if t.Scope != "" {
		if out, err = sjson.SetBytes(out, "scope", t.Scope); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "expires_in", t.ExpiresIn); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "expires_at", t.ExpiresAt); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpiryTime returns the absolute expiry as a time.Time.
func (t *TokenRecord) ExpiryTime() time.Time {
	return time.Unix(t.ExpiresAt, 0)
}

// Extension returns an extension field preserved from the server response,
// e.g. Zoho's api_domain.
func (t *TokenRecord) Extension(key string) gjson.Result {
	if len(t.raw) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(t.raw, key)
}

// Clone returns a deep copy of the record.
func (t *TokenRecord) Clone() *TokenRecord {
	if t == nil {
		return nil
	}
	copyRec := *t
	if len(t.raw) > 0 {
		copyRec.raw = append([]byte(nil), t.raw...)
	}
	return &copyRec
}
