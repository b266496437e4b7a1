package zoho

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestNewTokenRecordFromResponse(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name          string
		body          string
		wantErr       bool
		wantExpiresAt int64
	}{
		{
			"full response",
			`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600,"api_domain":"https://www.zohoapis.com"}`,
			false,
			1_700_000_000 + 3600,
		},
		{
			"missing expires_in defaults to one hour",
			`{"access_token":"at-2"}`,
			false,
			1_700_000_000 + 3600,
		},
		{
			"short lifetime",
			`{"access_token":"at-3","expires_in":600}`,
			false,
			1_700_000_000 + 600,
		},
		{
			"no access token",
			`{"refresh_token":"rt-only"}`,
			true,
			0,
		},
		{
			"not json",
			`<html>maintenance</html>`,
			true,
			0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := newTokenRecordFromResponse([]byte(tt.body), now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.ExpiresAt != tt.wantExpiresAt {
				t.Errorf("ExpiresAt = %d, want %d", rec.ExpiresAt, tt.wantExpiresAt)
			}
		})
	}
}

func TestTokenRecordPreservesExtensionFields(t *testing.T) {
	t.Parallel()

	body := `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600,"api_domain":"https://www.zohoapis.com","scope":"ZohoCRM.modules.ALL"}`
	rec, err := newTokenRecordFromResponse([]byte(body), time.Unix(100, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if got := gjson.GetBytes(data, "api_domain").String(); got != "https://www.zohoapis.com" {
		t.Errorf("api_domain = %q, want preserved value", got)
	}
	if got := gjson.GetBytes(data, "expires_at").Int(); got != 3700 {
		t.Errorf("expires_at = %d, want 3700", got)
	}

	restored := &TokenRecord{}
	if err = json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if restored.AccessToken != "at" || restored.RefreshToken != "rt" {
		t.Errorf("restored record = %+v, want original tokens", restored)
	}
	if restored.Extension("api_domain").String() != "https://www.zohoapis.com" {
		t.Error("extension field lost across round trip")
	}
}

func TestTokenRecordMarshalOmitsEmptyRefreshToken(t *testing.T) {
	t.Parallel()

	rec := &TokenRecord{AccessToken: "at", ExpiresAt: 42}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if gjson.GetBytes(data, "refresh_token").Exists() {
		t.Error("empty refresh_token should not be written")
	}
}

func TestTokenRecordClone(t *testing.T) {
	t.Parallel()

	var nilRec *TokenRecord
	if nilRec.Clone() != nil {
		t.Error("clone of nil record should be nil")
	}

	rec := &TokenRecord{AccessToken: "at", RefreshToken: "rt", raw: []byte(`{"access_token":"at"}`)}
	clone := rec.Clone()
	clone.AccessToken = "changed"
	clone.raw[2] = 'X'
	if rec.AccessToken != "at" {
		t.Error("clone shares struct state with original")
	}
	if string(rec.raw[:3]) != `{"a` {
		t.Error("clone shares raw buffer with original")
	}
}
