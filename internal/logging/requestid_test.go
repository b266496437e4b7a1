package logging

import (
	"context"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	a := GenerateRequestID()
	b := GenerateRequestID()
	if len(a) != 8 {
		t.Errorf("request id %q should be 8 hex chars", a)
	}
	if a == b {
		t.Errorf("consecutive request ids should differ, both %q", a)
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "deadbeef")
	if got := GetRequestID(ctx); got != "deadbeef" {
		t.Errorf("GetRequestID = %q, want deadbeef", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on empty context = %q, want empty", got)
	}
}
