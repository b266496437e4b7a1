package logging

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func testEntry(level log.Level, msg string, fields log.Fields) *log.Entry {
	entry := log.NewEntry(log.New())
	entry.Time = time.Date(2026, 8, 28, 10, 14, 4, 0, time.UTC)
	entry.Level = level
	entry.Message = msg
	for k, v := range fields {
		entry.Data[k] = v
	}
	return entry
}

func TestLogFormatterBasic(t *testing.T) {
	t.Parallel()

	formatter := &LogFormatter{}
	out, err := formatter.Format(testEntry(log.InfoLevel, "token refreshed\n", nil))
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	got := string(out)
	want := "[2026-08-28 10:14:04] [--------] [info ] token refreshed\n"
	if got != want {
		t.Errorf("formatted = %q, want %q", got, want)
	}
}

func TestLogFormatterWarnAbbreviation(t *testing.T) {
	t.Parallel()

	formatter := &LogFormatter{}
	out, err := formatter.Format(testEntry(log.WarnLevel, "access token expiring soon", nil))
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if !strings.Contains(string(out), "[warn ]") {
		t.Errorf("warning level should render as [warn ], got %q", string(out))
	}
}

func TestLogFormatterRequestIDAndFields(t *testing.T) {
	t.Parallel()

	formatter := &LogFormatter{}
	out, err := formatter.Format(testEntry(log.ErrorLevel, "refresh failed", log.Fields{
		"request_id": "a1b2c3d4",
		"crm":        "zoho",
		"status":     401,
		"unlisted":   "dropped",
	}))
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	got := string(out)
	if !strings.Contains(got, "[a1b2c3d4]") {
		t.Errorf("request id missing from %q", got)
	}
	if !strings.Contains(got, "crm=zoho status=401") {
		t.Errorf("ordered fields missing from %q", got)
	}
	if strings.Contains(got, "unlisted") {
		t.Errorf("unlisted fields should not render, got %q", got)
	}
}
