package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromRequest(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
	req.Header.Set("User-Agent", "portal-test/1.0")
	c := e.NewContext(req, httptest.NewRecorder())

	entry := FromRequest(c)

	if entry.IPAddress != "203.0.113.9" {
		t.Errorf("expected forwarded ip, got %q", entry.IPAddress)
	}
	if entry.UserAgent != "portal-test/1.0" {
		t.Errorf("expected user agent, got %q", entry.UserAgent)
	}
	if entry.UserID != "" || entry.Action != "" {
		t.Errorf("expected only network details, got %+v", entry)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	e1 := &Entry{UserID: "u", Action: "send_message"}
	if err := r.Write(context.Background(), e1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e1.ID != 1 || e1.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamp to be assigned, got %+v", e1)
	}
	if got := len(r.Entries()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}

	r.Err = errors.New("down")
	if err := r.Write(context.Background(), &Entry{}); err == nil {
		t.Error("expected error")
	}
	if got := len(r.Entries()); got != 1 {
		t.Errorf("failed write must not be recorded, got %d entries", got)
	}
}
