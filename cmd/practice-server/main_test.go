package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/config"
	"github.com/sessionably/practice/internal/platform/notification"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		AppURL:         "https://app.sessionably.test",
		RequestTimeout: 5 * time.Second,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		JWTSecret:      "test-secret",
	}
}

func newTestServer(env string) *echo.Echo {
	cfg := testConfig(env)
	e := newEcho(cfg, zerolog.Nop())
	api := apiGroup(e, cfg)
	ok := func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"ok": "true"}) }
	api.GET("/ping", ok)
	api.GET("/subscription/plans", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer("production")
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
}

func TestPreflight(t *testing.T) {
	e := newTestServer("production")
	for _, path := range []string{"/api/v1/ping", "/api/v1/notes/generate", "/does-not-exist"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set(echo.HeaderOrigin, "https://app.sessionably.test")
		rec := serve(e, req)
		if rec.Code != http.StatusOK {
			t.Errorf("OPTIONS %s: expected 200, got %d", path, rec.Code)
		}
		if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://app.sessionably.test" {
			t.Errorf("OPTIONS %s: allow-origin = %q", path, got)
		}
		if rec.Header().Get(echo.HeaderAccessControlAllowMethods) == "" {
			t.Errorf("OPTIONS %s: missing allow-methods", path)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestServer("development")
	rec := serve(e, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "method not allowed") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestAPIAuth_Production(t *testing.T) {
	e := newTestServer("production")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/subscription/plans", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public route to skip auth, got %d", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "7b0f8e7c-2f7e-4a53-9d55-6f0f1b4a2c11",
		"role": "clinician",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	if rec := serve(e, req); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestAPIAuth_Development(t *testing.T) {
	e := newTestServer("development")
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected dev identity to be accepted, got %d", rec.Code)
	}
}

func TestEmailSender(t *testing.T) {
	ses := &notification.MockEmailSender{}

	cfg := testConfig("production")
	cfg.EmailProvider = "ses"
	if got := emailSender(cfg, ses); got != ses {
		t.Errorf("expected SES sender, got %T", got)
	}

	cfg.EmailProvider = "smtp"
	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPPort = 587
	if _, ok := emailSender(cfg, ses).(*notification.SMTPSender); !ok {
		t.Errorf("expected SMTP sender")
	}
}

func TestRunServer_ConfigError(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DATABASE_URL", "")

	err = runServer()
	if err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is required") {
		t.Errorf("error = %q, want it to name DATABASE_URL", err)
	}
}
