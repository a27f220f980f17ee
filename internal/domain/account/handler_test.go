package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionably/practice/internal/platform/middleware"
)

func newTestServer() (*echo.Echo, *fixture) {
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), true)
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return e, f
}

func postAccount(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const signup = `{"plan":"essential","first_name":"Ada","last_name":"Shaw","email":"ada@example.com",
	"practice_name":"Shaw Counseling","username":"adashaw","password":"correct horse"}`

func TestHandler_Create(t *testing.T) {
	e, _ := newTestServer()

	rec := postAccount(e, signup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
		Subscription struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Plan   string `json:"plan"`
			AddOn  string `json:"add_on"`
			Amount string `json:"amount"`
		} `json:"subscription"`
		NextSteps struct {
			Message string `json:"message"`
		} `json:"next_steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "adashaw", body.User.Username)
	assert.Equal(t, "admin", body.User.Role)
	assert.Equal(t, "essential", body.Subscription.Plan)
	assert.Equal(t, "none", body.Subscription.AddOn)
	assert.Equal(t, "trialing", body.Subscription.Status)
	assert.Equal(t, "40", body.Subscription.Amount)
	assert.Equal(t, "Your free trial has started!", body.NextSteps.Message)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandler_Create_StatusCodes(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		e, _ := newTestServer()
		rec := postAccount(e, `{"plan":"professional","first_name":"Ada","last_name":"Shaw",
			"email":"ada@example.com","practice_name":"P","username":"ada","password":"longenough"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "add_on")
	})
	t.Run("malformed body", func(t *testing.T) {
		e, _ := newTestServer()
		rec := postAccount(e, `{"plan":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("conflict", func(t *testing.T) {
		e, _ := newTestServer()
		require.Equal(t, http.StatusCreated, postAccount(e, signup).Code)
		assert.Equal(t, http.StatusConflict, postAccount(e, signup).Code)
	})
	t.Run("database down", func(t *testing.T) {
		e, f := newTestServer()
		f.repo.pingErr = assert.AnError
		assert.Equal(t, http.StatusServiceUnavailable, postAccount(e, signup).Code)
	})
	t.Run("payment processor down", func(t *testing.T) {
		e, f := newTestServer()
		f.pay.CustomerErr = assert.AnError
		assert.Equal(t, http.StatusBadGateway, postAccount(e, signup).Code)
	})
	t.Run("insert failure", func(t *testing.T) {
		e, f := newTestServer()
		f.repo.settingsErr = assert.AnError
		rec := postAccount(e, signup)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}
