package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionably/practice/internal/platform/apperr"
)

func renderError(t *testing.T, err error, production bool) (*httptest.ResponseRecorder, ErrorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop(), production)(err, c)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestErrorHandler_AppErrKinds(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.Validation("email", "email is required"), http.StatusBadRequest, "email is required"},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("client")), http.StatusNotFound, "client not found"},
		{apperr.Conflict("username already taken"), http.StatusConflict, "username already taken"},
		{apperr.Unavailable("database unavailable", errors.New("dial")), http.StatusServiceUnavailable, "database unavailable"},
		{apperr.Internal("insert failed", errors.New("pq")), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		rec, body := renderError(t, tt.err, true)
		assert.Equal(t, tt.code, rec.Code)
		assert.Equal(t, tt.msg, body.Error)
	}
}

func TestErrorHandler_ValidationCarriesField(t *testing.T) {
	_, body := renderError(t, apperr.Validation("amount", "amount must be positive"), true)
	assert.Equal(t, "amount", body.Field)
	assert.Equal(t, string(apperr.KindValidation), body.Code)
}

func TestErrorHandler_MethodNotAllowed(t *testing.T) {
	rec, body := renderError(t, echo.ErrMethodNotAllowed, true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", body.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Code)
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	rec, body := renderError(t, errors.New("connection reset by peer"), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", body.Error)
	assert.Empty(t, body.Details)
}

func TestErrorHandler_DetailsOutsideProduction(t *testing.T) {
	_, body := renderError(t, errors.New("connection reset by peer"), false)
	assert.Equal(t, "connection reset by peer", body.Details)
}

func TestErrorHandler_RoutedMethodNotAllowed(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop(), true)
	e.GET("/subscription/plans", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodDelete, "/subscription/plans", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
