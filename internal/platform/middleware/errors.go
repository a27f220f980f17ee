package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler renders handler errors as ErrorBody. Classified apperr values
// keep their status; anything unrecognised becomes a 500 with a generic
// message. Diagnostic details are attached only outside production.
func ErrorHandler(logger zerolog.Logger, isProduction bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := classify(err)
		if !isProduction && status >= http.StatusInternalServerError {
			body.Details = err.Error()
		}
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Int("status", status).Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func classify(err error) (int, ErrorBody) {
	if ae, ok := apperr.As(err); ok {
		status := ae.HTTPStatus()
		msg := ae.Message
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
		return status, ErrorBody{Error: msg, Code: string(ae.Kind), Field: ae.Field}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if he.Code == http.StatusMethodNotAllowed {
			msg = "method not allowed"
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		return he.Code, ErrorBody{Error: msg, Code: codeForStatus(he.Code)}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: string(apperr.KindInternal)}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.KindValidation)
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return string(apperr.KindConflict)
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return string(apperr.KindUnavailable)
	case http.StatusGatewayTimeout:
		return "TIMEOUT"
	default:
		if status >= 500 {
			return string(apperr.KindInternal)
		}
		return "REQUEST_FAILED"
	}
}
