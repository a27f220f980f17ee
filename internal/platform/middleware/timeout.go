package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a context deadline on each request. If the handler has
// not returned when the deadline passes, a 504 JSON error is written.
//
// Message polling endpoints are short requests so nothing is exempt; handlers
// that need longer (note generation) derive their own deadline, which cannot
// exceed this one.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					if !c.Response().Committed {
						return c.JSON(http.StatusGatewayTimeout, ErrorBody{
							Error: "request timed out",
							Code:  codeForStatus(http.StatusGatewayTimeout),
						})
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}
