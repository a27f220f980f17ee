package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const fallbackBodyLimit = 1 << 20

// BodyLimit caps request bodies at defaultLimit, or transcriptLimit for
// POST .../notes/generate. Sizes take an optional K, M or G suffix ("512K",
// "5M"); anything unparseable falls back to 1 MiB.
//
// A declared Content-Length over the cap is answered with 413 at once.
// Otherwise the body is capped while the handler reads it, and the read
// fails with a 413 HTTPError.
func BodyLimit(defaultLimit, transcriptLimit string) echo.MiddlewareFunc {
	std := parseLimit(defaultLimit)
	transcript := parseLimit(transcriptLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := std
			if req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/notes/generate") {
				limit = transcript
			}
			if req.ContentLength > limit {
				return c.JSON(http.StatusRequestEntityTooLarge, ErrorBody{
					Error: fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit),
					Code:  codeForStatus(http.StatusRequestEntityTooLarge),
				})
			}

			req.Body = cappedBody{http.MaxBytesReader(c.Response(), req.Body, limit)}
			return next(c)
		}
	}
}

// cappedBody reports an overrun as an echo 413 so the central error handler
// renders it.
type cappedBody struct {
	io.ReadCloser
}

func (b cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"G", 30},
	{"MB", 20}, {"M", 20},
	{"KB", 10}, {"K", 10},
}

func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, shift = strings.TrimSuffix(s, u.suffix), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallbackBodyLimit
	}
	return n << shift
}
