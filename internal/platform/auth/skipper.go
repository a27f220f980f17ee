package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicPaths lists routes reachable without a bearer token: infrastructure
// endpoints, practice signup, portal registration and the plan catalogue.
var publicPaths = map[string]bool{
	"/health":                    true,
	"/health/db":                 true,
	"/metrics":                   true,
	"/api/v1/accounts":           true,
	"/api/v1/portal/register":    true,
	"/api/v1/subscription/plans": true,
}

// AuthSkipper returns true for requests that should skip authentication.
// Preflight requests never carry credentials.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
