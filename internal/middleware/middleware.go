// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns
// such as request logging, CORS, rate limiting, metrics, panic recovery
// and the per-request database session.
package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/sqlerr"
)

// responseStatus is the status the client will receive. When a handler
// returns an error the global error handler has not written the response
// yet, so the error goes through the same translation that handler applies.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return echoErr.Code
	}

	if errors.As(sqlerr.HandleError(err), &httpErr) {
		return httpErr.Status
	}
	return echo.ErrInternalServerError.Code
}

// routeLabel is the matched route template, never the raw path, so
// metrics cardinality stays bounded.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
