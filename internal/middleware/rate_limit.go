package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"golang.org/x/time/rate"

	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/metrics"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// RateLimitMiddleware limits requests per client IP with a token bucket.
type RateLimitMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

func NewRateLimitMiddleware(s *server.Server, nrApp *newrelic.Application) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// Limit returns the limiter configured by server.rate_limit. A disabled
// limiter passes every request through. /status and /metrics are never
// limited.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	cfg := r.server.Config.Server.RateLimit
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	retryAfter := RetryAfter(cfg.RPS)

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/status", "/metrics":
				return true
			}
			return false
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RPS),
			Burst:     cfg.Burst,
			ExpiresIn: cfg.ExpiresIn,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewForbiddenError("Unable to identify the client", false)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c, identifier)
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(int(retryAfter/time.Second)))
			return errs.NewTooManyRequestsError(fmt.Sprintf("%ds", int(retryAfter/time.Second)))
		},
	})
}

// RecordRateLimitHit counts a rejected request and reports it to New Relic.
func (r *RateLimitMiddleware) RecordRateLimitHit(c echo.Context, identifier string) {
	route := routeLabel(c)
	metrics.RateLimitHits.WithLabelValues(route).Inc()

	GetLogger(c).Warn().
		Str("route", route).
		Str("client", identifier).
		Msg("rate limit exceeded")

	if r.nrApp != nil {
		r.nrApp.RecordCustomEvent("RateLimitHit", map[string]any{
			"endpoint": route,
		})
	}
}

// RetryAfter is the time until a token is available again, rounded up to
// whole seconds.
func RetryAfter(rps float64) time.Duration {
	return time.Duration(math.Ceil(1/rps)) * time.Second
}
