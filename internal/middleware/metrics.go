package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route template.
type MetricsMiddleware struct {
	now func() time.Time
}

func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{now: time.Now}
}

func (m *MetricsMiddleware) Record() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := m.now()
			err := next(c)

			method := c.Request().Method
			route := routeLabel(c)
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(m.now().Sub(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(responseStatus(c, err))).Inc()

			return err
		}
	}
}
