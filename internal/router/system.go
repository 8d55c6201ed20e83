package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deppfellow/nowcasting-api/internal/handler"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// registerSystemRoutes registers endpoints that are not part of the forecast API.
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	// openapi.json and the docs UI assets.
	r.Static("/static", s.Config.Server.StaticDir)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)

	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
