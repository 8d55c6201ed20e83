// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/handler"
	"github.com/deppfellow/nowcasting-api/internal/middleware"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// ForecastPrefix is where the PV forecast routes are mounted.
const ForecastPrefix = "/v0/forecasts/GB/pv"

// NewRouter builds the echo instance with the global middleware chain and
// every route.
//
// Recover runs inside the global chain but outside the per-route session
// middleware, so a panicking handler still releases its session.
func NewRouter(s *server.Server, h *handler.Handlers, m *middleware.Middlewares) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = m.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.CORS(),
		m.Global.Secure(),
		m.Global.RequestLogger(),
		m.Metrics.Record(),
		m.RateLimit.Limit(),
		m.Global.Recover(),
	)

	registerSystemRoutes(router, s, h)
	registerRootRoutes(router, h)
	registerForecastRoutes(router, h, m)

	return router
}

func registerRootRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/", handler.Handle(h.Root.Handler, h.Root.GetAPIInformation, http.StatusOK, handler.NewEmptyRequest))
	r.GET("/favicon.ico", handler.HandleFile(h.Root.Handler, h.Root.GetFavicon, handler.NewEmptyRequest, handler.FaviconContentType))
}

// registerForecastRoutes mounts the forecast router and its nested GSP
// sub-router. Only routes that read forecasts take a database session.
func registerForecastRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	session := m.Session.Session()

	pv := r.Group(ForecastPrefix)
	pv.GET("/gsp", handler.Handle(h.Forecast.Handler, h.Forecast.GetForecastsForAllGSPs, http.StatusOK, handler.NewEmptyRequest), session)
	pv.GET("/national", handler.Handle(h.Forecast.Handler, h.Forecast.GetNationalForecast, http.StatusOK, handler.NewEmptyRequest), session)

	gsp := pv.Group("/gsp")
	gsp.GET("/forecast/one_gsp/:gsp_id", handler.Handle(h.Forecast.Handler, h.Forecast.GetForecastForOneGSP, http.StatusOK, handler.NewOneGSPRequest), session)
	gsp.GET("/gsp_boundaries", handler.Handle(h.GSP.Handler, h.GSP.GetGSPBoundaries, http.StatusOK, handler.NewEmptyRequest))
}
