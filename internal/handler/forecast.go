package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/middleware"
	"github.com/deppfellow/nowcasting-api/internal/model"
	"github.com/deppfellow/nowcasting-api/internal/server"
	"github.com/deppfellow/nowcasting-api/internal/service"
)

// ForecastHandler serves the PV forecasts under /v0/forecasts/GB/pv.
type ForecastHandler struct {
	Handler
	forecasts *service.ForecastService
}

func NewForecastHandler(s *server.Server, forecasts *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{
		Handler:   NewHandler(s),
		forecasts: forecasts,
	}
}

// GetForecastsForAllGSPs returns the latest forecast of every GSP.
func (h *ForecastHandler) GetForecastsForAllGSPs(c echo.Context, _ *EmptyRequest) (*model.ManyForecasts, error) {
	middleware.GetLogger(c).Info().Msg("Get forecasts for all gsps")

	sess, err := middleware.GetSession(c)
	if err != nil {
		return nil, err
	}
	return h.forecasts.GetAllForecasts(c.Request().Context(), sess)
}

// GetNationalForecast returns the latest GB-wide forecast.
func (h *ForecastHandler) GetNationalForecast(c echo.Context, _ *EmptyRequest) (*model.Forecast, error) {
	middleware.GetLogger(c).Debug().Msg("Get national forecasts")

	sess, err := middleware.GetSession(c)
	if err != nil {
		return nil, err
	}
	return h.forecasts.GetNationalForecast(c.Request().Context(), sess)
}

// GetForecastForOneGSP returns the latest forecast of the GSP in the path.
func (h *ForecastHandler) GetForecastForOneGSP(c echo.Context, req *OneGSPRequest) (*model.Forecast, error) {
	middleware.GetLogger(c).Info().Int("gsp_id", req.GSPID).Msg("Get forecast for one gsp")

	sess, err := middleware.GetSession(c)
	if err != nil {
		return nil, err
	}
	return h.forecasts.GetForecastForGSP(c.Request().Context(), sess, req.GSPID)
}
