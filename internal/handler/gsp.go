package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb/geojson"

	"github.com/deppfellow/nowcasting-api/internal/middleware"
	"github.com/deppfellow/nowcasting-api/internal/server"
	"github.com/deppfellow/nowcasting-api/internal/service"
)

// GSPHandler serves the GSP sub-router.
type GSPHandler struct {
	Handler
	boundaries *service.BoundaryService
}

func NewGSPHandler(s *server.Server, boundaries *service.BoundaryService) *GSPHandler {
	return &GSPHandler{
		Handler:    NewHandler(s),
		boundaries: boundaries,
	}
}

// GetGSPBoundaries returns the GSP region polygons as GeoJSON.
func (h *GSPHandler) GetGSPBoundaries(c echo.Context, _ *EmptyRequest) (*geojson.FeatureCollection, error) {
	middleware.GetLogger(c).Info().Msg("Get gsp boundaries")
	return h.boundaries.GetBoundaries(c.Request().Context())
}
