package service

import (
	"github.com/deppfellow/nowcasting-api/internal/lib/gsp"
	"github.com/deppfellow/nowcasting-api/internal/repository"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

type Services struct {
	Forecast *ForecastService
	Boundary *BoundaryService
}

// NewService wires the services over the repositories. boundaries may be
// nil, in which case the file named by server.gsp_boundaries_path is used.
func NewService(s *server.Server, repos *repository.Repositories, boundaries gsp.BoundaryProvider) (*Services, error) {
	if boundaries == nil {
		boundaries = gsp.NewFileBoundaryProvider(s.Config.Server.GSPBoundariesPath, s.Logger)
	}

	return &Services{
		Forecast: NewForecastService(s, repos.Forecast),
		Boundary: NewBoundaryService(s, boundaries),
	}, nil
}
