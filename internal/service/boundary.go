package service

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/lib/gsp"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

type BoundaryService struct {
	server   *server.Server
	provider gsp.BoundaryProvider
}

func NewBoundaryService(s *server.Server, provider gsp.BoundaryProvider) *BoundaryService {
	return &BoundaryService{server: s, provider: provider}
}

// GetBoundaries returns the GSP region polygons.
func (s *BoundaryService) GetBoundaries(ctx context.Context) (*geojson.FeatureCollection, error) {
	fc, err := s.provider.Boundaries(ctx)
	if err != nil {
		requestLogger(ctx, s.server).Error().Err(err).Msg("failed to load gsp boundaries")
		return nil, errs.NewInternalServerError()
	}
	return fc, nil
}
