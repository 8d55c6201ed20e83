package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deppfellow/nowcasting-api/internal/database"
	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/model"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// ForecastReader is the repository surface the forecast service needs.
type ForecastReader interface {
	GetLatestForecasts(ctx context.Context, q database.Querier) (*model.ManyForecasts, error)
	GetLatestNationalForecast(ctx context.Context, q database.Querier) (*model.Forecast, error)
	GetLatestForecastForGSP(ctx context.Context, q database.Querier, gspID int) (*model.Forecast, error)
}

type ForecastService struct {
	server   *server.Server
	repo     ForecastReader
	validate *validator.Validate
}

func NewForecastService(s *server.Server, repo ForecastReader) *ForecastService {
	return &ForecastService{
		server:   s,
		repo:     repo,
		validate: validator.New(),
	}
}

// GetAllForecasts returns the latest forecast of every GSP.
func (s *ForecastService) GetAllForecasts(ctx context.Context, q database.Querier) (*model.ManyForecasts, error) {
	forecasts, err := s.repo.GetLatestForecasts(ctx, q)
	if err != nil {
		return nil, err
	}

	for i := range forecasts.Forecasts {
		if err := s.check(ctx, &forecasts.Forecasts[i]); err != nil {
			return nil, err
		}
	}
	return forecasts, nil
}

// GetNationalForecast returns the latest GB-wide forecast.
func (s *ForecastService) GetNationalForecast(ctx context.Context, q database.Querier) (*model.Forecast, error) {
	forecast, err := s.repo.GetLatestNationalForecast(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, forecast); err != nil {
		return nil, err
	}
	return forecast, nil
}

// GetForecastForGSP returns the latest forecast for one GSP.
func (s *ForecastService) GetForecastForGSP(ctx context.Context, q database.Querier, gspID int) (*model.Forecast, error) {
	forecast, err := s.repo.GetLatestForecastForGSP(ctx, q, gspID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, forecast); err != nil {
		return nil, err
	}
	return forecast, nil
}

// check rejects records the response model cannot represent. The cause is
// logged; the client only sees a 500.
func (s *ForecastService) check(ctx context.Context, f *model.Forecast) error {
	err := s.validate.Struct(f)
	if err == nil {
		err = f.CheckOrdered()
	}
	if err == nil {
		return nil
	}

	requestLogger(ctx, s.server).Error().
		Err(fmt.Errorf("malformed forecast record: %w", err)).
		Int("gsp_id", f.Location.GSPID).
		Str("model_name", f.ModelName).
		Msg("forecast record failed validation")

	return errs.NewInternalServerError()
}

// requestLogger prefers the request-scoped logger stored on ctx.
func requestLogger(ctx context.Context, s *server.Server) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.Logger
}
