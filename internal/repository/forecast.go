package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/deppfellow/nowcasting-api/internal/database"
	"github.com/deppfellow/nowcasting-api/internal/model"
	"github.com/deppfellow/nowcasting-api/internal/sqlerr"
)

const forecastColumns = `
	f.id,
	l.label,
	l.gsp_id,
	COALESCE(l.gsp_name, ''),
	COALESCE(l.gsp_group, ''),
	COALESCE(l.region_name, ''),
	COALESCE(l.installed_capacity_mw, 0),
	f.model_name,
	f.model_version,
	f.forecast_creation_time`

// latestPerGSPQuery picks the newest forecast of every GSP except the
// national aggregate.
const latestPerGSPQuery = `
SELECT DISTINCT ON (l.gsp_id)` + forecastColumns + `
FROM forecast f
JOIN location l ON l.id = f.location_id
WHERE l.gsp_id <> $1
ORDER BY l.gsp_id, f.forecast_creation_time DESC, f.id DESC`

const latestForGSPQuery = `
SELECT` + forecastColumns + `
FROM forecast f
JOIN location l ON l.id = f.location_id
WHERE l.gsp_id = $1
ORDER BY f.forecast_creation_time DESC, f.id DESC
LIMIT 1`

const forecastValuesQuery = `
SELECT forecast_id, target_time, expected_power_generation_megawatts
FROM forecast_value
WHERE forecast_id = ANY($1)
ORDER BY forecast_id, target_time`

// ForecastRepository reads forecasts and their values.
type ForecastRepository struct {
	log *zerolog.Logger
}

// NewForecastRepository constructs a ForecastRepository.
func NewForecastRepository(logger *zerolog.Logger) *ForecastRepository {
	return &ForecastRepository{log: logger}
}

// GetLatestForecasts returns the newest forecast of every GSP, ordered by
// GSP id. The national aggregate is not included. An empty database yields
// an empty, non-nil list.
func (r *ForecastRepository) GetLatestForecasts(ctx context.Context, q database.Querier) (*model.ManyForecasts, error) {
	rows, err := q.Query(ctx, latestPerGSPQuery, model.NationalGSPID)
	if err != nil {
		return nil, fmt.Errorf("querying latest forecasts: %w", err)
	}

	forecasts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Forecast, error) {
		return scanForecast(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning latest forecasts: %w", err)
	}

	if err := r.attachValues(ctx, q, forecasts); err != nil {
		return nil, err
	}

	r.log.Debug().Int("forecasts", len(forecasts)).Msg("loaded latest gsp forecasts")

	return &model.ManyForecasts{Forecasts: forecasts}, nil
}

// GetLatestNationalForecast returns the newest GB-wide forecast.
func (r *ForecastRepository) GetLatestNationalForecast(ctx context.Context, q database.Querier) (*model.Forecast, error) {
	return r.GetLatestForecastForGSP(ctx, q, model.NationalGSPID)
}

// GetLatestForecastForGSP returns the newest forecast for one GSP. A GSP
// without forecasts yields an error wrapping pgx.ErrNoRows.
func (r *ForecastRepository) GetLatestForecastForGSP(ctx context.Context, q database.Querier, gspID int) (*model.Forecast, error) {
	forecast, err := scanForecast(q.QueryRow(ctx, latestForGSPQuery, gspID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sqlerr.NotFound("forecast", fmt.Sprintf("gsp %d", gspID))
		}
		return nil, fmt.Errorf("querying latest forecast for gsp %d: %w", gspID, err)
	}

	forecasts := []model.Forecast{forecast}
	if err := r.attachValues(ctx, q, forecasts); err != nil {
		return nil, err
	}

	return &forecasts[0], nil
}

// attachValues loads the values of all given forecasts in one query and
// assigns them in target-time order.
func (r *ForecastRepository) attachValues(ctx context.Context, q database.Querier, forecasts []model.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	ids := make([]int64, len(forecasts))
	byID := make(map[int64]*model.Forecast, len(forecasts))
	for i := range forecasts {
		ids[i] = forecasts[i].ID
		byID[forecasts[i].ID] = &forecasts[i]
		forecasts[i].ForecastValues = []model.ForecastValue{}
	}

	rows, err := q.Query(ctx, forecastValuesQuery, ids)
	if err != nil {
		return fmt.Errorf("querying forecast values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			forecastID int64
			value      model.ForecastValue
		)
		if err := rows.Scan(&forecastID, &value.TargetTime, &value.ExpectedPowerGenerationMegawatts); err != nil {
			return fmt.Errorf("scanning forecast value: %w", err)
		}

		f, ok := byID[forecastID]
		if !ok {
			return fmt.Errorf("forecast value references unrequested forecast %d", forecastID)
		}
		value.TargetTime = value.TargetTime.UTC()
		f.ForecastValues = append(f.ForecastValues, value)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading forecast values: %w", err)
	}
	return nil
}

func scanForecast(row pgx.Row) (model.Forecast, error) {
	var (
		f       model.Forecast
		created time.Time
	)
	err := row.Scan(
		&f.ID,
		&f.Location.Label,
		&f.Location.GSPID,
		&f.Location.GSPName,
		&f.Location.GSPGroup,
		&f.Location.RegionName,
		&f.Location.InstalledCapacityMW,
		&f.ModelName,
		&f.ModelVersion,
		&created,
	)
	f.ForecastCreationTime = created.UTC()
	return f, err
}
