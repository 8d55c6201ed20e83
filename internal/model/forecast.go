// Package model holds the forecast records served by the API.
//
// The records are produced by the ingestion side and only ever read here.
package model

import (
	"fmt"
	"time"
)

// NationalGSPID is the location id under which the GB-wide aggregate is stored.
const NationalGSPID = 0

// MaxGSPID is the highest grid supply point id in GB.
const MaxGSPID = 338

// Location is the region a forecast applies to.
type Location struct {
	Label               string  `json:"label" validate:"required"`
	GSPID               int     `json:"gsp_id" validate:"gte=0,lte=338"`
	GSPName             string  `json:"gsp_name"`
	GSPGroup            string  `json:"gsp_group"`
	RegionName          string  `json:"region_name"`
	InstalledCapacityMW float64 `json:"installed_capacity_mw" validate:"gte=0"`
}

// ForecastValue is one point of the predicted PV generation curve.
type ForecastValue struct {
	TargetTime                       time.Time `json:"target_time" validate:"required"`
	ExpectedPowerGenerationMegawatts float64   `json:"expected_power_generation_megawatts" validate:"gte=0"`
}

// Forecast is one region's prediction.
type Forecast struct {
	// ID is the storage key, used to stitch values onto their forecast.
	ID int64 `json:"-"`

	Location             Location        `json:"location"`
	ModelName            string          `json:"model_name" validate:"required"`
	ModelVersion         string          `json:"model_version" validate:"required"`
	ForecastCreationTime time.Time       `json:"forecast_creation_time" validate:"required"`

	// ForecastValues is empty, never nil, while a forecast has no values yet.
	ForecastValues []ForecastValue `json:"forecast_values" validate:"required,dive"`
}

// ManyForecasts wraps the latest forecast of several GSPs, ordered by GSP id.
type ManyForecasts struct {
	Forecasts []Forecast `json:"forecasts" validate:"dive"`
}

// CheckOrdered reports an error unless the forecast values are strictly
// increasing in target time.
func (f *Forecast) CheckOrdered() error {
	for i := 1; i < len(f.ForecastValues); i++ {
		prev, cur := f.ForecastValues[i-1].TargetTime, f.ForecastValues[i].TargetTime
		if !cur.After(prev) {
			return fmt.Errorf("gsp %d: forecast value %d at %s is not after %s",
				f.Location.GSPID, i, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}
