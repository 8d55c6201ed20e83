package repository

import (
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Forecast *ForecastRepository
}

// NewRepositories constructs the repository container.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Forecast: NewForecastRepository(s.Logger),
	}
}
