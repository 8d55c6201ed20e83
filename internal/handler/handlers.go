package handler

import (
	"github.com/deppfellow/nowcasting-api/internal/server"
	"github.com/deppfellow/nowcasting-api/internal/service"
)

// Handlers is a container that groups all HTTP handlers.
type Handlers struct {
	Root     *RootHandler
	Forecast *ForecastHandler
	GSP      *GSPHandler
	Health   *HealthHandler
	OpenAPI  *OpenAPIHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Root:     NewRootHandler(s),
		Forecast: NewForecastHandler(s, services.Forecast),
		GSP:      NewGSPHandler(s, services.Boundary),
		Health:   NewHealthHandler(s),
		OpenAPI:  NewOpenAPIHandler(s),
	}
}
