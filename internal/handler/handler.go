// Package handler is the first layer after the router.
//
// It binds and validates path parameters, takes the request's database
// session from the context and calls the service layer.
package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/validation"
)

// EmptyRequest is the request of routes without parameters.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

func NewEmptyRequest() *EmptyRequest { return &EmptyRequest{} }

// OneGSPRequest selects a single grid supply point.
type OneGSPRequest struct {
	GSPID int `param:"gsp_id" validate:"min=0,max=338"`
}

func NewOneGSPRequest() *OneGSPRequest { return &OneGSPRequest{} }

// BindParams reads gsp_id as an integer; anything else is a binding error
// naming the parameter.
func (r *OneGSPRequest) BindParams(c echo.Context) error {
	return echo.PathParamsBinder(c).MustInt("gsp_id", &r.GSPID).BindError()
}

func (r *OneGSPRequest) Validate() error {
	return validation.Struct(r)
}
