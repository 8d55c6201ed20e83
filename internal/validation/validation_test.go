package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/nowcasting-api/internal/errs"
)

type gspRequest struct {
	GSPID int `param:"gsp_id" validate:"min=0,max=338"`
}

func (r *gspRequest) BindParams(c echo.Context) error {
	return echo.PathParamsBinder(c).MustInt("gsp_id", &r.GSPID).BindError()
}

func (r *gspRequest) Validate() error { return Struct(r) }

type queryRequest struct {
	Model string `query:"model" validate:"required,oneof=blend pvnet"`
}

func (r *queryRequest) Validate() error { return Struct(r) }

type customRequest struct{}

func (r *customRequest) Validate() error {
	return CustomValidationErrors{{Field: "start", Message: "must be before end"}}
}

func newContext(target string, params ...string) echo.Context {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	return c
}

func requireBadRequest(t *testing.T, err error) *errs.HTTPError {
	t.Helper()

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "BAD_REQUEST", httpErr.Code)
	return httpErr
}

func TestBindAndValidateValid(t *testing.T) {
	req := &gspRequest{}
	require.NoError(t, BindAndValidate(newContext("/", "gsp_id", "338"), req))
	assert.Equal(t, 338, req.GSPID)
}

func TestBindAndValidateNonInteger(t *testing.T) {
	httpErr := requireBadRequest(t, BindAndValidate(newContext("/", "gsp_id", "abc"), &gspRequest{}))

	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "gsp_id", httpErr.Errors[0].Field)
}

func TestBindAndValidateOutOfRange(t *testing.T) {
	tests := []struct {
		value string
		msg   string
	}{
		{"339", "must not exceed 338"},
		{"-1", "must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			httpErr := requireBadRequest(t, BindAndValidate(newContext("/", "gsp_id", tt.value), &gspRequest{}))

			require.Len(t, httpErr.Errors, 1)
			assert.Equal(t, "gsp_id", httpErr.Errors[0].Field)
			assert.Equal(t, tt.msg, httpErr.Errors[0].Error)
			assert.True(t, httpErr.Override)
		})
	}
}

func TestBindAndValidateQuery(t *testing.T) {
	require.NoError(t, BindAndValidate(newContext("/?model=blend"), &queryRequest{}))

	httpErr := requireBadRequest(t, BindAndValidate(newContext("/?model=other"), &queryRequest{}))
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "model", httpErr.Errors[0].Field)
	assert.Equal(t, "must be one of: blend pvnet", httpErr.Errors[0].Error)

	httpErr = requireBadRequest(t, BindAndValidate(newContext("/"), &queryRequest{}))
	assert.Equal(t, "is required", httpErr.Errors[0].Error)
}

func TestBindAndValidateCustomErrors(t *testing.T) {
	httpErr := requireBadRequest(t, BindAndValidate(newContext("/"), &customRequest{}))

	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, errs.FieldError{Field: "start", Error: "must be before end"}, httpErr.Errors[0])
}
