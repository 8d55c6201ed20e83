package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/nowcasting-api/internal/config"
	"github.com/deppfellow/nowcasting-api/internal/database"
	"github.com/deppfellow/nowcasting-api/internal/handler"
	"github.com/deppfellow/nowcasting-api/internal/middleware"
	"github.com/deppfellow/nowcasting-api/internal/model"
	"github.com/deppfellow/nowcasting-api/internal/repository"
	"github.com/deppfellow/nowcasting-api/internal/server"
	"github.com/deppfellow/nowcasting-api/internal/service"
)

const allowedOrigin = "https://app.nowcasting.io"

var (
	headerColumns = []string{
		"id", "label", "gsp_id", "gsp_name", "gsp_group", "region_name",
		"installed_capacity_mw", "model_name", "model_version", "forecast_creation_time",
	}
	valueColumns = []string{"forecast_id", "target_time", "expected_power_generation_megawatts"}
	created      = time.Date(2026, 6, 1, 11, 30, 0, 0, time.UTC)
)

// mockSession is a pgxmock connection standing in for a pooled connection.
type mockSession struct {
	pgxmock.PgxConnIface
	releases int
}

func (s *mockSession) Release() { s.releases++ }

type mockSessions struct {
	sess     *mockSession
	acquired int
}

func (m *mockSessions) Acquire(context.Context) (database.Session, error) {
	m.acquired++
	return m.sess, nil
}

type stubBoundaries struct {
	fc  *geojson.FeatureCollection
	err error
}

func (s stubBoundaries) Boundaries(context.Context) (*geojson.FeatureCollection, error) {
	return s.fc, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "favicon.ico"), []byte{0, 0, 1, 0}, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(static, handler.OpenAPIPage), []byte("<html>docs</html>"), 0o600))

	obs := config.DefaultObservabilityConfig()
	obs.HealthChecks.Timeout = time.Second

	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			CORSAllowedOrigins: []string{allowedOrigin},
			FaviconPath:        filepath.Join(static, "favicon.ico"),
			StaticDir:          static,
		},
		API: config.APIConfig{
			Title:         "Nowcasting API",
			Version:       "0.1.20",
			Description:   "The Nowcasting API is still under development. It only returns zeros for now.",
			Documentation: "https://api.nowcasting.io/docs",
		},
		Observability: obs,
	}
}

type testApp struct {
	echo     *echo.Echo
	mock     pgxmock.PgxConnIface
	sessions *mockSessions
}

func newTestAppWith(t *testing.T, cfg *config.Config, boundaries stubBoundaries) *testApp {
	t.Helper()

	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close(context.Background()) })

	sessions := &mockSessions{sess: &mockSession{PgxConnIface: mock}}

	log := zerolog.Nop()
	srv := server.NewWithSessions(cfg, &log, sessions)

	services, err := service.NewService(srv, repository.NewRepositories(srv), boundaries)
	require.NoError(t, err)

	e := NewRouter(srv, handler.NewHandlers(srv, services), middleware.NewMiddlewares(srv))
	return &testApp{echo: e, mock: mock, sessions: sessions}
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, testConfig(t), stubBoundaries{fc: geojson.NewFeatureCollection()})
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (a *testApp) expectForecast(gspID int, forecastID int64) {
	a.mock.ExpectQuery(`WHERE l.gsp_id = \$1`).
		WithArgs(gspID).
		WillReturnRows(pgxmock.NewRows(headerColumns).
			AddRow(forecastID, "GSP", gspID, "", "", "", 10.0, "blend", "0.1.0", created))
	a.mock.ExpectQuery("FROM forecast_value").
		WithArgs([]int64{forecastID}).
		WillReturnRows(pgxmock.NewRows(valueColumns).
			AddRow(forecastID, created.Add(30*time.Minute), 0.0).
			AddRow(forecastID, created.Add(60*time.Minute), 0.0))
}

func TestRootReturnsAPIInformation(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body, 4)
	assert.Equal(t, "Nowcasting API", body["title"])
	assert.Equal(t, "0.1.20", body["version"])
	assert.Contains(t, body["description"], "only returns zeros")
	assert.Equal(t, "https://api.nowcasting.io/docs", body["documentation"])
	assert.Zero(t, app.sessions.acquired)
}

func TestCORS(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, allowedOrigin)
	rec := app.do(req)
	assert.Equal(t, allowedOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = app.do(req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSPreflightReflectsHeaders(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, ForecastPrefix+"/gsp", nil)
	req.Header.Set(echo.HeaderOrigin, allowedOrigin)
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "X-Custom-Header")
	rec := app.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, allowedOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "X-Custom-Header", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodDelete)
	assert.Zero(t, app.sessions.acquired)
}

func TestGetForecastsForAllGSPs(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery("DISTINCT ON").
		WithArgs(model.NationalGSPID).
		WillReturnRows(pgxmock.NewRows(headerColumns).
			AddRow(int64(1), "GSP_1", 1, "", "", "", 10.0, "blend", "0.1.0", created).
			AddRow(int64(2), "GSP_2", 2, "", "", "", 20.0, "blend", "0.1.0", created))
	app.mock.ExpectQuery("FROM forecast_value").
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows(valueColumns).
			AddRow(int64(1), created.Add(30*time.Minute), 0.0).
			AddRow(int64(2), created.Add(30*time.Minute), 0.0))

	rec := app.get(ForecastPrefix + "/gsp")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body model.ManyForecasts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Forecasts, 2)
	assert.Equal(t, 1, body.Forecasts[0].Location.GSPID)
	assert.Equal(t, 2, body.Forecasts[1].Location.GSPID)

	assert.Equal(t, 1, app.sessions.acquired)
	assert.Equal(t, 1, app.sessions.sess.releases)
	assert.NoError(t, app.mock.ExpectationsWereMet())
}

func TestGetForecastsForAllGSPsWithoutValues(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery("DISTINCT ON").
		WithArgs(model.NationalGSPID).
		WillReturnRows(pgxmock.NewRows(headerColumns).
			AddRow(int64(1), "GSP_1", 1, "", "", "", 10.0, "blend", "0.1.0", created).
			AddRow(int64(2), "GSP_2", 2, "", "", "", 20.0, "blend", "0.1.0", created))
	app.mock.ExpectQuery("FROM forecast_value").
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows(valueColumns).
			AddRow(int64(1), created.Add(30*time.Minute), 0.0))

	rec := app.get(ForecastPrefix + "/gsp")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body model.ManyForecasts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Forecasts, 2)
	assert.Len(t, body.Forecasts[0].ForecastValues, 1)
	assert.Empty(t, body.Forecasts[1].ForecastValues)
	assert.Contains(t, rec.Body.String(), `"forecast_values":[]`)
}

func TestGetForecastsForAllGSPsEmpty(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery("DISTINCT ON").
		WithArgs(model.NationalGSPID).
		WillReturnRows(pgxmock.NewRows(headerColumns))

	rec := app.get(ForecastPrefix + "/gsp")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"forecasts":[]}`, rec.Body.String())
}

func TestGetForecastsDatabaseError(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery("DISTINCT ON").WillReturnError(errors.New("relation does not exist"))

	rec := app.get(ForecastPrefix + "/gsp")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Equal(t, 1, app.sessions.sess.releases)
}

func TestGetNationalForecast(t *testing.T) {
	app := newTestApp(t)
	app.expectForecast(model.NationalGSPID, 5)

	rec := app.get(ForecastPrefix + "/national")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	location := body["location"].(map[string]any)
	assert.EqualValues(t, 0, location["gsp_id"])
	assert.Len(t, body["forecast_values"], 2)
	assert.Equal(t, 1, app.sessions.sess.releases)
}

func TestGetNationalForecastMissing(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery(`WHERE l.gsp_id = \$1`).
		WithArgs(model.NationalGSPID).
		WillReturnRows(pgxmock.NewRows(headerColumns))

	rec := app.get(ForecastPrefix + "/national")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "Forecast not found", body["message"])
	assert.Equal(t, 1, app.sessions.sess.releases)
}

func TestGetForecastForOneGSP(t *testing.T) {
	app := newTestApp(t)
	app.expectForecast(12, 40)

	rec := app.get(ForecastPrefix + "/gsp/forecast/one_gsp/12")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.EqualValues(t, 12, body["location"].(map[string]any)["gsp_id"])
	assert.NoError(t, app.mock.ExpectationsWereMet())
}

func TestGetForecastForOneGSPInvalidID(t *testing.T) {
	for _, id := range []string{"abc", "339", "-1"} {
		t.Run(id, func(t *testing.T) {
			app := newTestApp(t)

			rec := app.get(ForecastPrefix + "/gsp/forecast/one_gsp/" + id)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, "BAD_REQUEST", body["code"])
			fieldErrors := body["errors"].([]any)
			require.Len(t, fieldErrors, 1)
			assert.Equal(t, "gsp_id", fieldErrors[0].(map[string]any)["field"])

			assert.Equal(t, app.sessions.acquired, app.sessions.sess.releases)
		})
	}
}

func TestGetForecastForOneGSPMissing(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery(`WHERE l.gsp_id = \$1`).
		WithArgs(338).
		WillReturnRows(pgxmock.NewRows(headerColumns))

	rec := app.get(ForecastPrefix + "/gsp/forecast/one_gsp/338")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGSPBoundaries(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewFeature(orb.Polygon{{{-3.8, 50.4}, {-3.6, 50.4}, {-3.6, 50.55}, {-3.8, 50.4}}})
	feature.Properties["gsp_id"] = 1
	fc.Append(feature)

	app := newTestAppWith(t, testConfig(t), stubBoundaries{fc: fc})

	rec := app.get(ForecastPrefix + "/gsp/gsp_boundaries")
	require.Equal(t, http.StatusOK, rec.Code)

	decoded, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, decoded.Features, 1)
	assert.Zero(t, app.sessions.acquired)
}

func TestGetGSPBoundariesFailure(t *testing.T) {
	app := newTestAppWith(t, testConfig(t), stubBoundaries{err: os.ErrNotExist})

	rec := app.get(ForecastPrefix + "/gsp/gsp_boundaries")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFavicon(t *testing.T) {
	cfg := testConfig(t)
	app := newTestAppWith(t, cfg, stubBoundaries{})

	rec := app.get("/favicon.ico")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.FaviconContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, []byte{0, 0, 1, 0}, rec.Body.Bytes())

	require.NoError(t, os.Remove(cfg.Server.FaviconPath))
	rec = app.get("/favicon.ico")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/v0/forecasts/GB/wind")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestStatusHealthy(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery("SELECT 1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	rec := app.get("/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.Equal(t, 1, app.sessions.sess.releases)
}

func TestStatusUnhealthyWhenDatabaseUnreachable(t *testing.T) {
	cfg := testConfig(t)

	poolCfg, err := pgxpool.ParseConfig("postgres://forecast@127.0.0.1:1/forecasts?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := zerolog.Nop()
	db := &database.Database{Pool: pool}
	srv := server.NewWithSessions(cfg, &log, db)
	srv.DB = db

	services, err := service.NewService(srv, repository.NewRepositories(srv), stubBoundaries{})
	require.NoError(t, err)
	e := NewRouter(srv, handler.NewHandlers(srv, services), middleware.NewMiddlewares(srv))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "unhealthy", health["status"])
	dbCheck := health["checks"].(map[string]any)["database"].(map[string]any)
	assert.Equal(t, "unhealthy", dbCheck["status"])
	assert.NotContains(t, dbCheck, "error")
	assert.NotContains(t, rec.Body.String(), "127.0.0.1")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ForecastPrefix+"/gsp", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, rec)["code"])
}

func TestMetricsRecordTranslatedErrorStatus(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery(`WHERE l.gsp_id = \$1`).
		WithArgs(77).
		WillReturnRows(pgxmock.NewRows(headerColumns))

	rec := app.get(ForecastPrefix + "/gsp/forecast/one_gsp/77")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	route := `route="` + ForecastPrefix + `/gsp/forecast/one_gsp/:gsp_id"`
	var statuses []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "nowcasting_api_http_requests_total{") && strings.Contains(line, route) {
			statuses = append(statuses, line)
		}
	}
	require.NotEmpty(t, statuses)
	for _, line := range statuses {
		assert.NotContains(t, line, `status="500"`)
	}
	assert.Condition(t, func() bool {
		for _, line := range statuses {
			if strings.Contains(line, `status="404"`) {
				return true
			}
		}
		return false
	})
}

func TestDocsAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/docs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docs")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = app.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nowcasting_api_http_requests_total"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1, ExpiresIn: time.Minute}
	app := newTestAppWith(t, cfg, stubBoundaries{})

	require.Equal(t, http.StatusOK, app.get("/").Code)

	rec := app.get("/")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(echo.HeaderRetryAfter))
	assert.Equal(t, "TOO_MANY_REQUESTS", decode(t, rec)["code"])
}
