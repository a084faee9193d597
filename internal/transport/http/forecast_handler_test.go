package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "fincast/internal/errors"
	"fincast/internal/forecast"
	"fincast/internal/services"
	"fincast/internal/shared/testutil"
	"fincast/pkg/contracts/domain"
)

type mockForecastService struct {
	mock.Mock
}

func (m *mockForecastService) Result(ctx context.Context) (*forecast.Result, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*forecast.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Forecasts(ctx context.Context, scenario string) ([]domain.ForecastRecord, error) {
	args := m.Called(ctx, scenario)
	if v := args.Get(0); v != nil {
		return v.([]domain.ForecastRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) ForecastsForYear(ctx context.Context, year int) ([]domain.ForecastRecord, error) {
	args := m.Called(ctx, year)
	if v := args.Get(0); v != nil {
		return v.([]domain.ForecastRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Matrix(ctx context.Context) (*domain.ImpactMatrix, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*domain.ImpactMatrix), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Indicators(ctx context.Context) ([]services.IndicatorSummary, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]services.IndicatorSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) History(ctx context.Context, code string) (forecast.Series, error) {
	args := m.Called(ctx, code)
	if v := args.Get(0); v != nil {
		return v.(forecast.Series), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Overview(ctx context.Context, year int) (*services.Overview, error) {
	args := m.Called(ctx, year)
	if v := args.Get(0); v != nil {
		return v.(*services.Overview), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Events(ctx context.Context) ([]services.EventSummary, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]services.EventSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecastService) Refresh(ctx context.Context) (*services.Snapshot, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*services.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

var anyCtx = mock.Anything

func setupRouter(t *testing.T) (*mockForecastService, chi.Router) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := &mockForecastService{}
	h := NewForecastHandler(svc, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return svc, r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func sampleResult() *forecast.Result {
	return &forecast.Result{
		RunID:       "run-1",
		Policy:      domain.PolicyCumulative,
		GeneratedAt: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		Margin:      5.262977,
		Records: []domain.ForecastRecord{
			{Year: 2025, Scenario: domain.ScenarioBase, AccessRate: domain.Float(55.51),
				LowerCI: domain.Float(50.25), UpperCI: domain.Float(60.78)},
		},
		Warnings: []forecast.Warning{{Kind: forecast.WarningAmbiguousScale, Message: "scaled"}},
	}
}

func TestGetForecasts(t *testing.T) {
	svc, r := setupRouter(t)
	res := sampleResult()
	svc.On("Forecasts", anyCtx, "Base").Return(res.Records, nil).Once()
	svc.On("Result", anyCtx).Return(res, nil).Once()

	rec := serve(r, http.MethodGet, "/api/forecasts?scenario=Base")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ForecastsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "Base", body.Scenario)
	require.Len(t, body.Records, 1)
	assert.Equal(t, 55.51, *body.Records[0].AccessRate)
	assert.Nil(t, body.Records[0].UsageRate)
	assert.Len(t, body.Warnings, 1)
}

func TestGetForecasts_NullRates(t *testing.T) {
	svc, r := setupRouter(t)
	records := []domain.ForecastRecord{{Year: 2026, Scenario: "Base", UsageRate: domain.Float(9)}}
	svc.On("Forecasts", anyCtx, "").Return(records, nil)
	svc.On("Result", anyCtx).Return(sampleResult(), nil)

	rec := serve(r, http.MethodGet, "/api/forecasts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_rate":null`)
	assert.Contains(t, rec.Body.String(), `"usage_rate":9`)
}

func TestGetForecasts_BadScenario(t *testing.T) {
	_, r := setupRouter(t)

	rec := serve(r, http.MethodGet, "/api/forecasts?scenario=Moderate")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeValidation, decode(t, rec)["type"])
}

func TestGetForecasts_MissingInput(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("Forecasts", anyCtx, "").
		Return(nil, fmt.Errorf("load observations: %w", apierrors.NewMissingInputError("data/raw/unified.xlsx")))

	rec := serve(r, http.MethodGet, "/api/forecasts")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierrors.TypeInputMissing, decode(t, rec)["type"])
}

func TestGetForecastsForYear(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(*mockForecastService)
		wantStatus int
		wantType   string
	}{
		{
			name: "found",
			path: "/api/forecasts/2025",
			setup: func(m *mockForecastService) {
				m.On("ForecastsForYear", anyCtx, 2025).Return(sampleResult().Records, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "no rows",
			path: "/api/forecasts/2031",
			setup: func(m *mockForecastService) {
				m.On("ForecastsForYear", anyCtx, 2031).Return(nil, fmt.Errorf("%w: year 2031", services.ErrNoForecast))
			},
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeForecastMissing,
		},
		{
			name:       "not a year",
			path:       "/api/forecasts/next",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "out of range",
			path:       "/api/forecasts/1200",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, r := setupRouter(t)
			if tt.setup != nil {
				tt.setup(svc)
			}

			rec := serve(r, http.MethodGet, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decode(t, rec)["type"])
			}
		})
	}
}

func TestGetMatrix(t *testing.T) {
	svc, r := setupRouter(t)
	m := testutil.SampleMatrix()
	m.Set("Fayda ID (2026)", testutil.AccessIndicator, domain.Magnitude{Value: 1, Unit: domain.UnitPercentagePoints})
	svc.On("Matrix", anyCtx).Return(m, nil)

	rec := serve(r, http.MethodGet, "/api/matrix")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MatrixResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{testutil.AccessIndicator, testutil.UsageIndicator}, body.Indicators)
	require.Len(t, body.Rows, 4)
	assert.Equal(t, "Telebirr Launch (2025)", body.Rows[0].Event)
	assert.Equal(t, 2025, body.Rows[0].Year)
	assert.Equal(t, 3.0, body.Rows[0].Values[testutil.UsageIndicator])
	assert.NotContains(t, body.Rows[1].Values, testutil.UsageIndicator, "unset cells are omitted")
	assert.Equal(t, "pp", body.Rows[3].Units[testutil.AccessIndicator])
}

func TestGetHistory(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("History", anyCtx, "ACC_OWNERSHIP").Return(forecast.Series(testutil.SampleHistory), nil)
	svc.On("History", anyCtx, "USG_P2P").Return(nil, fmt.Errorf("%w: USG_P2P", services.ErrIndicatorNotFound))

	rec := serve(r, http.MethodGet, "/api/history/ACC_OWNERSHIP")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ACC_OWNERSHIP", body["indicator"])
	assert.Len(t, body["points"], 5)

	rec = serve(r, http.MethodGet, "/api/history/USG_P2P")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "indicator USG_P2P not found")
}

func TestGetIndicatorsAndEvents(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("Indicators", anyCtx).Return([]services.IndicatorSummary{{Code: "ACC_OWNERSHIP", Points: 5}}, nil)
	svc.On("Events", anyCtx).Return(nil, nil)

	rec := serve(r, http.MethodGet, "/api/indicators")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])

	rec = serve(r, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestGetOverview(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("Overview", anyCtx, 0).Return(&services.Overview{Year: 2024, AccessRate: domain.Float(49)}, nil)
	svc.On("Overview", anyCtx, 2021).Return(&services.Overview{Year: 2021, AccessRate: domain.Float(46)}, nil)

	rec := serve(r, http.MethodGet, "/api/overview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2024.0, decode(t, rec)["year"])

	rec = serve(r, http.MethodGet, "/api/overview?year=2021")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 46.0, body["access_rate"])
	assert.Nil(t, body["usage_rate"])

	rec = serve(r, http.MethodGet, "/api/overview?year=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("Refresh", anyCtx).Return(&services.Snapshot{
		Result:       sampleResult(),
		MatrixSource: services.MatrixSourceFile,
	}, nil).Once()

	rec := serve(r, http.MethodPost, "/api/forecasts/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, 1.0, body["rows"])
	assert.Equal(t, "file", body["matrix_source"])

	rec = serve(r, http.MethodGet, "/api/forecasts/refresh")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "GET falls through to the {year} route")
}

func TestHandler_Timeout(t *testing.T) {
	svc, r := setupRouter(t)
	svc.On("Matrix", anyCtx).Return(nil, context.DeadlineExceeded)

	rec := serve(r, http.MethodGet, "/api/matrix")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
