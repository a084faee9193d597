package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeOTel_Prometheus(t *testing.T) {
	logger := NewLogger(io.Discard, "info")

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "fincast-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Tracer)

	metrics, err := NewForecastMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRun(ctx, "cumulative", 9, map[string]int{"empty_history": 1}, 20*time.Millisecond, nil)
	metrics.RecordHTTPRequest(ctx, http.MethodGet, "/api/forecasts", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "forecast_runs_total")
	assert.Contains(t, body, "forecast_rows_total")
	assert.Contains(t, body, "forecast_warnings_total")
	assert.Contains(t, body, "forecast_run_duration_seconds")
	assert.Contains(t, body, "go_goroutines")
}

func TestInitializeOTel_Disabled(t *testing.T) {
	var buf bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "fincast-test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, NewLogger(&buf, "info"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.MeterProvider)
	require.NotNil(t, providers.Meter)

	metrics, err := NewForecastMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordRun(context.Background(), "ramp", 0, nil, time.Millisecond, errors.New("boom"))
}

func TestInitializeOTel_UnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{
		ServiceName:    "fincast-test",
		TraceExporter:  "jaeger",
		MetricExporter: "none",
	}, NewLogger(io.Discard, "info"))
	assert.Error(t, err)
}

func TestTraceIDFromSpan(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "fincast-test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, NewLogger(io.Discard, "info"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "forecast.run")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, traceID, GetTraceID(ctx))
}

func TestForecastMetrics_NilSafe(t *testing.T) {
	var m *ForecastMetrics
	m.RecordRun(context.Background(), "cumulative", 3, nil, time.Second, nil)
	m.RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Second)
}
