package http

import (
	"context"

	"fincast/internal/forecast"
	"fincast/internal/services"
	"fincast/pkg/contracts/domain"
)

// ForecastServiceInterface defines the forecast operations the API exposes
type ForecastServiceInterface interface {
	Result(ctx context.Context) (*forecast.Result, error)
	Forecasts(ctx context.Context, scenario string) ([]domain.ForecastRecord, error)
	ForecastsForYear(ctx context.Context, year int) ([]domain.ForecastRecord, error)
	Matrix(ctx context.Context) (*domain.ImpactMatrix, error)
	Indicators(ctx context.Context) ([]services.IndicatorSummary, error)
	History(ctx context.Context, code string) (forecast.Series, error)
	Overview(ctx context.Context, year int) (*services.Overview, error)
	Events(ctx context.Context) ([]services.EventSummary, error)
	Refresh(ctx context.Context) (*services.Snapshot, error)
}

var _ ForecastServiceInterface = (*services.ForecastService)(nil)
