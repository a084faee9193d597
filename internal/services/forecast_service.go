package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"fincast/internal/config"
	"fincast/internal/dataprocessing"
	apperrors "fincast/internal/errors"
	"fincast/internal/forecast"
	"fincast/internal/impact"
	"fincast/internal/infrastructure"
	"fincast/pkg/contracts/domain"
)

// CrossoverIndicator is the P2P/ATM crossover ratio shown on the overview
const CrossoverIndicator = "USG_CROSSOVER"

// Matrix sources reported on a snapshot
const (
	MatrixSourceFile  = "file"
	MatrixSourceBuilt = "built"
	MatrixSourceEmpty = "empty"
)

const snapshotKey = "snapshot"

// ObservationLoader reads the observation table
type ObservationLoader interface {
	Load(path, sheet string) (*dataprocessing.LoadResult, error)
}

// Snapshot is one immutable load of the inputs plus the forecast computed from them
type Snapshot struct {
	Records      []domain.Observation
	Matrix       *domain.ImpactMatrix
	MatrixSource string
	Result       *forecast.Result
	LoadedAt     time.Time
}

// IndicatorSummary describes one observation indicator
type IndicatorSummary struct {
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	Pillar    string `json:"pillar,omitempty"`
	Points    int    `json:"points"`
	FirstYear int    `json:"first_year"`
	LastYear  int    `json:"last_year"`
}

// EventSummary is one row of the event catalogue
type EventSummary struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Year      int    `json:"year,omitempty"`
	Category  string `json:"category,omitempty"`
	Indicator string `json:"indicator,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Overview is the headline figures for one year
type Overview struct {
	Year       int      `json:"year"`
	AccessRate *float64 `json:"access_rate"`
	UsageRate  *float64 `json:"usage_rate"`
	Crossover  *float64 `json:"crossover"`
	Events     int      `json:"events"`
	Warnings   int      `json:"warnings"`
	RunID      string   `json:"run_id"`
}

// ForecastService loads inputs, runs the projector and serves the cached result
type ForecastService struct {
	cfg       config.ForecastConfig
	paths     *config.Paths
	sheet     string
	loader    ObservationLoader
	projector *forecast.Projector
	cache     *cache.Cache
	group     singleflight.Group
	metrics   *infrastructure.ForecastMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewForecastService wires the forecast pipeline. metrics and tracer may be nil.
func NewForecastService(cfg *config.Config, paths *config.Paths, loader ObservationLoader, metrics *infrastructure.ForecastMetrics, tracer trace.Tracer, logger *slog.Logger) (*ForecastService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}

	opts := forecast.OptionsFromConfig(cfg.Forecast)
	ramp, err := impact.ScheduleFor(cfg.Forecast.RampSource, cfg.Forecast.RampStart, opts.Years, cfg.Forecast.Ramp)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid ramp configuration", err)
	}
	opts.Ramp = ramp

	projector, err := forecast.NewProjector(opts, logger)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid forecast configuration", err)
	}

	logger.Info("ForecastService initialized",
		slog.String("data_file", paths.DataFile),
		slog.String("matrix_file", paths.MatrixFile),
		slog.String("policy", string(opts.Policy)),
		slog.String("ramp_source", cfg.Forecast.RampSource),
		slog.Duration("cache_ttl", cfg.Forecast.CacheTTL))

	return &ForecastService{
		cfg:       cfg.Forecast,
		paths:     paths,
		sheet:     cfg.Paths.DataSheet,
		loader:    loader,
		projector: projector,
		cache:     cache.New(cfg.Forecast.CacheTTL, 2*cfg.Forecast.CacheTTL),
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger.With(slog.String("service", "forecast")),
	}, nil
}

// Snapshot returns the cached snapshot, building it when missing or expired.
// Concurrent callers share one build.
func (s *ForecastService) Snapshot(ctx context.Context) (*Snapshot, error) {
	if v, ok := s.cache.Get(snapshotKey); ok {
		return v.(*Snapshot), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(snapshotKey, func() (interface{}, error) {
		// detached so one cancelled caller does not fail the others
		snap, err := s.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.cache.Set(snapshotKey, snap, cache.DefaultExpiration)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Refresh drops the cached snapshot and recomputes
func (s *ForecastService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.cache.Delete(snapshotKey)
	s.group.Forget(snapshotKey)
	s.logger.InfoContext(ctx, "Forecast cache cleared")
	return s.Snapshot(ctx)
}

func (s *ForecastService) build(ctx context.Context) (snap *Snapshot, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "forecast.build",
		trace.WithAttributes(
			attribute.String("data_file", s.paths.DataFile),
			attribute.String("policy", string(s.projector.Options().Policy))))
	defer span.End()

	defer func() {
		rows := 0
		var warnings map[string]int
		if snap != nil {
			rows = len(snap.Result.Records)
			warnings = forecast.CountByKind(snap.Result.Warnings)
		}
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		s.metrics.RecordRun(ctx, string(s.projector.Options().Policy), rows, warnings, time.Since(start), err)
	}()

	loaded, err := s.loader.Load(s.paths.DataFile, s.sheet)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load observations",
			slog.String("path", s.paths.DataFile),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("load observations: %w", err)
	}

	matrix, source, err := s.loadMatrix(ctx, loaded.Records)
	if err != nil {
		return nil, err
	}

	result, err := s.projector.Project(loaded.Records, matrix)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("rows", len(result.Records)),
		attribute.Int("warnings", len(result.Warnings)),
		attribute.String("matrix_source", source))

	s.logger.InfoContext(ctx, "Forecast snapshot built",
		slog.String("run_id", result.RunID),
		slog.Int("observations", len(loaded.Records)),
		slog.Int("events", len(matrix.Events)),
		slog.String("matrix_source", source),
		slog.Int("rows", len(result.Records)),
		slog.Duration("duration", time.Since(start)))

	return &Snapshot{
		Records:      loaded.Records,
		Matrix:       matrix,
		MatrixSource: source,
		Result:       result,
		LoadedAt:     start.UTC(),
	}, nil
}

// loadMatrix prefers the matrix CSV and falls back to building it from the
// impact links when the file is absent
func (s *ForecastService) loadMatrix(ctx context.Context, records []domain.Observation) (*domain.ImpactMatrix, string, error) {
	m, err := dataprocessing.ReadMatrixCSV(s.paths.MatrixFile, s.cfg.Unit())
	if err == nil {
		return m, MatrixSourceFile, nil
	}
	if !apperrors.IsMissingInput(err) {
		return nil, "", fmt.Errorf("read impact matrix: %w", err)
	}

	m, err = dataprocessing.BuildImpactMatrix(records)
	switch {
	case errors.Is(err, dataprocessing.ErrEmptyMatrix):
		s.logger.WarnContext(ctx, "No impact matrix available, projecting baseline only",
			slog.String("matrix_file", s.paths.MatrixFile))
		return domain.NewImpactMatrix(), MatrixSourceEmpty, nil
	case err != nil:
		return nil, "", fmt.Errorf("build impact matrix: %w", err)
	}
	s.logger.InfoContext(ctx, "Impact matrix built from observation table",
		slog.String("matrix_file", s.paths.MatrixFile),
		slog.Int("events", len(m.Events)))
	return m.WithUnit(s.cfg.Unit()), MatrixSourceBuilt, nil
}

// Result returns the latest projection run
func (s *ForecastService) Result(ctx context.Context) (*forecast.Result, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Result, nil
}

// Forecasts returns forecast rows, optionally limited to one scenario
func (s *ForecastService) Forecasts(ctx context.Context, scenario string) ([]domain.ForecastRecord, error) {
	if scenario != "" && domain.ScenarioRank(scenario) < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScenario, scenario)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ForecastRecord, 0, len(snap.Result.Records))
	for _, rec := range snap.Result.Records {
		if scenario == "" || rec.Scenario == scenario {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ForecastsForYear returns every scenario row for year
func (s *ForecastService) ForecastsForYear(ctx context.Context, year int) ([]domain.ForecastRecord, error) {
	if year <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.ForecastRecord
	for _, rec := range snap.Result.Records {
		if rec.Year == year {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: year %d", ErrNoForecast, year)
	}
	return out, nil
}

// Matrix returns the impact matrix used by the latest run
func (s *ForecastService) Matrix(ctx context.Context) (*domain.ImpactMatrix, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Matrix, nil
}

// Indicators lists the observation indicators, sorted by code
func (s *ForecastService) Indicators(ctx context.Context) ([]IndicatorSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*IndicatorSummary)
	for _, r := range snap.Records {
		code := strings.TrimSpace(r.IndicatorCode)
		if r.RecordType != domain.RecordTypeObservation || code == "" {
			continue
		}
		sum, ok := byCode[code]
		if !ok {
			sum = &IndicatorSummary{Code: code}
			byCode[code] = sum
		}
		if sum.Name == "" {
			sum.Name = strings.TrimSpace(r.Indicator)
		}
		if sum.Pillar == "" {
			sum.Pillar = strings.TrimSpace(r.Pillar)
		}
	}

	out := make([]IndicatorSummary, 0, len(byCode))
	for code, sum := range byCode {
		series := forecast.ExtractSeries(snap.Records, code)
		sum.Points = series.Len()
		if series.Len() > 0 {
			sum.FirstYear = series[0].Year
			sum.LastYear = series[series.Len()-1].Year
		}
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// History returns the deduplicated yearly series of one indicator
func (s *ForecastService) History(ctx context.Context, code string) (forecast.Series, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	series := forecast.ExtractSeries(snap.Records, code)
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrIndicatorNotFound, code)
	}
	return series, nil
}

// Events lists event rows, most recent first
func (s *ForecastService) Events(ctx context.Context) ([]EventSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return eventSummaries(snap.Records), nil
}

func eventSummaries(records []domain.Observation) []EventSummary {
	var out []EventSummary
	for _, r := range records {
		if r.RecordType != domain.RecordTypeEvent {
			continue
		}
		out = append(out, EventSummary{
			ID:        strings.TrimSpace(r.RecordID),
			Name:      r.DisplayName(),
			Year:      r.Year,
			Category:  strings.TrimSpace(r.Category),
			Indicator: strings.TrimSpace(r.IndicatorCode),
			Notes:     strings.TrimSpace(r.Notes),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// Overview returns the observed access and usage values for year and the
// highest crossover ratio on record. A zero year means the latest observed
// access year.
func (s *ForecastService) Overview(ctx context.Context, year int) (*Overview, error) {
	if year < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	access := forecast.ExtractSeries(snap.Records, s.cfg.AccessIndicator)
	usage := forecast.ExtractSeries(snap.Records, s.cfg.UsageIndicator)
	if year == 0 {
		if last, ok := access.Last(); ok {
			year = last.Year
		} else if last, ok := usage.Last(); ok {
			year = last.Year
		}
	}

	ov := &Overview{
		Year:     year,
		Events:   len(eventSummaries(snap.Records)),
		Warnings: len(snap.Result.Warnings),
		RunID:    snap.Result.RunID,
	}
	if v, ok := access.ValueAt(year); ok {
		ov.AccessRate = domain.Float(v)
	}
	if v, ok := usage.ValueAt(year); ok {
		ov.UsageRate = domain.Float(v)
	}
	if crossover := forecast.ExtractSeries(snap.Records, CrossoverIndicator); crossover.Len() > 0 {
		best := crossover[0].Value
		for _, p := range crossover[1:] {
			if p.Value > best {
				best = p.Value
			}
		}
		ov.Crossover = domain.Float(best)
	}
	return ov, nil
}

// DataFile returns the observation table path
func (s *ForecastService) DataFile() string {
	return s.paths.DataFile
}
