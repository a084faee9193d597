package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fincast/internal/errors"
	"fincast/internal/forecast"
	"fincast/internal/middleware"
	"fincast/internal/services"
	"fincast/pkg/contracts/domain"
)

// yearRule bounds every year parameter
const yearRule = "min=1900,max=2200"

// ForecastHandler serves forecast rows, the impact matrix and observation history
type ForecastHandler struct {
	service      ForecastServiceInterface
	params       *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewForecastHandler creates a new forecast handler with RFC 7807 error handling
func NewForecastHandler(service ForecastServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "forecast_handler")),
		errorHandler: errorHandler,
	}
}

// Routes mounts under /api
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/forecasts", func(r chi.Router) {
		r.Get("/", h.GetForecasts)
		r.Post("/refresh", h.Refresh)
		r.Get("/{year}", h.GetForecastsForYear)
	})
	r.Get("/matrix", h.GetMatrix)
	r.Get("/indicators", h.GetIndicators)
	r.Get("/history/{indicator}", h.GetHistory)
	r.Get("/overview", h.GetOverview)
	r.Get("/events", h.GetEvents)

	return r
}

// ForecastsResponse is the body of GET /api/forecasts
type ForecastsResponse struct {
	RunID       string                  `json:"run_id"`
	Policy      domain.Policy           `json:"policy"`
	GeneratedAt time.Time               `json:"generated_at"`
	Margin      float64                 `json:"margin"`
	Scenario    string                  `json:"scenario,omitempty"`
	Records     []domain.ForecastRecord `json:"records"`
	Warnings    []forecast.Warning      `json:"warnings"`
}

// GetForecasts handles GET /api/forecasts?scenario=
func (h *ForecastHandler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	scenario, ok := h.params.Enum(w, r, "scenario", domain.CanonicalScenarioOrder, "")
	if !ok {
		return
	}

	records, err := h.service.Forecasts(r.Context(), scenario)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.service.Result(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, ForecastsResponse{
		RunID:       result.RunID,
		Policy:      result.Policy,
		GeneratedAt: result.GeneratedAt,
		Margin:      result.Margin,
		Scenario:    scenario,
		Records:     nonNil(records),
		Warnings:    nonNil(result.Warnings),
	})
}

// GetForecastsForYear handles GET /api/forecasts/{year}
func (h *ForecastHandler) GetForecastsForYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.params.PathInt(w, r, "year", yearRule)
	if !ok {
		return
	}

	records, err := h.service.ForecastsForYear(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"year":    year,
		"records": records,
	})
}

// MatrixRow is one event of the impact matrix
type MatrixRow struct {
	Event  string             `json:"event"`
	Year   int                `json:"year,omitempty"`
	Values map[string]float64 `json:"values"`
	Units  map[string]string  `json:"units,omitempty"`
}

// MatrixResponse is the body of GET /api/matrix
type MatrixResponse struct {
	Events     []string    `json:"events"`
	Indicators []string    `json:"indicators"`
	Rows       []MatrixRow `json:"rows"`
}

// GetMatrix handles GET /api/matrix
func (h *ForecastHandler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Matrix(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, matrixResponse(m))
}

func matrixResponse(m *domain.ImpactMatrix) MatrixResponse {
	resp := MatrixResponse{
		Events:     nonNil(m.Events),
		Indicators: nonNil(m.Indicators),
		Rows:       make([]MatrixRow, 0, len(m.Events)),
	}
	for _, event := range m.Events {
		row := MatrixRow{Event: event, Values: make(map[string]float64)}
		row.Year, _ = domain.EventYear(event)
		for _, ind := range m.Indicators {
			mag, ok := m.Get(event, ind)
			if !ok {
				continue
			}
			row.Values[ind] = mag.Value
			if mag.Unit != domain.UnitUnknown {
				if row.Units == nil {
					row.Units = make(map[string]string)
				}
				row.Units[ind] = mag.Unit.String()
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

// GetIndicators handles GET /api/indicators
func (h *ForecastHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	indicators, err := h.service.Indicators(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"indicators": nonNil(indicators),
		"count":      len(indicators),
	})
}

// GetHistory handles GET /api/history/{indicator}
func (h *ForecastHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	code, ok := h.params.PathCode(w, r, "indicator")
	if !ok {
		return
	}

	series, err := h.service.History(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"indicator": code,
		"points":    series,
	})
}

// GetOverview handles GET /api/overview?year=
func (h *ForecastHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	year, ok := h.params.Int(w, r, "year", yearRule, 0)
	if !ok {
		return
	}

	overview, err := h.service.Overview(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// GetEvents handles GET /api/events
func (h *ForecastHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Events(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"events": nonNil(events),
		"count":  len(events),
	})
}

// Refresh handles POST /api/forecasts/refresh
func (h *ForecastHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Forecast refreshed",
		slog.String("run_id", snap.Result.RunID),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	render.JSON(w, r, map[string]interface{}{
		"run_id":        snap.Result.RunID,
		"generated_at":  snap.Result.GeneratedAt,
		"rows":          len(snap.Result.Records),
		"warnings":      forecast.CountByKind(snap.Result.Warnings),
		"matrix_source": snap.MatrixSource,
	})
}

// fail maps service sentinels to API errors before rendering the problem
func (h *ForecastHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidScenario):
		err = apierrors.ErrValidation("scenario", err.Error())
	case errors.Is(err, services.ErrInvalidYear):
		err = apierrors.ErrValidation("year", err.Error())
	case errors.Is(err, services.ErrNoForecast):
		err = apierrors.NewWithDetails(http.StatusNotFound, apierrors.ErrForecastNotFound.ErrorCode,
			apierrors.ErrForecastNotFound.Message, err.Error())
	case errors.Is(err, services.ErrIndicatorNotFound):
		err = apierrors.NotFoundError(fmt.Sprintf("indicator %s", chi.URLParam(r, "indicator")))
	}
	h.errorHandler.HandleError(w, r, err)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
