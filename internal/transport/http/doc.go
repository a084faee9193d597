// Package http implements the JSON API handlers. Handlers stay thin: they
// validate parameters, call the forecast service and render the result with
// chi/render. Failures are rendered as RFC 7807 problem details by
// errors.ErrorHandler.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live
//	GET  /api/version
//	GET  /api/forecasts?scenario=Base
//	GET  /api/forecasts/{year}
//	POST /api/forecasts/refresh
//	GET  /api/matrix
//	GET  /api/indicators
//	GET  /api/history/{indicator}
//	GET  /api/overview?year=2024
//	GET  /api/events
//	GET  /metrics
//
// # Error Mapping
//
// Service sentinels are translated before rendering:
//
//	services.ErrInvalidScenario, ErrInvalidYear -> 400
//	services.ErrNoForecast, ErrIndicatorNotFound -> 404
//	errors.AppError INPUT_MISSING               -> 503
//	context deadline                            -> 504
package http
