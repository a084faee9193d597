package services

import "errors"

// Forecast service errors
var (
	// Forecast errors
	ErrNoForecast      = errors.New("no forecast rows for the requested filter")
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrInvalidYear     = errors.New("invalid year")

	// Observation errors
	ErrIndicatorNotFound = errors.New("indicator not found")

	// General errors
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
