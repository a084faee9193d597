// Package services implements the business logic layer between the HTTP
// handlers and the forecasting pipeline.
//
// # Available Services
//
//	- ForecastService: loads the observation table and impact matrix, runs the
//	  projector and serves the cached result
//	- HealthService: liveness, readiness and version information
//
// # Caching
//
// ForecastService keeps one immutable Snapshot in a go-cache entry with the
// configured TTL. Concurrent cache misses share a single build through
// singleflight, and failed builds are never cached. Refresh drops the entry
// and rebuilds.
//
// When the impact matrix CSV is absent the matrix is pivoted from the
// impact_link rows of the observation table; when there are none the
// forecast is the baseline trend alone.
//
// # Error Handling
//
// Query methods return the sentinels in errors.go, wrapped with context:
//
//	- ErrInvalidScenario, ErrInvalidYear for bad filters
//	- ErrNoForecast, ErrIndicatorNotFound for empty results
//
// Input failures surface as *errors.AppError (INPUT_MISSING, PARSING) from
// the loader and matrix reader.
//
// # Testing
//
// Services are tested by mocking the observation loader:
//
//	loader := &MockObservationLoader{}
//	loader.On("Load", path, "").Return(&dataprocessing.LoadResult{Records: rows}, nil)
//	svc, _ := NewForecastService(cfg, paths, loader, nil, nil, logger)
package services
