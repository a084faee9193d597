package config

import "time"

// Application constants
const (
	AppName    = "fincast"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable (FINCAST_SERVER_PORT, ...)
	EnvPrefix = "FINCAST"

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 20

	// Timeouts
	DefaultRequestTimeout = 30 * time.Second

	// Cache Settings
	DataCacheDuration = 10 * time.Minute

	// File Paths (relative to the base dir)
	DefaultRawDir       = "data/raw"
	DefaultProcessedDir = "data/processed"
	DefaultLogsDir      = "logs"
	DefaultDataFile     = DefaultRawDir + "/ethiopia_fi_unified_data.xlsx"
	DefaultMatrixFile   = DefaultProcessedDir + "/impact_matrix.csv"
	DefaultForecastFile = DefaultProcessedDir + "/forecast_table.csv"

	// Forecast defaults
	DefaultAccessIndicator = "ACC_OWNERSHIP"
	DefaultUsageIndicator  = "ACC_MM_ACCOUNT"
	DefaultEpsilon         = 1e-4
	DefaultFallbackMargin  = 3.0

	// Log Settings
	DefaultLogLevel = "info"

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
