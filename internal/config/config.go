package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"fincast/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration.
// Relative entries resolve against BaseDir.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataFile     string `yaml:"data_file" envconfig:"DATA_FILE" validate:"required"`
	DataSheet    string `yaml:"data_sheet" envconfig:"DATA_SHEET"`
	MatrixFile   string `yaml:"matrix_file" envconfig:"MATRIX_FILE" validate:"required"`
	ForecastFile string `yaml:"forecast_file" envconfig:"FORECAST_FILE" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ForecastConfig holds the projection knobs
type ForecastConfig struct {
	Years           []int              `yaml:"years" envconfig:"YEARS" validate:"min=1,dive,gt=0"`
	AccessIndicator string             `yaml:"access_indicator" envconfig:"ACCESS_INDICATOR" validate:"required"`
	UsageIndicator  string             `yaml:"usage_indicator" envconfig:"USAGE_INDICATOR" validate:"required"`
	Policy          string             `yaml:"policy" envconfig:"POLICY"`
	Epsilon         float64            `yaml:"epsilon" envconfig:"EPSILON" validate:"gte=0,lt=1"`
	FallbackMargin  float64            `yaml:"fallback_margin" envconfig:"FALLBACK_MARGIN" validate:"gte=0"`
	MatrixUnit      string             `yaml:"matrix_unit" envconfig:"MATRIX_UNIT"`
	Multipliers     map[string]float64 `yaml:"multipliers" envconfig:"MULTIPLIERS"`
	Adjustments     map[string]float64 `yaml:"adjustments" envconfig:"ADJUSTMENTS"`
	Ramp            map[int]float64    `yaml:"ramp" envconfig:"RAMP"`
	RampSource      string             `yaml:"ramp_source" envconfig:"RAMP_SOURCE" validate:"oneof=table linear sigmoid decay"`
	RampStart       int                `yaml:"ramp_start" envconfig:"RAMP_START"`
	CacheTTL        time.Duration      `yaml:"cache_ttl" envconfig:"CACHE_TTL" validate:"gt=0"`
}

// TelemetryConfig contains metrics and tracing configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	StdoutTraces   bool   `yaml:"stdout_traces" envconfig:"STDOUT_TRACES"`
}

// Load reads defaults, then the optional YAML file, then FINCAST_* env vars
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file; an empty path skips the file
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// env vars without a value leave the field untouched, so env wins only when set
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file on cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var structValidator = validator.New()

// validate validates the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}

	// JSON is the only log format the handler emits
	c.Logging.Format = "json"
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "fincast.log")
	}

	if _, err := domain.ParsePolicy(c.Forecast.Policy); err != nil {
		return err
	}
	if _, err := domain.ParseMagnitudeUnit(c.Forecast.MatrixUnit); err != nil {
		return err
	}

	seen := make(map[int]bool, len(c.Forecast.Years))
	for _, y := range c.Forecast.Years {
		if seen[y] {
			return fmt.Errorf("duplicate forecast year %d", y)
		}
		seen[y] = true
	}

	for year, frac := range c.Forecast.Ramp {
		if frac < 0 || frac > 1 {
			return fmt.Errorf("ramp fraction for %d must be within [0,1], got %g", year, frac)
		}
	}

	for name, m := range c.Forecast.Multipliers {
		if domain.ScenarioRank(name) < 0 {
			return fmt.Errorf("unknown scenario %q in multipliers", name)
		}
		if m < 0 {
			return fmt.Errorf("multiplier for %s must be non-negative", name)
		}
	}
	for name := range c.Forecast.Adjustments {
		if domain.ScenarioRank(name) < 0 {
			return fmt.Errorf("unknown scenario %q in adjustments", name)
		}
	}

	return nil
}

// Scenarios returns the configured scenarios in canonical order.
// Scenarios missing from the multiplier map keep their default profile.
func (f ForecastConfig) Scenarios() []domain.Scenario {
	scenarios := domain.DefaultScenarios()
	for i := range scenarios {
		if m, ok := f.Multipliers[scenarios[i].Name]; ok {
			scenarios[i].Multiplier = m
		}
		if a, ok := f.Adjustments[scenarios[i].Name]; ok {
			scenarios[i].Adjustment = a
		}
	}
	return scenarios
}

// SortedYears returns the forecast years ascending
func (f ForecastConfig) SortedYears() []int {
	years := append([]int(nil), f.Years...)
	sort.Ints(years)
	return years
}

// PolicyValue returns the parsed projection policy
func (f ForecastConfig) PolicyValue() domain.Policy {
	p, err := domain.ParsePolicy(f.Policy)
	if err != nil {
		return domain.PolicyCumulative
	}
	return p
}

// Unit returns the parsed matrix unit
func (f ForecastConfig) Unit() domain.MagnitudeUnit {
	u, _ := domain.ParseMagnitudeUnit(f.MatrixUnit)
	return u
}

// getConfigFilePath returns the first config file found, or ""
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8501"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      "json",
			Output:      "console",
			Development: false,
		},
		Paths: PathsConfig{
			BaseDir:      ".",
			DataFile:     DefaultDataFile,
			MatrixFile:   DefaultMatrixFile,
			ForecastFile: DefaultForecastFile,
			LogsDir:      DefaultLogsDir,
		},
		Forecast: ForecastConfig{
			Years:           []int{2025, 2026, 2027},
			AccessIndicator: DefaultAccessIndicator,
			UsageIndicator:  DefaultUsageIndicator,
			Policy:          string(domain.PolicyCumulative),
			Epsilon:         DefaultEpsilon,
			FallbackMargin:  DefaultFallbackMargin,
			MatrixUnit:      domain.UnitUnknown.String(),
			Multipliers: map[string]float64{
				domain.ScenarioBase:        1.0,
				domain.ScenarioOptimistic:  1.2,
				domain.ScenarioPessimistic: 0.5,
			},
			Adjustments: map[string]float64{
				domain.ScenarioBase:        0,
				domain.ScenarioOptimistic:  1.0,
				domain.ScenarioPessimistic: -1.0,
			},
			Ramp:       map[int]float64{2025: 0.3, 2026: 0.6, 2027: 1.0},
			RampSource: "table",
			RampStart:  2024,
			CacheTTL:   DataCacheDuration,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
	}
}
