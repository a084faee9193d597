package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all resolved pipeline file locations.
// This is the single source of truth for file paths in the application.
type Paths struct {
	BaseDir      string
	RawDir       string
	ProcessedDir string
	LogsDir      string

	DataFile     string
	MatrixFile   string
	ForecastFile string
}

// ResolvePaths turns the configured paths into absolute ones under BaseDir
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	base := pc.BaseDir
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	logsDir := pc.LogsDir
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}

	return &Paths{
		BaseDir:      base,
		RawDir:       filepath.Join(base, filepath.FromSlash(DefaultRawDir)),
		ProcessedDir: filepath.Join(base, filepath.FromSlash(DefaultProcessedDir)),
		LogsDir:      resolve(logsDir),
		DataFile:     resolve(pc.DataFile),
		MatrixFile:   resolve(pc.MatrixFile),
		ForecastFile: resolve(pc.ForecastFile),
	}, nil
}

// ResolvedPaths resolves this config's paths
func (c *Config) ResolvedPaths() (*Paths, error) {
	return ResolvePaths(c.Paths)
}

// EnsureDirectories creates the output directories if they don't exist.
// Input files are never created here; a missing input is reported by the loader.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.ProcessedDir,
		p.LogsDir,
		filepath.Dir(p.MatrixFile),
		filepath.Dir(p.ForecastFile),
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved locations at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("raw", p.RawDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("data", p.DataFile),
			slog.Bool("data_exists", FileExists(p.DataFile)),
			slog.String("matrix", p.MatrixFile),
			slog.Bool("matrix_exists", FileExists(p.MatrixFile)),
			slog.String("forecast", p.ForecastFile),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
