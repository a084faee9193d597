package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fincast/internal/config"
)

// tableExtensions are the observation table formats the loader reads
var tableExtensions = []string{".xlsx", ".csv"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds observation tables under a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindTables lists .xlsx and .csv files in dir, oldest first.
// Office lock files (~$name.xlsx) are ignored.
func (d *Discovery) FindTables(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") || !isTable(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

func isTable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range tableExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

// ResolveDataFile keeps the configured data file when it exists. Otherwise it
// falls back to the newest table in the raw directory and updates paths.
// It reports whether a fallback was taken.
func ResolveDataFile(paths *config.Paths, logger *slog.Logger) bool {
	if config.FileExists(paths.DataFile) {
		return false
	}

	tables, err := NewDiscovery(paths.BaseDir).FindTables(paths.RawDir)
	if err != nil {
		return false
	}
	latest, ok := GetLatestFile(tables)
	if !ok {
		return false
	}

	if logger != nil {
		logger.Warn("Configured data file not found, using newest table in raw directory",
			slog.String("configured", paths.DataFile),
			slog.String("using", latest.Path),
			slog.Time("modified", latest.ModTime))
	}
	paths.DataFile = latest.Path
	return true
}
