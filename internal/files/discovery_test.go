package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincast/internal/config"
	"fincast/internal/shared/testutil"
)

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestFindTables(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "b.csv", now)
	touch(t, dir, "a.XLSX", now.Add(-time.Hour))
	touch(t, dir, "~$a.xlsx", now)
	touch(t, dir, "notes.txt", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))

	tables, err := NewDiscovery(dir).FindTables(".")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "a.XLSX", tables[0].Name)
	assert.Equal(t, "b.csv", tables[1].Name)

	_, err = NewDiscovery(dir).FindTables("missing")
	assert.Error(t, err)
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	latest, ok := GetLatestFile([]FileInfo{
		{Name: "old", ModTime: now.Add(-time.Hour)},
		{Name: "new", ModTime: now},
		{Name: "older", ModTime: now.Add(-2 * time.Hour)},
	})
	require.True(t, ok)
	assert.Equal(t, "new", latest.Name)
}

func TestResolveDataFile(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	t.Run("configured file exists", func(t *testing.T) {
		dir := t.TempDir()
		data := touch(t, dir, "data.xlsx", time.Now())
		paths := &config.Paths{BaseDir: dir, RawDir: dir, DataFile: data}

		assert.False(t, ResolveDataFile(paths, logger))
		assert.Equal(t, data, paths.DataFile)
	})

	t.Run("falls back to newest raw table", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		touch(t, dir, "2024.xlsx", now.Add(-time.Hour))
		newest := touch(t, dir, "2025.csv", now)
		paths := &config.Paths{BaseDir: dir, RawDir: dir, DataFile: filepath.Join(dir, "configured.xlsx")}

		assert.True(t, ResolveDataFile(paths, logger))
		assert.Equal(t, newest, paths.DataFile)
		assert.True(t, logs.ContainsMessage("Configured data file not found, using newest table in raw directory"))
	})

	t.Run("nothing to fall back to", func(t *testing.T) {
		dir := t.TempDir()
		configured := filepath.Join(dir, "configured.xlsx")
		paths := &config.Paths{BaseDir: dir, RawDir: filepath.Join(dir, "raw"), DataFile: configured}

		assert.False(t, ResolveDataFile(paths, logger))
		assert.Equal(t, configured, paths.DataFile)
	})
}
