package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincast/internal/shared/testutil"
)

func TestHealthService_Basic(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", "2026-01-01T00:00:00Z", nil, nil, logger)
	ctx := context.Background()

	health := hs.HealthCheck(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	version := hs.Version()
	assert.Equal(t, "1.2.3", version["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", version["build_time"])

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "not_ready", ready.Status)
}

func TestHealthService_Readiness(t *testing.T) {
	f := newFixture(t, true)
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("dev", "", f.paths, f.service, logger)
	ctx := context.Background()

	t.Run("missing data file", func(t *testing.T) {
		f.expectLoad(sampleRecords())
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
		data := status.Services["data"].(ServiceHealth)
		assert.Contains(t, data.Message, "not found")
		assert.Equal(t, "ready", status.Services["forecast"].(ServiceHealth).Status)
	})

	t.Run("ready", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.paths.DataFile, []byte("placeholder"), 0o644))
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		assert.Contains(t, status.Services["forecast"].(ServiceHealth).Message, "9 rows")
	})
}
