package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

func TestLoadConfig_EnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("CONFIDENCE_THRESHOLD=75\nRASTER_DPI=300\n"), 0o600))
	t.Setenv("AI_SERVICE_URL", "http://ai.internal:9000/")
	// godotenv never overrides variables that are already set
	t.Setenv("CONFIDENCE_THRESHOLD", "")
	require.NoError(t, os.Unsetenv("CONFIDENCE_THRESHOLD"))
	t.Setenv("RASTER_DPI", "")
	require.NoError(t, os.Unsetenv("RASTER_DPI"))

	cfg, err := LoadConfig(env)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, common.MinRasterDPI, cfg.Loader.DPI, "DPI is clamped")
	assert.Equal(t, "http://ai.internal:9000", cfg.Remote.BaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "150")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestBuild_InMemoryStore(t *testing.T) {
	t.Setenv("TEMP_DIR", t.TempDir())
	t.Setenv("DB_URL", "")
	a, err := Build(context.Background(), Options{EnvFile: filepath.Join(t.TempDir(), "none.env"), InMemory: true})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Repo)
	n, err := a.Sweeper.Sweep()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadConfig_ZeroThresholdKept(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "0")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Pipeline.ConfidenceThreshold)
}
