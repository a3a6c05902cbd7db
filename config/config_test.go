package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "banana", "config.toml")
}

func TestLoadOrCreateAtCreatesDefaults(t *testing.T) {
	path := testConfigPath(t)

	cfg, err := LoadOrCreateAt(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "config file should have been created")

	def := Default()
	assert.Equal(t, def.API.Model, cfg.API.Model)
	assert.Equal(t, def.Defaults.AspectRatio, cfg.Defaults.AspectRatio)
	assert.Equal(t, def.Output.Directory, cfg.Output.Directory)
	assert.Equal(t, path, cfg.Path())
}

func TestLoadOrCreateAtRoundTrip(t *testing.T) {
	path := testConfigPath(t)

	cfg, err := LoadOrCreateAt(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("defaults.aspect_ratio", "16:9"))
	require.NoError(t, cfg.Set("defaults.num_images", "3"))
	require.NoError(t, cfg.Set("output.auto_download", "false"))
	require.NoError(t, cfg.Save())

	loaded, err := LoadOrCreateAt(path)
	require.NoError(t, err)
	assert.Equal(t, "16:9", loaded.Defaults.AspectRatio)
	assert.Equal(t, 3, loaded.Defaults.NumImages)
	assert.False(t, loaded.Output.AutoDownload)
}

func TestEnvKeyOverridesFile(t *testing.T) {
	path := testConfigPath(t)

	cfg, err := LoadOrCreateAt(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("api.key", "file-key"))
	require.NoError(t, cfg.Save())

	t.Setenv(EnvAPIKey, "env-key")
	loaded, err := LoadOrCreateAt(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", loaded.API.Key)
}

func TestSetValidation(t *testing.T) {
	cfg := Default()

	assert.Error(t, cfg.Set("defaults.aspect_ratio", "7:5"))
	assert.Error(t, cfg.Set("defaults.size", "8K"))
	assert.Error(t, cfg.Set("defaults.num_images", "0"))
	assert.Error(t, cfg.Set("defaults.num_images", "5"))
	assert.Error(t, cfg.Set("output.auto_download", "maybe"))
	assert.Error(t, cfg.Set("engine.max_attempts", "-1"))
	assert.Error(t, cfg.Set("engine.concurrency", "zero"))
	assert.Error(t, cfg.Set("no.such.key", "x"))

	assert.NoError(t, cfg.Set("defaults.size", "4K"))
	assert.Equal(t, "4K", cfg.Defaults.Size)
	assert.NoError(t, cfg.Set("engine.max_attempts", "5"))
	assert.Equal(t, 5, cfg.Engine.MaxAttempts)
}

func TestGetMasksAPIKey(t *testing.T) {
	cfg := Default()

	got, ok := cfg.Get("api.key")
	assert.True(t, ok)
	assert.Empty(t, got)

	cfg.API.Key = "secret"
	got, ok = cfg.Get("api.key")
	assert.True(t, ok)
	assert.Equal(t, "****", got)

	_, ok = cfg.Get("no.such.key")
	assert.False(t, ok)
}

func TestKeysAreAllGettable(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, ok := cfg.Get(key)
		assert.True(t, ok, "key %s should be readable", key)
	}
}
