package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_RequiresCoreFields(t *testing.T) {
	tmp := t.TempDir()

	t.Run("missing server url", func(t *testing.T) {
		cfg := &Config{DataDir: tmp, AuthToken: "tok"}
		assert.ErrorIs(t, cfg.Validate(), ErrNoServerURL)
	})

	t.Run("missing data dir", func(t *testing.T) {
		cfg := &Config{ServerURL: "https://example.org", AuthToken: "tok"}
		assert.ErrorIs(t, cfg.Validate(), ErrNoDataDir)
	})

	t.Run("missing auth token", func(t *testing.T) {
		cfg := &Config{ServerURL: "https://example.org", DataDir: tmp}
		assert.ErrorIs(t, cfg.Validate(), ErrNoAuthToken)
	})

	t.Run("complete config", func(t *testing.T) {
		cfg := &Config{ServerURL: "https://example.org", DataDir: tmp, AuthToken: "tok"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_SaveAndLoad_Roundtrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.json")

	cfg := Default()
	cfg.DataDir = tmp
	cfg.AuthToken = "tok"
	cfg.UploadRate = 1024
	cfg.DownloadRate = -50

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
	assert.Equal(t, cfg.AuthToken, loaded.AuthToken)
	assert.Equal(t, cfg.UploadRate, loaded.UploadRate)
	assert.Equal(t, cfg.DownloadRate, loaded.DownloadRate)
	assert.Equal(t, path, loaded.Path)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestDefault_HasChunkSizeAndServerURL(t *testing.T) {
	cfg := Default()
	assert.NotZero(t, cfg.ChunkSize)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}
