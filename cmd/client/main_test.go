package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DAVSYNC_SERVER_URL", "https://test.davsync.net")
	t.Setenv("DAVSYNC_AUTH_TOKEN", "test-token")
	t.Setenv("DAVSYNC_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("DAVSYNC_CONFIG_PATH", filepath.Join(t.TempDir(), "config.test.json"))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://test.davsync.net", cfg.ServerURL)
	assert.Equal(t, "test-token", cfg.AuthToken)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	dummyConfig := `
{
	"data_dir": "/tmp/davsync-test-json",
	"server_url": "https://test-json.davsync.net",
	"auth_token": "json-token",
	"chunk_size": 2097152
}
`
	dummyConfigFile := filepath.Join(t.TempDir(), "dummy.json")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte(dummyConfig), 0o644))

	cmd := newSyncCmd()
	cmd.Flags().String("config", dummyConfigFile, "")
	cmd.Flags().String("server", "", "")
	cmd.Flags().String("datadir", "", "")
	require.NoError(t, cmd.Flags().Set("config", dummyConfigFile))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, dummyConfigFile, cfg.Path)
	assert.Equal(t, "/tmp/davsync-test-json", cfg.DataDir)
	assert.Equal(t, "https://test-json.davsync.net", cfg.ServerURL)
	assert.Equal(t, "json-token", cfg.AuthToken)
	assert.Equal(t, int64(2097152), cfg.ChunkSize)
}
