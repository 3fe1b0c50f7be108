package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLI_VersionCommand(t *testing.T) {
	out, code := runCLI(t, "version")
	require.Equal(t, 0, code, out)
	require.Contains(t, stripANSI(out), "go1.")
}

func TestCLI_ConfigPathCommand_DefaultsToHomeConfig(t *testing.T) {
	out, code := runCLI(t, "config-path")
	require.Equal(t, 0, code, out)
	require.Contains(t, strings.TrimSpace(stripANSI(out)), filepath.Join(".davsync", "config.json"))
}

func TestCLI_SyncCommand_RequiresPlanFlag(t *testing.T) {
	out, code := runCLI(t, "sync")
	require.NotEqual(t, 0, code, out)
	require.Contains(t, stripANSI(out), "plan")
}

func TestCLI_SyncCommand_MissingPlanFileFails(t *testing.T) {
	tmp := t.TempDir()
	// supply an auth token so config validation passes and the run reaches
	// plan loading
	cfgPath := filepath.Join(tmp, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"auth_token": "test-token"}`), 0o644))
	out, code := runCLI(t,
		"--config", cfgPath,
		"--datadir", filepath.Join(tmp, "data"),
		"--server", "https://dav.example.org",
		"sync", "--plan", filepath.Join(tmp, "missing-plan.json"),
	)
	require.NotEqual(t, 0, code, out)
	require.Contains(t, stripANSI(out), "load plan")
}
