package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tyljohnny/davsync/internal/client/config"
)

// resolveConfigPath determines which config file path to use, honoring (in order):
// 1) An explicitly set --config flag
// 2) DAVSYNC_CONFIG_PATH environment variable
// 3) The default path
func resolveConfigPath(cmd *cobra.Command) string {
	if cfgFlag := cmd.Flags().Lookup("config"); cfgFlag != nil && cfgFlag.Changed {
		return cfgFlag.Value.String()
	}

	if envPath := os.Getenv("DAVSYNC_CONFIG_PATH"); envPath != "" {
		return envPath
	}

	return config.DefaultConfigPath
}
