package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyljohnny/davsync/internal/client/config"
	"github.com/tyljohnny/davsync/internal/utils"
	"github.com/tyljohnny/davsync/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	defaultLogFile = filepath.Join(home, ".davsync", "logs", "davsync.log")
	configFileName = "config"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "davsync",
	Short:   "Resumable WebDAV folder sync",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "davsync config file")
	rootCmd.PersistentFlags().StringP("server", "s", config.DefaultServerURL, "WebDAV server base URL")
	rootCmd.PersistentFlags().StringP("datadir", "d", "", "local sync root")
}

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	logDir := filepath.Dir(defaultLogFile)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	file, err := os.OpenFile(defaultLogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
}

// loadConfig resolves and loads the effective Config, honoring (in order of
// precedence) CLI flags, environment variables, and the on-disk config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := resolveConfigPath(cmd)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("DAVSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := config.Default()
	cfg.Path = path
	cfg.DataDir = v.GetString("data_dir")
	cfg.ServerURL = v.GetString("server_url")
	cfg.AuthToken = v.GetString("auth_token")
	if cs := v.GetInt64("chunk_size"); cs > 0 {
		cfg.ChunkSize = cs
	}
	cfg.UploadRate = v.GetInt64("upload_rate")
	cfg.DownloadRate = v.GetInt64("download_rate")

	if s, _ := cmd.Flags().GetString("server"); cmd.Flags().Changed("server") {
		cfg.ServerURL = s
	}
	if d, _ := cmd.Flags().GetString("datadir"); cmd.Flags().Changed("datadir") {
		cfg.DataDir = d
	}

	return cfg, nil
}

func showHeader() {
	color.New(color.FgHiCyan, color.Bold).Printf("davsync %s\n", version.Short())
}
