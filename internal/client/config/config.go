package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tyljohnny/davsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".davsync", "config.json")
	DefaultServerURL  = "https://davsync.example.org"
)

var (
	ErrNoServerURL = errors.New("config: server_url is required")
	ErrNoDataDir   = errors.New("config: data_dir is required")
	ErrNoAuthToken = errors.New("config: auth_token is required")
)

// Config is the on-disk client configuration: where the local sync root
// lives, how to reach the remote, and how fast to move.
type Config struct {
	DataDir   string `json:"data_dir"`
	ServerURL string `json:"server_url"`
	AuthToken string `json:"auth_token"`

	// ChunkSize is the fixed size, in bytes, of each upload chunk.
	ChunkSize int64 `json:"chunk_size"`
	// UploadRate/DownloadRate are signed bandwidth-shaper rates: positive
	// is bytes/sec, (-100,0) is a throttling percentage, 0 disables shaping.
	UploadRate   int64 `json:"upload_rate"`
	DownloadRate int64 `json:"download_rate"`

	Path string `json:"-"`
}

// Default returns a Config with the same defaults the CLI falls back to
// when no flag or config value overrides them.
func Default() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		ChunkSize: 10 * 1024 * 1024,
	}
}

// Validate checks the fields required before a propagation run can start.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	if c.AuthToken == "" {
		return ErrNoAuthToken
	}
	return nil
}

// Save writes c to path as JSON, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	c.Path = path
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Load reads a Config from path, applying defaults for anything the file
// left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	return cfg, nil
}
