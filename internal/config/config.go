// Package config handles TOML-based configuration loading and validation.
// TOML is parsed as data only; no code execution is possible.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
)

const appDir = "flixres"

// Duration is a time.Duration written as "30s" or "1m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Base           string   `toml:"base"`
	Name           string   `toml:"name"`
	SocketEndpoint string   `toml:"socket_endpoint"`
	Deadline       Duration `toml:"deadline"`
	PollInterval   Duration `toml:"poll_interval"`
	DefaultReferer string   `toml:"default_referer"`
	RefererHosts   []string `toml:"referer_hosts"`
	Secret         string   `toml:"secret"`

	AllowedServers   []string `toml:"allowed_servers"`
	BlacklistedHosts []string `toml:"blacklisted_hosts"`

	MaxConcurrency int      `toml:"max_concurrency"`
	RateLimit      float64  `toml:"rate_limit"`
	RateBurst      int      `toml:"rate_burst"`
	CacheTTL       Duration `toml:"cache_ttl"`
	RedisAddr      string   `toml:"redis_addr"`

	History      bool   `toml:"history"`
	Player       string `toml:"player"`
	SubsLanguage string `toml:"subs_language"`
	DownloadDir  string `toml:"download_dir"`
	ListenAddr   string `toml:"listen_addr"`
	Debug        bool   `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Base:           "https://sflix.to",
		Name:           "Sflix.to",
		SocketEndpoint: "wss://wsx.dokicloud.one/socket.io/?EIO=4&transport=websocket",
		Deadline:       Duration{30 * time.Second},
		PollInterval:   Duration{time.Second},
		DefaultReferer: "https://mzzcloud.life/",
		AllowedServers: []string{"upcloud", "vidcloud", "streamlare"},
		MaxConcurrency: 4,
		RateLimit:      5,
		RateBurst:      10,
		CacheTTL:       Duration{10 * time.Minute},
		History:        true,
		Player:         "mpv",
		SubsLanguage:   "english",
		DownloadDir:    "~/Videos/flixres",
		ListenAddr:     "127.0.0.1:8089",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at the XDG location and merges it with
// defaults. If the file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path and merges it with defaults.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if c.Base == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if err := httputil.ValidateURL(c.Base); err != nil {
		return fmt.Errorf("base: %w", err)
	}

	u, err := url.Parse(c.SocketEndpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("socket_endpoint %q is not a URL", c.SocketEndpoint)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("socket_endpoint scheme %q not supported", u.Scheme)
	}

	if c.Deadline.Duration <= 0 {
		return fmt.Errorf("deadline must be positive, got %s", c.Deadline)
	}
	if c.PollInterval.Duration <= 0 || c.PollInterval.Duration > c.Deadline.Duration {
		return fmt.Errorf("poll_interval must be positive and at most the deadline, got %s", c.PollInterval)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set")
	}
	if c.CacheTTL.Duration < 0 {
		return fmt.Errorf("cache_ttl cannot be negative")
	}

	return nil
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the resolution history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appDir, "history.db"), nil
}
