// Package config loads settings.toml. A missing file is created with the
// defaults so the user has something to edit.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultPath = "settings.toml"

// Environment overrides, applied after the file.
const (
	EnvAddr      = "PAINTING_ADDR"
	EnvDB        = "PAINTING_DB"
	EnvServerURL = "PAINTING_SERVER_URL"
)

type Config struct {
	LogLevel string `toml:"log_level"`
	Server   Server `toml:"server"`
	Client   Client `toml:"client"`
}

type Server struct {
	Addr string `toml:"addr"`
	// DBPath is the SQLite file holding users and, unless KVPath is set, the
	// background value.
	DBPath string `toml:"db_path"`
	// KVPath selects the KV backend: "" keeps it in DBPath, ":memory:" keeps
	// it in process memory, anything else is a separate SQLite file.
	KVPath       string `toml:"kv_path"`
	APIPath      string `toml:"api_path"`
	EventsPath   string `toml:"events_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	Advertise    bool   `toml:"advertise"`
}

type Client struct {
	// ServerURL is empty to discover a server over mDNS.
	ServerURL       string   `toml:"server_url"`
	DiscoverTimeout Duration `toml:"discover_timeout"`
	Watch           bool     `toml:"watch"`
	Width           float32  `toml:"width"`
	Height          float32  `toml:"height"`
}

// MemoryKV is the KVPath value that selects the in-process KV.
const MemoryKV = ":memory:"

// Duration reads and writes as a Go duration string such as "3s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: Server{
			Addr:         ":8080",
			DBPath:       "painting.db",
			APIPath:      "/api/app",
			EventsPath:   "/api/events",
			MaxBodyBytes: 16 << 20,
			Advertise:    true,
		},
		Client: Client{
			DiscoverTimeout: Duration{3 * time.Second},
			Watch:           true,
			Width:           900,
			Height:          600,
		},
	}
}

// Load reads path over the defaults. When path does not exist the defaults
// are written there first.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			slog.Warn("could not write default settings", "component", "config", "path", path, "err", err)
		}
	case err != nil:
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Server.DBPath = v
	}
	if v, ok := lookup(EnvServerURL); ok {
		c.Client.ServerURL = v
	}
}

func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Server.DBPath == "" {
		return errors.New("config: server.db_path is required")
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New("config: server.max_body_bytes must not be negative")
	}
	if c.Client.Width <= 0 || c.Client.Height <= 0 {
		return fmt.Errorf("config: client size %gx%g must be positive", c.Client.Width, c.Client.Height)
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
