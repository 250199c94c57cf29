package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/boozedog/ticketflow/internal/otrs"
	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/undo"
)

// Config holds the global ticketflow configuration.
type Config struct {
	Settings SettingsConfig `toml:"settings"`
	Storage  StorageConfig  `toml:"storage"`
	Undo     UndoConfig     `toml:"undo"`
	Sync     SyncConfig     `toml:"sync"`
	Web      WebConfig      `toml:"web"`
}

// SettingsConfig holds global settings.
type SettingsConfig struct {
	// DataDir defaults to <config dir>/data when empty.
	DataDir  string `toml:"data_dir,omitempty"`
	LogLevel string `toml:"log_level"`
	// Timezone is an IANA name used to group closed tickets by day.
	Timezone string `toml:"timezone,omitempty"`
}

// StorageConfig selects the backend holding the board blob.
type StorageConfig struct {
	Driver        string `toml:"driver"`
	Path          string `toml:"path,omitempty"`
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
	KeyPrefix     string `toml:"key_prefix,omitempty"`
}

// UndoConfig controls the clear/undo window.
type UndoConfig struct {
	WindowSeconds   int  `toml:"window_seconds"`
	SeedPlaceholder bool `toml:"seed_placeholder"`
}

// SyncConfig holds sync options.
type SyncConfig struct {
	// Priorities overrides the OTRS label to priority table.
	Priorities map[string]string `toml:"priorities,omitempty"`
}

// WebConfig holds web UI options.
type WebConfig struct {
	Port int `toml:"port"`
}

// DefaultDir returns the default config directory (~/.ticketflow).
// If TICKETFLOW_DIR is set, uses that path instead.
func DefaultDir() (string, error) {
	if d := os.Getenv("TICKETFLOW_DIR"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".ticketflow"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadEnv reads .env from the working directory and then from dir. Variables
// already set in the environment win. Missing files are ignored.
func LoadEnv(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("load env file", "path", path, "err", err)
		}
	}
}

// Load reads config from the default path, applying defaults and TICKETFLOW_*
// environment overrides. If the file doesn't exist, returns the defaults.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFrom reads config from the given path, applying defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to the given path, creating directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() (string, error) {
	if c.Settings.DataDir != "" {
		return ExpandPath(c.Settings.DataDir)
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// EventsDir returns the activity log directory.
func (c *Config) EventsDir() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events"), nil
}

// EnsureDirs creates the data and events directories if they don't exist.
func (c *Config) EnsureDirs() error {
	data, err := c.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(data, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	events, err := c.EventsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(events, 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}

	return nil
}

// StorageOptions resolves the backend options, filling in paths under the
// data directory.
func (c *Config) StorageOptions() (storage.Options, error) {
	opts := storage.Options{
		Driver:        c.Storage.Driver,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		KeyPrefix:     c.Storage.KeyPrefix,
	}

	path := c.Storage.Path
	if path == "" {
		data, err := c.DataDir()
		if err != nil {
			return storage.Options{}, err
		}
		path = data
		if opts.Driver == storage.DriverSQLite {
			path = filepath.Join(data, "ticketflow.db")
		}
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return storage.Options{}, err
	}
	opts.Path = expanded
	return opts, nil
}

// PriorityTable returns the OTRS priority mapping with overrides applied.
func (c *Config) PriorityTable() otrs.PriorityTable {
	return otrs.NewPriorityTable(c.Sync.Priorities)
}

// UndoWindow returns the undo window length.
func (c *Config) UndoWindow() time.Duration {
	if c.Undo.WindowSeconds <= 0 {
		return undo.DefaultWindow
	}
	return time.Duration(c.Undo.WindowSeconds) * time.Second
}

// Location returns the configured time zone, falling back to the local zone
// when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Settings.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Settings.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", "timezone", c.Settings.Timezone, "err", err)
		return time.Local
	}
	return loc
}

// LogLevel parses settings.log_level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) applyDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = storage.DriverFile
	}
	if c.Undo.WindowSeconds <= 0 {
		c.Undo.WindowSeconds = int(undo.DefaultWindow / time.Second)
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
}

// applyEnv layers TICKETFLOW_* variables over the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TICKETFLOW_LOG_LEVEL"); v != "" {
		c.Settings.LogLevel = v
	}
	if v := os.Getenv("TICKETFLOW_DATA_DIR"); v != "" {
		c.Settings.DataDir = v
	}
	if v := os.Getenv("TICKETFLOW_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TICKETFLOW_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("TICKETFLOW_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("TICKETFLOW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Web.Port = port
		} else {
			slog.Warn("ignoring TICKETFLOW_PORT", "value", v)
		}
	}
}
