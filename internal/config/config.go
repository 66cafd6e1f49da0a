package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Config holds the editor and dev server settings.
type Config struct {
	APIBind         string
	QuietPeriod     time.Duration
	RequestTimeout  time.Duration
	AbortSuperseded bool
	LogLevel        string
	LogFormat       string
	LogFile         string
	GrantsPath      string
	PrefsPath       string
	Server          ServerConfig
}

// ServerConfig configures the local settings server.
type ServerConfig struct {
	Listen     string
	StorePath  string
	TimeZone   string
	MinuteStep int
	Latency    time.Duration
	FailEvery  int
}

const (
	defaultConfigPath     = "~/.config/nudge/config.toml"
	defaultAPIBind        = "127.0.0.1:7490"
	defaultQuietPeriod    = 350 * time.Millisecond
	defaultRequestTimeout = 5 * time.Second
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultLogFile        = "~/.local/state/nudge/nudge.log"
	defaultGrantsPath     = "~/.config/nudge/grants.toml"
	defaultPrefsPath      = "~/.config/nudge/prefs.toml"
	defaultStorePath      = "~/.local/share/nudge/settings.toml"
	defaultTimeZone       = "UTC"
	defaultMinuteStep     = 5
)

type rawConfig struct {
	APIBind         string    `toml:"api_bind"`
	QuietPeriod     string    `toml:"quiet_period"`
	RequestTimeout  string    `toml:"request_timeout"`
	AbortSuperseded bool      `toml:"abort_superseded"`
	LogLevel        string    `toml:"log_level"`
	LogFormat       string    `toml:"log_format"`
	LogFile         string    `toml:"log_file"`
	GrantsPath      string    `toml:"grants_path"`
	PrefsPath       string    `toml:"prefs_path"`
	Server          rawServer `toml:"server"`
}

type rawServer struct {
	Listen     string `toml:"listen"`
	StorePath  string `toml:"store_path"`
	TimeZone   string `toml:"time_zone"`
	MinuteStep int    `toml:"minute_step"`
	Latency    string `toml:"latency"`
	FailEvery  int    `toml:"fail_every"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBind:        defaultAPIBind,
		QuietPeriod:    defaultQuietPeriod,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		LogFile:        mustExpand(defaultLogFile),
		GrantsPath:     mustExpand(defaultGrantsPath),
		PrefsPath:      mustExpand(defaultPrefsPath),
		Server: ServerConfig{
			Listen:     defaultAPIBind,
			StorePath:  mustExpand(defaultStorePath),
			TimeZone:   defaultTimeZone,
			MinuteStep: defaultMinuteStep,
		},
	}
}

// Load locates and parses the nudge config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return raw.resolve()
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Default()
	var errs error

	if v := strings.TrimSpace(raw.APIBind); v != "" {
		cfg.APIBind = v
		cfg.Server.Listen = v
	}
	if d, err := parseDuration("quiet_period", raw.QuietPeriod); err != nil {
		errs = multierr.Append(errs, err)
	} else if d > 0 {
		cfg.QuietPeriod = d
	}
	if d, err := parseDuration("request_timeout", raw.RequestTimeout); err != nil {
		errs = multierr.Append(errs, err)
	} else if d > 0 {
		cfg.RequestTimeout = d
	}
	cfg.AbortSuperseded = raw.AbortSuperseded
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.GrantsPath); v != "" {
		cfg.GrantsPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.PrefsPath); v != "" {
		cfg.PrefsPath = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.Server.Listen); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(raw.Server.StorePath); v != "" {
		cfg.Server.StorePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Server.TimeZone); v != "" {
		cfg.Server.TimeZone = v
	}
	if raw.Server.MinuteStep != 0 {
		cfg.Server.MinuteStep = raw.Server.MinuteStep
	}
	if d, err := parseDuration("server.latency", raw.Server.Latency); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.Server.Latency = d
	}
	cfg.Server.FailEvery = raw.Server.FailEvery

	if errs != nil {
		return Config{}, errs
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.APIBind) == "" {
		errs = multierr.Append(errs, errors.New("api_bind: must not be empty"))
	}
	if c.QuietPeriod < 0 {
		errs = multierr.Append(errs, fmt.Errorf("quiet_period: must not be negative, got %s", c.QuietPeriod))
	}
	if c.RequestTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("request_timeout: must be positive, got %s", c.RequestTimeout))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = multierr.Append(errs, fmt.Errorf("log_format: must be text or json, got %q", c.LogFormat))
	}
	if c.Server.MinuteStep < 1 || c.Server.MinuteStep > 60 || 60%c.Server.MinuteStep != 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.minute_step: must divide 60, got %d", c.Server.MinuteStep))
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("server.time_zone: %w", err))
	}
	if c.Server.Latency < 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.latency: must not be negative, got %s", c.Server.Latency))
	}
	if c.Server.FailEvery < 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.fail_every: must not be negative, got %d", c.Server.FailEvery))
	}
	return errs
}

func parseDuration(key, value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
