// Package config manages mpc-coordinator configuration using koanf/v2.
//
// Supports YAML files, a .env file (loaded the way dotenv().ok() does:
// silently tolerating a missing file), and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete mpc-coordinator configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig holds the WebSocket listener configuration. Host and Port
// are read from the HOST and PORT environment variables (the mandated
// configuration interface), not just the MPCCOORD_-prefixed overrides.
type ServerConfig struct {
	// Host is the listen host for the JSON-RPC/WebSocket endpoint.
	Host string `koanf:"host"`
	// Port is the listen port for the JSON-RPC/WebSocket endpoint.
	Port int `koanf:"port"`
}

// Addr returns the listen address in host:port form, as accepted by
// net.Listen.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "",
			Port: 8765,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for mpc-coordinator
// ambient configuration (logging, metrics). Variables are named
// MPCCOORD_<section>_<key>, e.g., MPCCOORD_METRICS_ADDR.
const envPrefix = "MPCCOORD_"

// Load reads a .env file from the working directory (silently skipped if
// absent), then a YAML file at path (skipped if path is empty), then
// MPCCOORD_-prefixed environment overrides, then finally the mandated
// HOST and PORT variables, all layered on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	HOST                   -> server.host (mandated; no prefix)
//	PORT                   -> server.port (mandated; no prefix, string or number)
//	MPCCOORD_METRICS_ADDR  -> metrics.addr
//	MPCCOORD_METRICS_PATH  -> metrics.path
//	MPCCOORD_LOG_LEVEL     -> log.level
//	MPCCOORD_LOG_FORMAT    -> log.format
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	if err := loadHostPort(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		Metadata:         nil,
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: decoderConfig}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper transforms MPCCOORD_METRICS_ADDR -> metrics.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadHostPort overlays the mandated HOST and PORT environment variables
// onto k, taking precedence over any MPCCOORD_-prefixed or file-provided
// value. PORT is accepted as a string or a number; a non-numeric PORT is
// a configuration error.
func loadHostPort(k *koanf.Koanf) error {
	if host, ok := os.LookupEnv("HOST"); ok {
		if err := k.Set("server.host", host); err != nil {
			return fmt.Errorf("set HOST: %w", err)
		}
	}

	if portStr, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			return fmt.Errorf("parse PORT %q: %w", portStr, err)
		}
		if err := k.Set("server.port", port); err != nil {
			return fmt.Errorf("set PORT: %w", err)
		}
	}

	return nil
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.host":  defaults.Server.Host,
		"server.port":  defaults.Server.Port,
		"metrics.addr": defaults.Metrics.Addr,
		"metrics.path": defaults.Metrics.Path,
		"log.level":    defaults.Log.Level,
		"log.format":   defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidServerPort indicates server.port is outside the 16-bit
	// port range.
	ErrInvalidServerPort = errors.New("server.port must be between 0 and 65535")

	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return ErrInvalidServerPort
	}
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
