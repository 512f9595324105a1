package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ollamaproxy/internal/common/fsutil"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OLLAMAPROXY_"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are filled from Default().
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	BaseURL        string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model          string   `json:"model" yaml:"model" toml:"model"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile        string   `json:"log_file" yaml:"log_file" toml:"log_file"`
	MetricsAddr    string   `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	CORSEnabled    bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:      ":8080",
		BaseURL:   "http://localhost:11434",
		Model:     "gemma3:4b",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadDotEnv populates the process environment from the given .env files.
// Missing files are ignored; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv reads OLLAMAPROXY_* variables through lookup (os.LookupEnv in production).
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	get := func(k string) string {
		v, _ := lookup(EnvPrefix + k)
		return strings.TrimSpace(v)
	}
	cfg.Addr = get("ADDR")
	cfg.BaseURL = get("BASE_URL")
	cfg.Model = get("MODEL")
	cfg.LogLevel = get("LOG_LEVEL")
	cfg.LogFormat = get("LOG_FORMAT")
	cfg.LogFile = get("LOG_FILE")
	cfg.MetricsAddr = get("METRICS_ADDR")
	if v := get("TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%sTIMEOUT_SECONDS: %w", EnvPrefix, err)
		}
		cfg.TimeoutSeconds = n
	}
	if v := get("CORS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%sCORS_ENABLED: %w", EnvPrefix, err)
		}
		cfg.CORSEnabled = b
	}
	cfg.CORSOrigins = SplitCSV(get("CORS_ORIGINS"))
	return cfg, nil
}

// Merge overlays the non-zero fields of o onto c.
func (c *Config) Merge(o Config) {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.TimeoutSeconds != 0 {
		c.TimeoutSeconds = o.TimeoutSeconds
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.CORSEnabled {
		c.CORSEnabled = true
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", c.TimeoutSeconds)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log_format: %s", c.LogFormat)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://, got %q", c.BaseURL)
	}
	return nil
}

// Resolve builds the effective configuration: defaults < file < env.
// Flag overrides are merged by the caller.
func Resolve(path string, lookup func(string) (string, bool)) (Config, error) {
	return ResolveFrom(Default(), path, lookup)
}

// ResolveFrom is Resolve with a caller-provided base layer in place of Default().
func ResolveFrom(base Config, path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := base
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg.Merge(fileCfg)
	}
	envCfg, err := FromEnv(lookup)
	if err != nil {
		return cfg, err
	}
	cfg.Merge(envCfg)
	if cfg.LogFile != "" {
		p, err := fsutil.ExpandHome(cfg.LogFile)
		if err != nil {
			return cfg, err
		}
		cfg.LogFile = p
	}
	return cfg, nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
