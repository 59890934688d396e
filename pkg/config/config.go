// Package config loads the scraper configuration document.
//
// The document is JSON or YAML, selected by file extension. Values are
// resolved with the precedence environment > file > defaults:
//
//	{
//	  "apiKey": "AIza...",
//	  "serviceName": "youtube",
//	  "version": "v3",
//	  "timeout": "30s",
//	  "redis": {"addr": "localhost:6379"},
//	  "quota": {"dailyLimit": 10000},
//	  "log": {"level": "info", "pretty": false}
//	}
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.json"

// Defaults applied when the document leaves a value unset.
const (
	DefaultServiceName = "youtube"
	DefaultVersion     = "v3"
	DefaultTimeout     = 30 * time.Second
)

// Environment variables overriding document values.
const (
	EnvAPIKey      = "YT_API_KEY"
	EnvServiceName = "YT_SERVICE_NAME"
	EnvVersion     = "YT_API_VERSION"
	EnvRedisURL    = "REDIS_URL"
	EnvLogLevel    = "LOG_LEVEL"
)

// Config is the resolved scraper configuration.
type Config struct {
	APIKey      string      `json:"apiKey" yaml:"apiKey"`
	ServiceName string      `json:"serviceName" yaml:"serviceName"`
	Version     string      `json:"version" yaml:"version"`
	UserAgent   string      `json:"userAgent" yaml:"userAgent"`
	// BaseURL overrides the API endpoint, e.g. to go through a proxy.
	BaseURL     string      `json:"baseUrl" yaml:"baseUrl"`
	Timeout     Duration    `json:"timeout" yaml:"timeout"`
	Redis       RedisConfig `json:"redis" yaml:"redis"`
	Quota       QuotaConfig `json:"quota" yaml:"quota"`
	Log         LogConfig   `json:"log" yaml:"log"`
}

// RedisConfig locates the Redis server used for quota accounting. Quota
// accounting is off when neither URL nor Addr is set.
type RedisConfig struct {
	// URL is a redis:// URL. It takes precedence over the other fields.
	URL      string `json:"url" yaml:"url"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// QuotaConfig holds quota accounting settings.
type QuotaConfig struct {
	// DailyLimit is the daily unit budget; 0 selects the API default.
	DailyLimit int `json:"dailyLimit" yaml:"dailyLimit"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// ConfigError reports a configuration document that cannot be used.
type ConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Duration is a time.Duration read from a string such as "30s".
type Duration time.Duration

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Load reads the document at path, applies environment overrides and
// defaults, and validates the result. An empty path means DefaultPath.
// Every failure is a *ConfigError.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg, err := parse(path, data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func parse(path string, data []byte) (*Config, error) {
	var cfg Config

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if dec.More() {
			return nil, errors.New("parse json: trailing content after document")
		}

	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("strict config parse error: %w", err)
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, errors.New("config file contains multiple documents or trailing content")
		}

	default:
		return nil, fmt.Errorf("unsupported config format %q (want .json, .yaml or .yml)", ext)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAPIKey); ok && v != "" {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvServiceName); ok && v != "" {
		c.ServiceName = v
	}
	if v, ok := os.LookupEnv(EnvVersion); ok && v != "" {
		c.Version = v
	}
	if v, ok := os.LookupEnv(EnvRedisURL); ok && v != "" {
		c.Redis.URL = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = string(logging.LevelInfo)
	}
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("apiKey is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", time.Duration(c.Timeout))
	}
	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota.dailyLimit must not be negative, got %d", c.Quota.DailyLimit)
	}
	if c.Log.Level != "" && !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
	}
	return nil
}

// RedisOptions returns the client options for quota accounting, or nil
// when no Redis server is configured.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL != "" {
		opts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	if c.Redis.Addr == "" {
		return nil, nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}, nil
}

// LoggingConfig returns the logger settings for logging.Setup.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.Log.Level))
	cfg.Pretty = c.Log.Pretty
	return cfg
}
