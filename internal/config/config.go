// Package config provides configuration management for the site server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultProbePort       = 9090
	DefaultStorageBackend  = "memory"
	DefaultStorageQuota    = "5MiB"
	DefaultDwellInterval   = 5 * time.Second
	DefaultMaxUploadBytes  = "2MiB"
	DefaultStatusDuration  = 3 * time.Second
	DefaultSessionLifetime = 12 * time.Hour

	appName        = "sitecms"
	sqliteFileName = "site.db"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvProbePort       = "APP_PROBE_PORT"
	EnvStorageBackend  = "APP_STORAGE_BACKEND"
	EnvStoragePath     = "APP_STORAGE_PATH"
	EnvStorageQuota    = "APP_STORAGE_QUOTA"
	EnvDwellInterval   = "APP_DWELL_INTERVAL"
	EnvMaxUploadBytes  = "APP_MAX_UPLOAD_BYTES"
	EnvStatusDuration  = "APP_STATUS_DURATION"
	EnvSiteFile        = "APP_SITE_FILE"
	EnvSessionLifetime = "APP_SESSION_LIFETIME"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Authentication mode: none, basic, apikey, multi. With none nobody can
	// log in and the site is read-only.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string

	SessionLifetime time.Duration

	// Storage settings. StoragePath is only used by the sqlite backend and
	// defaults to the XDG data directory.
	StorageBackend string
	StoragePath    string
	StorageQuota   int64

	// Slideshow behavior.
	DwellInterval  time.Duration
	MaxUploadBytes int64
	StatusDuration time.Duration

	// SiteFile is an optional TOML file describing the slideshows.
	SiteFile string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidProbePort = errors.New(
		"probe port must be between 0 and 65535",
	)
	ErrProbePortConflict = errors.New(
		"probe port must differ from server port when probe port is not 0",
	)
	ErrInvalidStorageBackend = errors.New(
		"storage backend must be one of: memory, sqlite",
	)
	ErrInvalidStorageQuota    = errors.New("storage quota must not be negative")
	ErrInvalidDwellInterval   = errors.New("dwell interval must be positive")
	ErrInvalidMaxUploadBytes  = errors.New("max upload size must be positive")
	ErrInvalidStatusDuration  = errors.New("status duration must be positive")
	ErrInvalidSessionLifetime = errors.New("session lifetime must be positive")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	quota, _ := humanize.ParseBytes(DefaultStorageQuota)
	maxUpload, _ := humanize.ParseBytes(DefaultMaxUploadBytes)

	cfg := &Config{
		ServerPort:      DefaultServerPort,
		ProbePort:       DefaultProbePort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		AuthMode:        DefaultAuthMode,
		SessionLifetime: DefaultSessionLifetime,
		StorageBackend:  DefaultStorageBackend,
		StorageQuota:    int64(quota),
		DwellInterval:   DefaultDwellInterval,
		MaxUploadBytes:  int64(maxUpload),
		StatusDuration:  DefaultStatusDuration,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadAuthEnv(); err != nil {
		return err
	}

	if err := c.loadStorageEnv(); err != nil {
		return err
	}

	if err := c.loadSlideshowEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvProbePort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProbePort, err)
		}
		c.ProbePort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() error {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}

	if val := os.Getenv(EnvSessionLifetime); val != "" {
		lifetime, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvSessionLifetime, err)
		}
		c.SessionLifetime = lifetime
	}

	return nil
}

// loadStorageEnv loads storage environment variables. Sizes accept
// human-readable values such as "5MiB" or "500kB".
func (c *Config) loadStorageEnv() error {
	if val := os.Getenv(EnvStorageBackend); val != "" {
		c.StorageBackend = val
	}

	if val := os.Getenv(EnvStoragePath); val != "" {
		c.StoragePath = val
	}

	if val := os.Getenv(EnvStorageQuota); val != "" {
		quota, err := parseSize(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvStorageQuota, err)
		}
		c.StorageQuota = quota
	}

	return nil
}

// loadSlideshowEnv loads slideshow behavior environment variables.
func (c *Config) loadSlideshowEnv() error {
	if val := os.Getenv(EnvDwellInterval); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvDwellInterval, err)
		}
		c.DwellInterval = d
	}

	if val := os.Getenv(EnvMaxUploadBytes); val != "" {
		size, err := parseSize(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxUploadBytes, err)
		}
		c.MaxUploadBytes = size
	}

	if val := os.Getenv(EnvStatusDuration); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvStatusDuration, err)
		}
		c.StatusDuration = d
	}

	if val := os.Getenv(EnvSiteFile); val != "" {
		c.SiteFile = val
	}

	return nil
}

func parseSize(val string) (int64, error) {
	size, err := humanize.ParseBytes(val)
	if err != nil {
		return 0, err
	}
	return int64(size), nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateSlideshow(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort != 0 && (c.ProbePort < 1 || c.ProbePort > 65535) {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	authMode := c.authModeOrDefault()

	validAuthModes := map[string]bool{
		"none":   true,
		"basic":  true,
		"apikey": true,
		"multi":  true,
	}
	if !validAuthModes[authMode] {
		return ErrInvalidAuthMode
	}

	switch authMode {
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	if c.SessionLifetime <= 0 {
		return ErrInvalidSessionLifetime
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// validateStorage validates storage configuration.
func (c *Config) validateStorage() error {
	switch c.StorageBackend {
	case "memory", "sqlite":
	default:
		return ErrInvalidStorageBackend
	}

	if c.StorageQuota < 0 {
		return ErrInvalidStorageQuota
	}

	return nil
}

// validateSlideshow validates slideshow behavior configuration.
func (c *Config) validateSlideshow() error {
	if c.DwellInterval <= 0 {
		return ErrInvalidDwellInterval
	}

	if c.MaxUploadBytes <= 0 {
		return ErrInvalidMaxUploadBytes
	}

	if c.StatusDuration <= 0 {
		return ErrInvalidStatusDuration
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}

// SQLitePath returns the database file of the sqlite backend, creating the
// XDG data directory when no explicit path is configured.
func (c *Config) SQLitePath() (string, error) {
	if c.StoragePath != "" {
		return c.StoragePath, nil
	}

	path, err := xdg.DataFile(filepath.Join(appName, sqliteFileName))
	if err != nil {
		return "", fmt.Errorf("resolving data file: %w", err)
	}
	return path, nil
}
