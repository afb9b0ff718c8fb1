// Package config loads and saves the iafetch YAML configuration. A missing
// file is not an error: every value has a default, and the defaults follow
// the request etiquette archive.org documents for automated clients.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/iafetch/pkg/auth"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/metadata"
	"github.com/glorpus-work/iafetch/pkg/ratelimit"
	"github.com/glorpus-work/iafetch/pkg/retry"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "IAFETCH_CONFIG"

// Default configuration values.
const (
	// CurrentVersion is written into new config files.
	CurrentVersion = "1.0"

	// SupportedVersions is the schema range this build understands.
	SupportedVersions = ">= 1.0, < 2.0"

	// DefaultCacheTTL is how long fetched metadata stays fresh.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultHTTPTimeout bounds connect plus response headers.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrent is the number of parallel file downloads.
	DefaultMaxConcurrent = 3

	// DefaultChunkSize is the read size while streaming a body.
	DefaultChunkSize = 32 * 1024

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// Config represents the application configuration.
type Config struct {
	Version  string            `yaml:"version"`
	Settings Settings          `yaml:"settings"`
	Retry    RetrySettings     `yaml:"retry"`
	Auth     AuthSettings      `yaml:"auth,omitempty"`
	Hooks    map[string]string `yaml:"hooks,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	OutputDir string `yaml:"output_dir"`
	CacheDir  string `yaml:"cache_dir,omitempty"`
	// CacheTTL zero keeps cached metadata until it is cleared.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Network settings
	BaseURL        string        `yaml:"base_url"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	ChunkSize      int           `yaml:"chunk_size"`
	MaxBytesPerSec int64         `yaml:"max_bytes_per_sec"` // 0 is unlimited

	VerifyChecksums bool   `yaml:"verify_checksums"`
	LogLevel        string `yaml:"log_level"` // debug, info, warn, error
}

// RetrySettings mirrors retry.Policy plus the request spacing, in the units
// people write by hand.
type RetrySettings struct {
	MaxRetries        int     `yaml:"max_retries"`
	BaseDelaySecs     float64 `yaml:"base_delay_secs"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxBackoffSecs    float64 `yaml:"max_backoff_secs"`
	MinRequestDelayMs int     `yaml:"min_request_delay_ms"`
}

// AuthSettings holds optional archive.org credentials: IA-S3 keys, the
// logged-in-user/logged-in-sig session cookies, or extra request headers.
// Everything configured is applied to each request.
type AuthSettings struct {
	AccessKey    string            `yaml:"access_key,omitempty"`
	SecretKey    string            `yaml:"secret_key,omitempty"`
	LoggedInUser string            `yaml:"logged_in_user,omitempty"`
	LoggedInSig  string            `yaml:"logged_in_sig,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	policy := retry.DefaultPolicy()
	return &Config{
		Version: CurrentVersion,
		Settings: Settings{
			OutputDir:       ".",
			CacheTTL:        DefaultCacheTTL,
			BaseURL:         metadata.DefaultBaseURL,
			HTTPTimeout:     DefaultHTTPTimeout,
			MaxConcurrent:   DefaultMaxConcurrent,
			ChunkSize:       DefaultChunkSize,
			VerifyChecksums: true,
			LogLevel:        "info",
		},
		Retry: RetrySettings{
			MaxRetries:        policy.MaxRetries,
			BaseDelaySecs:     policy.BaseDelay.Seconds(),
			BackoffMultiplier: policy.BackoffMultiplier,
			MaxBackoffSecs:    policy.MaxBackoff.Seconds(),
			MinRequestDelayMs: int(ratelimit.DefaultMinRequestDelay / time.Millisecond),
		},
	}
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	// Start from defaults so a partial file only overrides what it names.
	config := DefaultConfig()
	config.Version = ""
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes the configuration atomically. The file may carry
// credentials, so it is created owner-only.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	file, err := fsutil.CreateTempBeside(absPath)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}
	tempPath := file.Name()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()

	if err := file.Chmod(fsutil.FileModeSecure); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Settings.BaseURL == "" {
		c.Settings.BaseURL = defaults.Settings.BaseURL
	}
	if c.Settings.OutputDir == "" {
		c.Settings.OutputDir = defaults.Settings.OutputDir
	}
	if c.Settings.ChunkSize == 0 {
		c.Settings.ChunkSize = defaults.Settings.ChunkSize
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateVersion(c.Version); err != nil {
		return err
	}
	if err := validateSettings(c.Settings); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	if err := validateRetry(c.Retry); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	if (c.Auth.AccessKey == "") != (c.Auth.SecretKey == "") {
		return errors.Wrap(errors.ErrConfigValidation, "auth needs both access_key and secret_key")
	}
	if (c.Auth.LoggedInUser == "") != (c.Auth.LoggedInSig == "") {
		return errors.Wrap(errors.ErrConfigValidation, "auth needs both logged_in_user and logged_in_sig")
	}
	for name := range c.Auth.Headers {
		if strings.TrimSpace(name) == "" {
			return errors.Wrap(errors.ErrConfigValidation, "auth header names must not be empty")
		}
	}
	return nil
}

func validateVersion(v string) error {
	parsed, err := version.NewVersion(v)
	if err != nil {
		return errors.Wrapf(errors.ErrConfigVersion, "%q", v)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return errors.Wrap(err, "invalid version constraint")
	}
	if !constraint.Check(parsed) {
		return errors.Wrapf(errors.ErrConfigVersion, "%s does not satisfy %s", v, SupportedVersions)
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.CacheTTL < 0 {
		return errors.ErrCacheTTLNegative
	}
	if s.MaxConcurrent < 1 {
		return errors.ErrMaxConcurrent
	}
	if s.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if s.MaxBytesPerSec < 0 {
		return fmt.Errorf("max_bytes_per_sec cannot be negative")
	}
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL: %q", s.BaseURL)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

func validateRetry(r RetrySettings) error {
	switch {
	case r.MaxRetries < 1:
		return errors.Wrap(errors.ErrRetrySettings, "max_retries must be at least 1")
	case r.BaseDelaySecs < 0 || r.MaxBackoffSecs < 0:
		return errors.Wrap(errors.ErrRetrySettings, "delays cannot be negative")
	case r.BackoffMultiplier < 1:
		return errors.Wrap(errors.ErrRetrySettings, "backoff_multiplier must be at least 1")
	case r.MinRequestDelayMs < 0:
		return errors.Wrap(errors.ErrRetrySettings, "min_request_delay_ms cannot be negative")
	}
	return nil
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:        c.Retry.MaxRetries,
		BaseDelay:         secs(c.Retry.BaseDelaySecs),
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		MaxBackoff:        secs(c.Retry.MaxBackoffSecs),
	}
}

// MinRequestDelay is the spacing enforced between requests.
func (c *Config) MinRequestDelay() time.Duration {
	return time.Duration(c.Retry.MinRequestDelayMs) * time.Millisecond
}

// Authenticator returns nil when no credentials are configured.
func (c *Config) Authenticator() auth.Authenticator {
	return auth.Combine(
		auth.FromKeys(c.Auth.AccessKey, c.Auth.SecretKey),
		auth.FromCookies(c.Auth.LoggedInUser, c.Auth.LoggedInSig),
		auth.FromHeaders(c.Auth.Headers),
	)
}

// GetCacheDir returns the configured cache root or the platform default.
func (c *Config) GetCacheDir() (string, error) {
	if c.Settings.CacheDir != "" {
		return c.Settings.CacheDir, nil
	}
	return fsutil.GetCacheDir()
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// GetDefaultConfigPath returns $IAFETCH_CONFIG or the per-user config file.
func GetDefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}
