package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/auth"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/retry"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 3, cfg.Settings.MaxConcurrent)
	assert.Equal(t, "https://archive.org", cfg.Settings.BaseURL)
	assert.True(t, cfg.Settings.VerifyChecksums)
	assert.Equal(t, retry.DefaultPolicy(), cfg.RetryPolicy())
	assert.Equal(t, 150*time.Millisecond, cfg.MinRequestDelay())
	assert.Nil(t, cfg.Authenticator())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `version: "1.2"
settings:
  log_level: debug
  output_dir: /data/ia
  http_timeout: 10s
  max_concurrent: 2
retry:
  max_retries: 5
  base_delay_secs: 1.5
  backoff_multiplier: 3
  max_backoff_secs: 20
  min_request_delay_ms: 500
auth:
  access_key: AK
  secret_key: SK
hooks:
  post-download: /etc/iafetch/post.tengo
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "1.2", cfg.Version)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, "/data/ia", cfg.Settings.OutputDir)
	assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 2, cfg.Settings.MaxConcurrent)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultCacheTTL, cfg.Settings.CacheTTL)
	assert.True(t, cfg.Settings.VerifyChecksums)

	assert.Equal(t, retry.Policy{
		MaxRetries:        5,
		BaseDelay:         1500 * time.Millisecond,
		BackoffMultiplier: 3,
		MaxBackoff:        20 * time.Second,
	}, cfg.RetryPolicy())
	assert.Equal(t, 500*time.Millisecond, cfg.MinRequestDelay())
	assert.Equal(t, auth.LowAuth{AccessKey: "AK", SecretKey: "SK"}, cfg.Authenticator())
	assert.Equal(t, "/etc/iafetch/post.tengo", cfg.Hooks["post-download"])
}

func TestLoadConfig_SessionAndHeaders(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`auth:
  logged_in_user: me@example.com
  logged_in_sig: SIG
  headers:
    X-Token: abc
`))
	require.NoError(t, err)

	a := cfg.Authenticator()
	require.NotNil(t, a)
	assert.Equal(t, auth.ChainAuthType, a.Type())

	req, _ := http.NewRequest(http.MethodGet, "https://archive.org/download/x/y", nil)
	require.NoError(t, a.Apply(req))
	user, err := req.Cookie("logged-in-user")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Value)
	assert.Equal(t, "abc", req.Header.Get("X-Token"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, errors.ErrEmptyConfigPath)
}

func TestLoadConfigFromReader_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{name: "bad yaml", yaml: "settings: [", want: errors.ErrConfigParse},
		{name: "future version", yaml: `version: "2.0"`, want: errors.ErrConfigVersion},
		{name: "garbage version", yaml: `version: "one"`, want: errors.ErrConfigVersion},
		{name: "bad log level", yaml: "settings:\n  log_level: loud", want: errors.ErrInvalidLogLevel},
		{name: "zero concurrency", yaml: "settings:\n  max_concurrent: 0", want: errors.ErrMaxConcurrent},
		{name: "negative timeout", yaml: "settings:\n  http_timeout: -1s", want: errors.ErrHTTPTimeoutNegative},
		{name: "no attempts", yaml: "retry:\n  max_retries: 0", want: errors.ErrRetrySettings},
		{name: "shrinking backoff", yaml: "retry:\n  backoff_multiplier: 0.5", want: errors.ErrRetrySettings},
		{name: "half credentials", yaml: "auth:\n  access_key: AK", want: errors.ErrConfigValidation},
		{name: "half session", yaml: "auth:\n  logged_in_user: me", want: errors.ErrConfigValidation},
		{name: "base url scheme", yaml: "settings:\n  base_url: ftp://archive.org", want: errors.ErrConfigValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = "debug"
	cfg.Auth = AuthSettings{AccessKey: "AK", SecretKey: "SK"}

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fsutil.FileModeSecure), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfig_EmptyPath(t *testing.T) {
	assert.ErrorIs(t, DefaultConfig().SaveConfig(""), errors.ErrEmptyConfigPath)
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	p, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", p)

	t.Setenv(EnvConfigPath, "")
	p, err = GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(p))
	assert.Equal(t, "iafetch", filepath.Base(filepath.Dir(p)))
}

func TestGetCacheDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.CacheDir = "/var/cache/ia"
	dir, err := cfg.GetCacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/ia", dir)
}
