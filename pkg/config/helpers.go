package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

// Keys lists every key accepted by GetValue and SetValue, sorted.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// Keys use the section.field form of the YAML file, e.g. settings.log_level.
var accessors = map[string]accessor{
	"settings.output_dir": {
		get: func(c *Config) string { return c.Settings.OutputDir },
		set: func(c *Config, v string) error { c.Settings.OutputDir = v; return nil },
	},
	"settings.cache_dir": {
		get: func(c *Config) string { return c.Settings.CacheDir },
		set: func(c *Config, v string) error { c.Settings.CacheDir = v; return nil },
	},
	"settings.cache_ttl": {
		get: func(c *Config) string { return c.Settings.CacheTTL.String() },
		set: func(c *Config, v string) error { return setDuration(&c.Settings.CacheTTL, v) },
	},
	"settings.base_url": {
		get: func(c *Config) string { return c.Settings.BaseURL },
		set: func(c *Config, v string) error { c.Settings.BaseURL = v; return nil },
	},
	"settings.http_timeout": {
		get: func(c *Config) string { return c.Settings.HTTPTimeout.String() },
		set: func(c *Config, v string) error { return setDuration(&c.Settings.HTTPTimeout, v) },
	},
	"settings.max_concurrent": {
		get: func(c *Config) string { return strconv.Itoa(c.Settings.MaxConcurrent) },
		set: func(c *Config, v string) error { return setInt(&c.Settings.MaxConcurrent, v) },
	},
	"settings.chunk_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Settings.ChunkSize) },
		set: func(c *Config, v string) error {
			n, err := parseBytes(v)
			if err != nil {
				return err
			}
			c.Settings.ChunkSize = int(n)
			return nil
		},
	},
	"settings.max_bytes_per_sec": {
		get: func(c *Config) string { return strconv.FormatInt(c.Settings.MaxBytesPerSec, 10) },
		set: func(c *Config, v string) error {
			n, err := parseBytes(v)
			if err != nil {
				return err
			}
			c.Settings.MaxBytesPerSec = n
			return nil
		},
	},
	"settings.verify_checksums": {
		get: func(c *Config) string { return strconv.FormatBool(c.Settings.VerifyChecksums) },
		set: func(c *Config, v string) error { return setBool(&c.Settings.VerifyChecksums, v) },
	},
	"settings.log_level": {
		get: func(c *Config) string { return c.Settings.LogLevel },
		set: func(c *Config, v string) error { c.Settings.LogLevel = strings.ToLower(v); return nil },
	},
	"retry.max_retries": {
		get: func(c *Config) string { return strconv.Itoa(c.Retry.MaxRetries) },
		set: func(c *Config, v string) error { return setInt(&c.Retry.MaxRetries, v) },
	},
	"retry.base_delay_secs": {
		get: func(c *Config) string { return formatFloat(c.Retry.BaseDelaySecs) },
		set: func(c *Config, v string) error { return setFloat(&c.Retry.BaseDelaySecs, v) },
	},
	"retry.backoff_multiplier": {
		get: func(c *Config) string { return formatFloat(c.Retry.BackoffMultiplier) },
		set: func(c *Config, v string) error { return setFloat(&c.Retry.BackoffMultiplier, v) },
	},
	"retry.max_backoff_secs": {
		get: func(c *Config) string { return formatFloat(c.Retry.MaxBackoffSecs) },
		set: func(c *Config, v string) error { return setFloat(&c.Retry.MaxBackoffSecs, v) },
	},
	"retry.min_request_delay_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Retry.MinRequestDelayMs) },
		set: func(c *Config, v string) error { return setInt(&c.Retry.MinRequestDelayMs, v) },
	},
	"auth.access_key": {
		get: func(c *Config) string { return c.Auth.AccessKey },
		set: func(c *Config, v string) error { c.Auth.AccessKey = v; return nil },
	},
	"auth.secret_key": {
		get: func(c *Config) string { return redact(c.Auth.SecretKey) },
		set: func(c *Config, v string) error { c.Auth.SecretKey = v; return nil },
	},
	"auth.logged_in_user": {
		get: func(c *Config) string { return c.Auth.LoggedInUser },
		set: func(c *Config, v string) error { c.Auth.LoggedInUser = v; return nil },
	},
	"auth.logged_in_sig": {
		get: func(c *Config) string { return redact(c.Auth.LoggedInSig) },
		set: func(c *Config, v string) error { c.Auth.LoggedInSig = v; return nil },
	},
}

// setMapKey sets or, for an empty value, deletes m[key].
func setMapKey(m *map[string]string, key, value string) {
	if value == "" {
		delete(*m, key)
		return
	}
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[key] = value
}

// SetValue sets a configuration value by key. Hook scripts are addressed as
// hooks.<type> and extra request headers as auth.headers.<name>; an empty
// value removes either. Byte sizes accept units such as 2MB or 512KiB.
func (c *Config) SetValue(key, value string) error {
	if typ, ok := strings.CutPrefix(key, "hooks."); ok && typ != "" {
		setMapKey(&c.Hooks, typ, value)
		return nil
	}
	if name, ok := strings.CutPrefix(key, "auth.headers."); ok && name != "" {
		setMapKey(&c.Auth.Headers, name, strings.TrimSpace(value))
		return nil
	}
	a, ok := accessors[key]
	if !ok {
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	if err := a.set(c, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// GetValue returns the value for key as a string. Secrets and header values
// are redacted.
func (c *Config) GetValue(key string) (string, error) {
	if typ, ok := strings.CutPrefix(key, "hooks."); ok && typ != "" {
		return c.Hooks[typ], nil
	}
	if name, ok := strings.CutPrefix(key, "auth.headers."); ok && name != "" {
		return redact(c.Auth.Headers[name]), nil
	}
	a, ok := accessors[key]
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return a.get(c), nil
}

// ToMap flattens the configuration for display.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(accessors)+len(c.Hooks)+len(c.Auth.Headers)+1)
	result["version"] = c.Version
	for key, a := range accessors {
		result[key] = a.get(c)
	}
	for typ, path := range c.Hooks {
		result["hooks."+typ] = path
	}
	for name, value := range c.Auth.Headers {
		result["auth.headers."+name] = redact(value)
	}
	return result
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func parseBytes(v string) (int64, error) {
	if v == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
