// Package errors defines the error taxonomy shared by every iafetch package.
// Each failure kind is a sentinel value so callers can distinguish them with
// errors.Is, and request failures carry their HTTP detail in RequestError.
package errors

import "fmt"

// Request and transfer errors.
var (
	// ErrInvalidIdentifier is returned for malformed identifiers. No request is sent.
	ErrInvalidIdentifier = fmt.Errorf("invalid identifier")

	// ErrNotFound is returned when archive.org reports that the item does not exist.
	ErrNotFound = fmt.Errorf("item not found")

	// ErrForbidden is returned when archive.org denies access to a dark or restricted item.
	ErrForbidden = fmt.Errorf("access forbidden")

	// ErrRateLimited is returned when retries were exhausted while being throttled.
	ErrRateLimited = fmt.Errorf("rate limited")

	// ErrServerError is returned for upstream 5xx responses after retries were exhausted.
	ErrServerError = fmt.Errorf("server error")

	// ErrClientError is returned for 4xx responses other than 403, 404 and 429.
	ErrClientError = fmt.Errorf("client error")

	// ErrNetworkFailure is returned for connectivity problems after retries were exhausted.
	ErrNetworkFailure = fmt.Errorf("network failure")

	// ErrTimeout is returned when a request exceeded its deadline after retries were exhausted.
	ErrTimeout = fmt.Errorf("request timed out")

	// ErrParse is returned when a response body does not have the expected shape.
	ErrParse = fmt.Errorf("failed to parse response")

	// ErrCancelled is returned when the caller cancelled a streaming download.
	ErrCancelled = fmt.Errorf("download cancelled")
)

// Validation and extraction errors.
var (
	ErrChecksumMismatch         = fmt.Errorf("checksum mismatch")
	ErrUnsupportedHashAlgorithm = fmt.Errorf("unsupported hash algorithm")
	ErrFileNotFound             = fmt.Errorf("file not found")
	ErrUnsupportedFormat        = fmt.Errorf("unsupported archive format")
	ErrDecompression            = fmt.Errorf("decompression failed")
	ErrInvalidPath              = fmt.Errorf("invalid path")
)

// Config errors.
var (
	ErrEmptyConfigPath     = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath   = fmt.Errorf("invalid config file path")
	ErrConfigParse         = fmt.Errorf("failed to parse config")
	ErrConfigValidation    = fmt.Errorf("invalid configuration")
	ErrConfigEncode        = fmt.Errorf("failed to encode config")
	ErrConfigDirectory     = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate    = fmt.Errorf("failed to create config file")
	ErrConfigFileRename    = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists    = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigVersion       = fmt.Errorf("unsupported config version")
	ErrUnknownConfigKey    = fmt.Errorf("unknown configuration key")
	ErrInvalidLogLevel     = fmt.Errorf("invalid log level")
	ErrHTTPTimeoutNegative = fmt.Errorf("http_timeout cannot be negative")
	ErrCacheTTLNegative    = fmt.Errorf("cache_ttl cannot be negative")
	ErrMaxConcurrent       = fmt.Errorf("max_concurrent must be at least 1")
	ErrRetrySettings       = fmt.Errorf("invalid retry settings")
)

// Hook errors.
var (
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails returns ErrInvalidLogLevel annotated with the offending value.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrUnknownConfigKeyWithName returns ErrUnknownConfigKey annotated with the key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}
